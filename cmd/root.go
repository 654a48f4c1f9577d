package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the mailscope application
var rootCmd = &cobra.Command{
	Use:   "mailscope",
	Short: "Scans Gmail mailboxes and classifies recruiting thread activity",
	Long: `mailscope scans Gmail mailboxes page by page, reconstructs conversation
threads and classifies their activity: sent, replied, attachments of
interest, and right-to-represent agreements.

It can run as:
  - A one-shot CLI scanner printing JSON (scan)
  - An HTTP API or MCP server for interactive clients (serve)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mailscope version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("mailscope version %s\n", version)
		},
	}
}

// setupLogging installs the default logger. Logs always go to stderr so
// stdout stays clean for JSON output and the stdio MCP transport.
func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func init() {
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
