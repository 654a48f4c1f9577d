package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/talentwire/mailscope/internal/directory"
	"github.com/talentwire/mailscope/internal/instrumentation"
	"github.com/talentwire/mailscope/internal/logging"
	"github.com/talentwire/mailscope/internal/rate"
	"github.com/talentwire/mailscope/internal/server"
	"github.com/talentwire/mailscope/internal/tools/scan_tools"
)

// serveConfig gathers the serve command's settings after flag and
// environment resolution.
type serveConfig struct {
	transport    string
	httpAddr     string
	domain       string
	adminMailbox string
	extractorURL string
	policyName   string
	pageSize     int64

	requestsPerSecond int

	metricsEnabled bool
	metricsAddr    string
}

func newServeCmd() *cobra.Command {
	var (
		debugMode bool
		cfg       serveConfig
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scan API server",
		Long: `Start the scanning engine as a long-running server.

Transports:
  - http: REST API (GET /api/threads, GET /api/mailboxes) plus health
    probes, with Prometheus metrics on a dedicated port (default)
  - stdio: MCP server over standard input/output for AI assistants

Mailbox listing requires a Google Workspace domain and an admin mailbox
for Directory API impersonation (--domain and --admin-mailbox, or the
WORKSPACE_DOMAIN and WORKSPACE_ADMIN_MAILBOX env vars).`,
		RunE: func(_ *cobra.Command, _ []string) error {
			setupLogging(debugMode)

			if cfg.domain == "" {
				cfg.domain = os.Getenv("WORKSPACE_DOMAIN")
			}
			if cfg.adminMailbox == "" {
				cfg.adminMailbox = os.Getenv("WORKSPACE_ADMIN_MAILBOX")
			}
			if cfg.extractorURL == "" {
				cfg.extractorURL = os.Getenv("EXTRACTOR_URL")
			}

			return runServe(cfg)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&cfg.transport, "transport", "http", "Transport type: http or stdio")
	cmd.Flags().StringVar(&cfg.httpAddr, "http-addr", ":8080", "HTTP server address (for http transport)")
	cmd.Flags().StringVar(&cfg.domain, "domain", "", "Google Workspace domain for mailbox listing. Can also use WORKSPACE_DOMAIN env var.")
	cmd.Flags().StringVar(&cfg.adminMailbox, "admin-mailbox", "", "Admin mailbox to impersonate for Directory API reads. Can also use WORKSPACE_ADMIN_MAILBOX env var.")
	cmd.Flags().StringVar(&cfg.extractorURL, "extractor-url", "", "Field-extraction service endpoint for right-to-represent threads. Can also use EXTRACTOR_URL env var; API key via EXTRACTOR_API_KEY.")
	cmd.Flags().StringVar(&cfg.policyName, "reply-policy", "last-reply", "Reply detection policy: last-reply or conversation")
	cmd.Flags().Int64Var(&cfg.pageSize, "page-size", 0, "Message stubs per scan page (default 25)")
	cmd.Flags().IntVar(&cfg.requestsPerSecond, "provider-rps", 10, "Provider API requests per second across all scans (0 disables limiting)")
	cmd.Flags().BoolVar(&cfg.metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port")
	cmd.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address")

	return cmd
}

func runServe(cfg serveConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	policy, err := parseReplyPolicy(cfg.policyName)
	if err != nil {
		return err
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if err := instrConfig.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation config: %w", err)
	}

	instrProvider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize instrumentation: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := instrProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shut down instrumentation", logging.Err(err))
		}
	}()

	// One limiter shared across all mailbox engines so concurrent scans
	// stay inside the provider quota together.
	var limiter rate.Limiter = rate.Unlimited{}
	if cfg.requestsPerSecond > 0 {
		bucket := rate.NewTokenBucket(cfg.requestsPerSecond)
		defer bucket.Stop()
		limiter = bucket
	}

	engines := server.EngineFactory(func(ctx context.Context, mailbox string) (server.Engine, error) {
		return buildEngine(ctx, mailbox, engineOptions{
			pageSize:     cfg.pageSize,
			extractorURL: cfg.extractorURL,
			policy:       policy,
			limiter:      limiter,
			metrics:      instrProvider.Metrics(),
		})
	})

	var lister server.MailboxLister
	if cfg.domain != "" && cfg.adminMailbox != "" {
		dir, err := directory.NewClient(ctx, cfg.adminMailbox)
		if err != nil {
			slog.Warn("directory access unavailable, mailbox listing disabled", logging.Err(err))
		} else {
			lister = dir
		}
	}

	switch cfg.transport {
	case "stdio":
		return runStdioServer(ctx, engines, lister, cfg, instrProvider)
	case "http":
		return runHTTPServer(ctx, engines, lister, cfg, instrProvider)
	}
	return fmt.Errorf("invalid transport %q (expected http or stdio)", cfg.transport)
}

// runStdioServer serves the MCP tools over standard input/output.
func runStdioServer(ctx context.Context, engines server.EngineFactory, lister server.MailboxLister, cfg serveConfig, instrProvider *instrumentation.Provider) error {
	mcpSrv := mcpserver.NewMCPServer("mailscope", version,
		mcpserver.WithToolCapabilities(true),
	)

	err := scan_tools.RegisterScanTools(mcpSrv, scan_tools.Deps{
		Engines:   engines,
		Directory: lister,
		Domain:    cfg.domain,
		Metrics:   instrProvider.Metrics(),
		Log:       slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to register scan tools: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- mcpserver.ServeStdio(mcpSrv)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down stdio server")
		return nil
	case err := <-errCh:
		return err
	}
}

// runHTTPServer serves the REST API with health probes, plus the metrics
// listener on its own port.
func runHTTPServer(ctx context.Context, engines server.EngineFactory, lister server.MailboxLister, cfg serveConfig, instrProvider *instrumentation.Provider) error {
	health := server.NewHealthChecker()

	api := &server.API{
		Engines:   engines,
		Directory: lister,
		Domain:    cfg.domain,
		Metrics:   instrProvider.Metrics(),
		Log:       slog.Default(),
	}

	mux := http.NewServeMux()
	api.Register(mux)
	health.RegisterHealthEndpoints(mux)

	httpSrv := &http.Server{
		Addr:              cfg.httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var metricsSrv *server.MetricsServer
	if cfg.metricsEnabled && instrProvider.Enabled() {
		var err error
		metricsSrv, err = server.NewMetricsServer(cfg.metricsAddr, instrProvider)
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", logging.Err(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting scan API server", "addr", cfg.httpAddr)
		errCh <- httpSrv.ListenAndServe()
	}()
	health.SetReady(true)

	select {
	case err := <-errCh:
		return fmt.Errorf("scan API server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down scan API server")
	health.SetShuttingDown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	var errs []error
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down scan API server: %w", err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down metrics server: %w", err))
		}
	}
	return errors.Join(errs...)
}
