package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talentwire/mailscope/internal/classify"
	"github.com/talentwire/mailscope/internal/enrich"
	"github.com/talentwire/mailscope/internal/gmail"
	"github.com/talentwire/mailscope/internal/instrumentation"
	"github.com/talentwire/mailscope/internal/rate"
	"github.com/talentwire/mailscope/internal/scan"
)

// engineOptions carries the scan tuning shared by the scan and serve
// commands.
type engineOptions struct {
	pageSize     int64
	extractorURL string
	policy       classify.ReplyPolicy
	limiter      rate.Limiter
	metrics      *instrumentation.Metrics
}

// buildEngine creates a scan service bound to one mailbox.
func buildEngine(ctx context.Context, mailbox string, opts engineOptions) (*scan.Service, error) {
	client, err := gmail.NewClientForMailbox(ctx, mailbox)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail client: %w", err)
	}

	var extractor enrich.Extractor
	if opts.extractorURL != "" {
		extractor = &enrich.HTTPExtractor{
			Endpoint: opts.extractorURL,
			APIKey:   os.Getenv("EXTRACTOR_API_KEY"),
		}
	}

	return &scan.Service{
		Provider:  client,
		Extractor: extractor,
		Limiter:   opts.limiter,
		Metrics:   opts.metrics,
		Log:       slog.Default(),
		Policy:    opts.policy,
		PageSize:  opts.pageSize,
	}, nil
}

// parseReplyPolicy maps the CLI policy name to the classifier policy.
func parseReplyPolicy(s string) (classify.ReplyPolicy, error) {
	switch s {
	case "", "last-reply":
		return classify.PolicyLastReply, nil
	case "conversation":
		return classify.PolicyConversation, nil
	}
	return 0, fmt.Errorf("invalid reply policy %q (expected last-reply or conversation)", s)
}

func newScanCmd() *cobra.Command {
	var (
		debugMode    bool
		mailbox      string
		startDate    string
		endDate      string
		scopeName    string
		pageToken    string
		pageSize     int64
		extractorURL string
		policyName   string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a mailbox once and print one page of classified threads as JSON",
		Long: `Scan a mailbox for conversation threads in a date range and print one
page of classified threads as JSON on stdout. Pass the printed nextCursor
back via --page-token to continue.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(debugMode)

			scope, err := gmail.ParseScope(scopeName)
			if err != nil {
				return err
			}
			start, err := gmail.ParseDate(startDate)
			if err != nil {
				return err
			}
			end, err := gmail.ParseDate(endDate)
			if err != nil {
				return err
			}
			policy, err := parseReplyPolicy(policyName)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			engine, err := buildEngine(ctx, mailbox, engineOptions{
				pageSize:     pageSize,
				extractorURL: extractorURL,
				policy:       policy,
			})
			if err != nil {
				return err
			}

			result, err := engine.Scan(ctx, scan.Request{
				StartDate: start,
				EndDate:   end,
				Scope:     scope,
				PageToken: pageToken,
			})
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&mailbox, "mailbox", "", "Mailbox email address to scan (required)")
	cmd.Flags().StringVar(&startDate, "start", "", "Start of the date range, YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&endDate, "end", "", "End of the date range, YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&scopeName, "scope", "all", "Mailbox scope: all, inbox or sent")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "Continuation token from a previous page")
	cmd.Flags().Int64Var(&pageSize, "page-size", scan.DefaultPageSize, "Message stubs per page")
	cmd.Flags().StringVar(&extractorURL, "extractor-url", "", "Field-extraction service endpoint for right-to-represent threads. API key via EXTRACTOR_API_KEY env var.")
	cmd.Flags().StringVar(&policyName, "reply-policy", "last-reply", "Reply detection policy: last-reply or conversation")
	_ = cmd.MarkFlagRequired("mailbox")

	return cmd
}
