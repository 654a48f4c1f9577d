package scan_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/talentwire/mailscope/internal/gmail"
	"github.com/talentwire/mailscope/internal/instrumentation"
	"github.com/talentwire/mailscope/internal/logging"
	"github.com/talentwire/mailscope/internal/scan"
	"github.com/talentwire/mailscope/internal/server"
)

// Deps carries the collaborators the scan tools need.
type Deps struct {
	Engines   server.EngineFactory
	Directory server.MailboxLister
	Domain    string
	Metrics   *instrumentation.Metrics
	Log       *slog.Logger
}

// RegisterScanTools registers the mailbox scanning tools with the MCP server.
func RegisterScanTools(s *mcpserver.MCPServer, deps Deps) error {
	if deps.Engines == nil {
		return fmt.Errorf("engine factory is required")
	}

	scanTool := mcp.NewTool("scan_threads",
		mcp.WithDescription("Scan a mailbox for conversation threads with activity classification (sent, replied, attachments of interest, right-to-represent)"),
		mcp.WithString("mailbox",
			mcp.Required(),
			mcp.Description("Mailbox email address to scan"),
		),
		mcp.WithString("startDate",
			mcp.Description("Start of the date range, YYYY-MM-DD (inclusive)"),
		),
		mcp.WithString("endDate",
			mcp.Description("End of the date range, YYYY-MM-DD (inclusive)"),
		),
		mcp.WithString("scope",
			mcp.Description("Mailbox scope: all (default), inbox, or sent"),
		),
		mcp.WithString("pageToken",
			mcp.Description("Continuation token from a previous page"),
		),
	)

	s.AddTool(scanTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleScanThreads(ctx, request, deps)
	})

	listMailboxesTool := mcp.NewTool("list_mailboxes",
		mcp.WithDescription("List the organization's scannable mailboxes"),
	)

	s.AddTool(listMailboxesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListMailboxes(ctx, request, deps)
	})

	return nil
}

func handleScanThreads(ctx context.Context, request mcp.CallToolRequest, deps Deps) (*mcp.CallToolResult, error) {
	start := time.Now()
	ctx, span := instrumentation.StartToolSpan(ctx, "scan_threads")
	defer span.End()

	args := request.GetArguments()

	mailbox, ok := args["mailbox"].(string)
	if !ok || mailbox == "" {
		return mcp.NewToolResultError("'mailbox' field is required"), nil
	}

	scope, err := gmail.ParseScope(stringArg(args, "scope"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	startDate, err := gmail.ParseDate(stringArg(args, "startDate"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	endDate, err := gmail.ParseDate(stringArg(args, "endDate"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	engine, err := deps.Engines(ctx, mailbox)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		deps.Metrics.RecordToolInvocation(ctx, "scan_threads", instrumentation.StatusError, time.Since(start))
		return mcp.NewToolResultError(fmt.Sprintf("Failed to access mailbox: %v", err)), nil
	}

	result, err := engine.Scan(ctx, scan.Request{
		StartDate: startDate,
		EndDate:   endDate,
		Scope:     scope,
		PageToken: stringArg(args, "pageToken"),
	})
	if err != nil {
		if deps.Log != nil {
			deps.Log.Error("scan tool failed", logging.Mailbox(mailbox), logging.Err(err))
		}
		instrumentation.SetSpanError(span, err)
		deps.Metrics.RecordToolInvocation(ctx, "scan_threads", instrumentation.StatusError, time.Since(start))
		return mcp.NewToolResultError(fmt.Sprintf("Scan failed: %v", err)), nil
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}

	instrumentation.SetSpanSuccess(span)
	deps.Metrics.RecordToolInvocation(ctx, "scan_threads", instrumentation.StatusSuccess, time.Since(start))
	return mcp.NewToolResultText(string(payload)), nil
}

func handleListMailboxes(ctx context.Context, _ mcp.CallToolRequest, deps Deps) (*mcp.CallToolResult, error) {
	start := time.Now()
	ctx, span := instrumentation.StartToolSpan(ctx, "list_mailboxes")
	defer span.End()

	if deps.Directory == nil || deps.Domain == "" {
		return mcp.NewToolResultError("Mailbox listing is not configured; set the workspace domain and directory credentials"), nil
	}

	mailboxes, err := deps.Directory.ListDomainUsers(ctx, deps.Domain)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		deps.Metrics.RecordToolInvocation(ctx, "list_mailboxes", instrumentation.StatusError, time.Since(start))
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list mailboxes: %v", err)), nil
	}

	payload, err := json.MarshalIndent(map[string]any{"mailboxes": mailboxes}, "", "  ")
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}

	instrumentation.SetSpanSuccess(span)
	deps.Metrics.RecordToolInvocation(ctx, "list_mailboxes", instrumentation.StatusSuccess, time.Since(start))
	return mcp.NewToolResultText(string(payload)), nil
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}
