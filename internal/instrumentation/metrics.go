package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
	attrScope     = "scope"
	attrTool      = "tool"
	attrMailbox   = "mailbox"
)

// Metrics provides methods for recording observability metrics.
// All record methods are safe on an uninitialized (zero) Metrics value,
// so callers never need to guard for disabled instrumentation.
type Metrics struct {
	// Scan metrics
	scanRequestsTotal      metric.Int64Counter
	scanDuration           metric.Float64Histogram
	threadsClassifiedTotal metric.Int64Counter
	countPagesTotal        metric.Int64Counter

	// Mail provider API metrics
	providerOperationsTotal   metric.Int64Counter
	providerOperationDuration metric.Float64Histogram

	// Enrichment metrics
	enrichmentTotal metric.Int64Counter

	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// MCP tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all instruments registered.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.scanRequestsTotal, err = meter.Int64Counter(
		"scan_requests_total",
		metric.WithDescription("Total number of mailbox scan page requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan_requests_total counter: %w", err)
	}

	m.scanDuration, err = meter.Float64Histogram(
		"scan_duration_seconds",
		metric.WithDescription("Mailbox scan page duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan_duration_seconds histogram: %w", err)
	}

	m.threadsClassifiedTotal, err = meter.Int64Counter(
		"threads_classified_total",
		metric.WithDescription("Total number of threads classified"),
		metric.WithUnit("{thread}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create threads_classified_total counter: %w", err)
	}

	m.countPagesTotal, err = meter.Int64Counter(
		"count_pages_total",
		metric.WithDescription("Total number of pages walked by the exact thread counter"),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create count_pages_total counter: %w", err)
	}

	m.providerOperationsTotal, err = meter.Int64Counter(
		"provider_operations_total",
		metric.WithDescription("Total number of mail provider API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_operations_total counter: %w", err)
	}

	m.providerOperationDuration, err = meter.Float64Histogram(
		"provider_operation_duration_seconds",
		metric.WithDescription("Mail provider API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_operation_duration_seconds histogram: %w", err)
	}

	m.enrichmentTotal, err = meter.Int64Counter(
		"enrichment_total",
		metric.WithDescription("Total number of field-extraction attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create enrichment_total counter: %w", err)
	}

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordScan records one scan page request with its mailbox scope, status
// and duration. The mailbox identifier is only attached when detailed
// labels are enabled, and must already be anonymized by the caller.
func (m *Metrics) RecordScan(ctx context.Context, scope, status, mailbox string, duration time.Duration) {
	if m == nil || m.scanRequestsTotal == nil || m.scanDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrScope, scope),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && mailbox != "" {
		attrs = append(attrs, attribute.String(attrMailbox, mailbox))
	}

	m.scanRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.scanDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordThreadsClassified adds to the classified-thread counter.
func (m *Metrics) RecordThreadsClassified(ctx context.Context, count int) {
	if m == nil || m.threadsClassifiedTotal == nil || count <= 0 {
		return
	}
	m.threadsClassifiedTotal.Add(ctx, int64(count))
}

// RecordCountPages records the number of pages the exact counter walked,
// with the overall counting status.
func (m *Metrics) RecordCountPages(ctx context.Context, pages int, status string) {
	if m == nil || m.countPagesTotal == nil || pages <= 0 {
		return
	}
	m.countPagesTotal.Add(ctx, int64(pages), metric.WithAttributes(
		attribute.String(attrStatus, status),
	))
}

// RecordProviderOperation records one mail provider API call with its
// operation name, status and duration.
func (m *Metrics) RecordProviderOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.providerOperationsTotal == nil || m.providerOperationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.providerOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.providerOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordEnrichment records a field-extraction attempt.
// Result should be one of: "success", "failure", "skipped".
func (m *Metrics) RecordEnrichment(ctx context.Context, result string) {
	if m == nil || m.enrichmentTotal == nil {
		return
	}
	m.enrichmentTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
