// Package instrumentation provides OpenTelemetry-based metrics and tracing
// for the scanning engine and its HTTP/MCP surfaces.
//
// The Provider owns the meter and tracer providers and the configured
// exporters (Prometheus by default, OTLP or stdout optionally). The
// Metrics recorder is nil-safe throughout: a zero value records nothing,
// so components take a *Metrics unconditionally and never branch on
// whether instrumentation is enabled.
//
// Mailbox identities are PII. Metric labels never carry a raw address;
// when detailed labels are enabled callers pass the anonymized form.
package instrumentation
