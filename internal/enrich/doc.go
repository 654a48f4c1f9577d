// Package enrich defines the external field-extraction collaborator used
// for right-to-represent threads.
//
// The engine only depends on the Extractor interface; the HTTP
// implementation is wiring for deployments that run an extraction service.
// Extraction is strictly best-effort: callers log failures and continue
// without structured fields.
package enrich
