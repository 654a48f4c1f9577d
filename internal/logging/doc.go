// Package logging provides structured logging helpers built on log/slog.
//
// It defines canonical attribute keys used throughout mailscope so that log
// lines are consistent and machine-filterable, plus helpers for logging
// mailbox identities without exposing PII (email addresses are hashed).
package logging
