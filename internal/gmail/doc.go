// Package gmail wraps the read-only slice of the Gmail API that the
// scanning engine consumes.
//
// It provides:
//   - Paged message-stub listing (full and thread-id-only variants)
//   - Full thread retrieval and single-message metadata recovery
//   - Label listing
//   - Query-string construction for date ranges and mailbox scopes
//   - Header, label, attachment and MIME body helpers
//
// All calls take a context and go through the authenticated client handle
// produced by the google package. The wrapper deliberately exposes no
// mutating operation: mailscope only ever reads the mailboxes it scans.
package gmail
