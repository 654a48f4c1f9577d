// Package scan orchestrates a paginated mailbox scan: it pages message
// stubs from the provider, reconstructs each stub's conversation thread,
// classifies activity, and reconciles the exact thread count against the
// provider's fuzzy estimate.
//
// The page stub fetch is the only fatal provider call. Everything else
// degrades per item: a thread that fails to fetch is dropped from the
// page, label resolution falls back to subject matching, enrichment
// failures leave the thread without structured fields, and a failed
// exact count falls back to the estimate. Total is always at least the
// number of items returned.
package scan
