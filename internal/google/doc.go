// Package google provides the authenticated HTTP client handle used by all
// Google API wrappers in mailscope.
//
// Credential acquisition is deliberately isolated here: the scanning engine
// consumes an opaque *http.Client and never sees tokens or key material.
// Supported sources are a domain-wide-delegation service account (with the
// scanned mailbox as impersonated subject) and a cached user OAuth token for
// local development.
package google
