package google

import (
	admin "google.golang.org/api/admin/directory/v1"
	gmail "google.golang.org/api/gmail/v1"
)

// DefaultScopes are the Google OAuth scopes mailscope requires.
//
// The engine never writes to the provider, so Gmail access is read-only.
// The directory scope is used to enumerate mailboxes in a Workspace domain.
var DefaultScopes = []string{
	gmail.GmailReadonlyScope,
	admin.AdminDirectoryUserReadonlyScope,
}
