// Package directory enumerates the organization's scannable mailboxes
// through the Admin SDK Directory API.
package directory
