package scan

import (
	"time"

	"github.com/talentwire/mailscope/internal/classify"
	"github.com/talentwire/mailscope/internal/gmail"
)

// Request describes one page of a mailbox scan.
type Request struct {
	// StartDate and EndDate bound the scan to an inclusive local calendar
	// date range. Zero values mean unbounded.
	StartDate time.Time
	EndDate   time.Time

	// Scope restricts the scan to a slice of the mailbox.
	Scope gmail.Scope

	// PageToken is the provider continuation token from a previous page.
	// Empty requests the first page.
	PageToken string
}

// PageResult is one page of classified threads plus the count
// reconciliation fields.
type PageResult struct {
	Items []*classify.Thread `json:"items"`

	// Fetched is the number of message stubs the provider returned for
	// this page, before thread grouping and deduplication.
	Fetched int `json:"fetched"`

	// NextCursor continues the scan on the next request. Omitted on the
	// last page.
	NextCursor string `json:"nextCursor,omitempty"`

	// Total is the best available count of matching threads: the maximum
	// of the exact count, the items on this page, and the provider's
	// fuzzy estimate.
	Total int `json:"total"`
}
