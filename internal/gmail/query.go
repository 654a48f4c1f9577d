package gmail

import (
	"fmt"
	"strings"
	"time"
)

// Scope restricts a scan to a slice of the mailbox.
type Scope string

const (
	ScopeAllMail   Scope = "all"
	ScopeInboxOnly Scope = "inbox"
	ScopeSentOnly  Scope = "sent"
)

// ParseScope normalizes a user-supplied scope string. Both the short form
// ("inbox") and the wire-contract form ("INBOX_ONLY") are accepted; the
// empty string means all mail.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "all_mail":
		return ScopeAllMail, nil
	case "inbox", "inbox_only":
		return ScopeInboxOnly, nil
	case "sent", "sent_only":
		return ScopeSentOnly, nil
	}
	return "", fmt.Errorf("invalid scope %q (expected inbox, sent or all)", s)
}

// dateLayout is the wire format for request date bounds.
const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD request date as a local calendar date.
// The zero time means "no bound".
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return d, nil
}

// BuildQuery translates a logical date range and mailbox scope into the
// provider's search-string syntax. Trash, spam and drafts are always
// excluded.
//
// Gmail's after:/before: predicates are exclusive of the named day, so the
// start bound is shifted one calendar day earlier and the end bound one
// calendar day later, making the user-specified range inclusive on both
// ends. The shifts use calendar day arithmetic (AddDate), not epoch math,
// so daylight-saving transitions cannot introduce off-by-one days.
func BuildQuery(scope Scope, start, end time.Time) string {
	clauses := []string{"-in:trash", "-in:spam", "-in:drafts"}

	switch scope {
	case ScopeInboxOnly:
		clauses = append(clauses, "label:INBOX")
	case ScopeSentOnly:
		clauses = append(clauses, "label:SENT")
	}

	if !start.IsZero() {
		clauses = append(clauses, "after:"+start.AddDate(0, 0, -1).Format("2006/01/02"))
	}
	if !end.IsZero() {
		clauses = append(clauses, "before:"+end.AddDate(0, 0, 1).Format("2006/01/02"))
	}

	return strings.Join(clauses, " ")
}
