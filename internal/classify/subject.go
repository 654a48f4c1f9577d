package classify

import (
	"regexp"
	"strings"
)

// SubjectRightToRepresent is the fixed display subject for threads flagged
// as right-to-represent.
const SubjectRightToRepresent = "Right to Represent"

// maxRoleLen bounds the short role label cut from the subject line.
const maxRoleLen = 50

var replyPrefix = regexp.MustCompile(`^(?i:(re|fwd|fw|aw)):\s*`)

// stripReplyPrefixes removes leading reply/forward markers, repeatedly, so
// "Re: Fwd: X" cleans to "X".
func stripReplyPrefixes(s string) string {
	s = strings.TrimSpace(s)
	for {
		loc := replyPrefix.FindStringIndex(s)
		if loc == nil {
			return s
		}
		s = strings.TrimSpace(s[loc[1]:])
	}
}

// DisplaySubject normalizes a raw subject for display. Right-to-represent
// threads get the fixed category label. Otherwise, the text before the
// first '|', '-' or ':' becomes a short role label when it is non-empty
// and under 50 characters; else the full cleaned subject is used.
func DisplaySubject(raw string, rightToRepresent bool) string {
	if rightToRepresent {
		return SubjectRightToRepresent
	}

	s := stripReplyPrefixes(raw)
	if i := strings.IndexAny(s, "|-:"); i >= 0 {
		if role := strings.TrimSpace(s[:i]); role != "" && len(role) < maxRoleLen {
			return role
		}
	}
	return s
}
