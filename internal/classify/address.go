package classify

import (
	"net/mail"
	"strings"
)

// ParseCounterparty parses a From/To header value of the form
// `"Display Name" <address@domain>`. The bracketed address is the
// authoritative identifier; when no bracket is present the raw string
// (quotes stripped) is used. The display name defaults to the address
// when no separate human name is derivable.
func ParseCounterparty(raw string) (name, address string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}

	if a, err := mail.ParseAddress(raw); err == nil {
		address = a.Address
		name = a.Name
		if name == "" {
			name = address
		}
		return name, address
	}

	// Malformed header; grab the bracketed address by hand.
	if i := strings.LastIndex(raw, "<"); i >= 0 {
		if j := strings.Index(raw[i:], ">"); j > 0 {
			address = strings.TrimSpace(raw[i+1 : i+j])
			name = strings.TrimSpace(strings.Trim(strings.TrimSpace(raw[:i]), `"`))
			if name == "" {
				name = address
			}
			return name, address
		}
	}

	address = strings.Trim(raw, `"`)
	return address, address
}
