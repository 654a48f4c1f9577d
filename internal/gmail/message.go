package gmail

import (
	"encoding/base64"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// HeaderValue extracts a header value from a Gmail message. Header names
// are matched case-insensitively; providers are not consistent about
// "Message-Id" vs "Message-ID".
func HeaderValue(m *gmail.Message, header string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, header) {
			return h.Value
		}
	}
	return ""
}

// HasHeaders reports whether a message came back with any headers at all.
// Metadata-only detail responses can omit them entirely.
func HasHeaders(m *gmail.Message) bool {
	return m != nil && m.Payload != nil && len(m.Payload.Headers) > 0
}

// HasLabel reports whether a message carries the given label id.
func HasLabel(m *gmail.Message, labelID string) bool {
	if m == nil {
		return false
	}
	for _, id := range m.LabelIds {
		if id == labelID {
			return true
		}
	}
	return false
}

// AttachmentFilenames returns the filenames of all attachment parts of a
// message, in part order.
func AttachmentFilenames(m *gmail.Message) []string {
	if m == nil || m.Payload == nil {
		return nil
	}
	var names []string
	walkParts(m.Payload, func(part *gmail.MessagePart) {
		if part.Filename != "" {
			names = append(names, part.Filename)
		}
	})
	return names
}

// PlainTextBody extracts the decoded plain-text body of a message. It
// prefers a text/plain part; when none is present it concatenates every
// part with a decodable body. Returns "" when nothing decodes.
func PlainTextBody(m *gmail.Message) string {
	if m == nil || m.Payload == nil {
		return ""
	}

	var plain string
	walkParts(m.Payload, func(part *gmail.MessagePart) {
		if plain != "" || part.Body == nil || part.Body.Data == "" {
			return
		}
		if part.MimeType == "text/plain" {
			if s, ok := decodeBody(part.Body.Data); ok {
				plain = s
			}
		}
	})
	if plain != "" {
		return plain
	}

	var all []string
	walkParts(m.Payload, func(part *gmail.MessagePart) {
		if part.Body == nil || part.Body.Data == "" {
			return
		}
		if s, ok := decodeBody(part.Body.Data); ok {
			all = append(all, s)
		}
	})
	return strings.Join(all, "\n")
}

// walkParts recursively walks through message parts.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}

// decodeBody decodes a base64url-encoded body (Gmail uses RFC 4648
// base64url), falling back to standard base64.
func decodeBody(data string) (string, bool) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(data)
		if err != nil {
			return "", false
		}
	}
	return string(decoded), true
}
