package enrich

import (
	"context"
)

// Fields holds the structured placement terms extracted from the free-text
// body of a right-to-represent exchange. Every field is best-effort; absent
// values stay empty.
type Fields struct {
	Client    string `json:"client,omitempty"`
	Rate      string `json:"rate,omitempty"`
	Candidate string `json:"candidate,omitempty"`
	Position  string `json:"position,omitempty"`
}

// Extractor turns free-text email bodies into structured Fields. It is an
// external collaborator: calls may be slow, may fail, and failures must
// never abort thread classification.
type Extractor interface {
	Extract(ctx context.Context, text, subjectHint string) (*Fields, error)
}

// Func adapts a plain function to the Extractor interface.
type Func func(ctx context.Context, text, subjectHint string) (*Fields, error)

// Extract calls f.
func (f Func) Extract(ctx context.Context, text, subjectHint string) (*Fields, error) {
	return f(ctx, text, subjectHint)
}
