package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPExtractorExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %v, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}

		var req extractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.SubjectHint != "RTR: John Doe" {
			t.Errorf("subjectHint = %q", req.SubjectHint)
		}

		_ = json.NewEncoder(w).Encode(Fields{
			Client:    "Acme Corp",
			Candidate: "John Doe",
			Position:  "Senior Engineer",
			Rate:      "$85/hr",
		})
	}))
	defer srv.Close()

	e := &HTTPExtractor{Endpoint: srv.URL, APIKey: "test-key", HTTPClient: srv.Client()}

	fields, err := e.Extract(context.Background(), "body text", "RTR: John Doe")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if fields.Client != "Acme Corp" || fields.Candidate != "John Doe" {
		t.Errorf("Extract() = %+v, want decoded fields", fields)
	}
}

func TestHTTPExtractorErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tests := []struct {
		name string
		e    *HTTPExtractor
	}{
		{name: "no endpoint", e: &HTTPExtractor{}},
		{name: "non-200 status", e: &HTTPExtractor{Endpoint: srv.URL, HTTPClient: srv.Client()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.e.Extract(context.Background(), "text", "hint"); err == nil {
				t.Error("Extract() should fail")
			}
		})
	}
}
