package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// extractorHTTPClient is a configured HTTP client with proper timeouts for
// the extraction endpoint.
var extractorHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	},
}

// HTTPExtractor calls a JSON extraction service. The service receives the
// concatenated message text plus the thread subject as a hint and responds
// with the structured fields.
type HTTPExtractor struct {
	// Endpoint is the extraction service URL.
	Endpoint string

	// APIKey, when set, is sent as a bearer token.
	APIKey string

	// HTTPClient overrides the default client. Used in tests.
	HTTPClient *http.Client
}

type extractRequest struct {
	Text        string `json:"text"`
	SubjectHint string `json:"subjectHint"`
}

// Extract posts the text to the extraction service and decodes the fields.
func (e *HTTPExtractor) Extract(ctx context.Context, text, subjectHint string) (*Fields, error) {
	if e.Endpoint == "" {
		return nil, fmt.Errorf("extractor endpoint is not configured")
	}

	body, err := json.Marshal(extractRequest{Text: text, SubjectHint: subjectHint})
	if err != nil {
		return nil, fmt.Errorf("failed to encode extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.APIKey)
	}

	client := e.HTTPClient
	if client == nil {
		client = extractorHTTPClient
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned status %s", res.Status)
	}

	var fields Fields
	if err := json.NewDecoder(res.Body).Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}
	return &fields, nil
}

var _ Extractor = (*HTTPExtractor)(nil)
