package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentwire/mailscope/internal/classify"
	"github.com/talentwire/mailscope/internal/directory"
	"github.com/talentwire/mailscope/internal/gmail"
	"github.com/talentwire/mailscope/internal/scan"
)

type fakeEngine struct {
	lastRequest scan.Request
	result      *scan.PageResult
	err         error
}

func (f *fakeEngine) Scan(_ context.Context, req scan.Request) (*scan.PageResult, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeLister struct {
	mailboxes []directory.Mailbox
	err       error
}

func (f *fakeLister) ListDomainUsers(_ context.Context, _ string) ([]directory.Mailbox, error) {
	return f.mailboxes, f.err
}

func newTestServer(t *testing.T, api *API) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	api.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleThreads(t *testing.T) {
	engine := &fakeEngine{
		result: &scan.PageResult{
			Items: []*classify.Thread{
				{ID: "t1", SortEpoch: 2000, SubjectDisplay: "Senior Engineer"},
			},
			Fetched:    5,
			NextCursor: "cursor-2",
			Total:      9,
		},
	}
	api := &API{
		Engines: func(_ context.Context, mailbox string) (Engine, error) {
			assert.Equal(t, "jane@talentwire.example", mailbox)
			return engine, nil
		},
	}
	srv := newTestServer(t, api)

	res, err := http.Get(srv.URL + "/api/threads?mailbox=jane@talentwire.example&startDate=2024-12-01&endDate=2024-12-28&scope=inbox&pageToken=cursor-1")
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var page scan.PageResult
	require.NoError(t, json.NewDecoder(res.Body).Decode(&page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "t1", page.Items[0].ID)
	assert.Equal(t, "cursor-2", page.NextCursor)
	assert.Equal(t, 9, page.Total)

	assert.Equal(t, gmail.ScopeInboxOnly, engine.lastRequest.Scope)
	assert.Equal(t, "cursor-1", engine.lastRequest.PageToken)
	assert.Equal(t, "2024-12-01", engine.lastRequest.StartDate.Format("2006-01-02"))
	assert.Equal(t, "2024-12-28", engine.lastRequest.EndDate.Format("2006-01-02"))
}

func TestHandleThreadsValidation(t *testing.T) {
	api := &API{
		Engines: func(context.Context, string) (Engine, error) {
			return &fakeEngine{result: &scan.PageResult{}}, nil
		},
	}
	srv := newTestServer(t, api)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "missing mailbox", query: "", want: http.StatusBadRequest},
		{name: "bad scope", query: "mailbox=a@b.example&scope=archive", want: http.StatusBadRequest},
		{name: "bad date", query: "mailbox=a@b.example&startDate=12/01/2024", want: http.StatusBadRequest},
		{name: "valid minimal", query: "mailbox=a@b.example", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := http.Get(srv.URL + "/api/threads?" + tt.query)
			require.NoError(t, err)
			defer func() { _ = res.Body.Close() }()
			assert.Equal(t, tt.want, res.StatusCode)
		})
	}
}

func TestHandleThreadsScanFailure(t *testing.T) {
	api := &API{
		Engines: func(context.Context, string) (Engine, error) {
			return &fakeEngine{err: errors.New("provider down")}, nil
		},
	}
	srv := newTestServer(t, api)

	res, err := http.Get(srv.URL + "/api/threads?mailbox=a@b.example")
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
}

func TestHandleThreadsEngineFactoryFailure(t *testing.T) {
	api := &API{
		Engines: func(context.Context, string) (Engine, error) {
			return nil, errors.New("no credentials")
		},
	}
	srv := newTestServer(t, api)

	res, err := http.Get(srv.URL + "/api/threads?mailbox=a@b.example")
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
}

func TestHandleMailboxes(t *testing.T) {
	t.Run("configured", func(t *testing.T) {
		api := &API{
			Directory: &fakeLister{mailboxes: []directory.Mailbox{
				{Email: "jane@talentwire.example", Name: "Jane Recruiter"},
			}},
			Domain: "talentwire.example",
		}
		srv := newTestServer(t, api)

		res, err := http.Get(srv.URL + "/api/mailboxes")
		require.NoError(t, err)
		defer func() { _ = res.Body.Close() }()
		require.Equal(t, http.StatusOK, res.StatusCode)

		var body struct {
			Mailboxes []directory.Mailbox `json:"mailboxes"`
		}
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		require.Len(t, body.Mailboxes, 1)
		assert.Equal(t, "jane@talentwire.example", body.Mailboxes[0].Email)
	})

	t.Run("not configured", func(t *testing.T) {
		srv := newTestServer(t, &API{})

		res, err := http.Get(srv.URL + "/api/mailboxes")
		require.NoError(t, err)
		defer func() { _ = res.Body.Close() }()
		assert.Equal(t, http.StatusNotImplemented, res.StatusCode)
	})

	t.Run("directory failure", func(t *testing.T) {
		api := &API{
			Directory: &fakeLister{err: errors.New("admin api down")},
			Domain:    "talentwire.example",
		}
		srv := newTestServer(t, api)

		res, err := http.Get(srv.URL + "/api/mailboxes")
		require.NoError(t, err)
		defer func() { _ = res.Body.Close() }()
		assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	})
}

func TestHealthEndpoints(t *testing.T) {
	h := NewHealthChecker()
	mux := http.NewServeMux()
	h.RegisterHealthEndpoints(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// Not ready until startup flips the flag.
	assert.False(t, h.IsReady())
	res, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)

	h.SetReady(true)
	assert.True(t, h.IsReady())
	res, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	h.SetShuttingDown()
	res, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)

	// Liveness stays green while draining.
	res, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
