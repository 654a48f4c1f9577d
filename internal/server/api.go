package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/talentwire/mailscope/internal/directory"
	"github.com/talentwire/mailscope/internal/gmail"
	"github.com/talentwire/mailscope/internal/instrumentation"
	"github.com/talentwire/mailscope/internal/logging"
	"github.com/talentwire/mailscope/internal/scan"
)

// Engine is the scan surface the API exposes for one mailbox.
type Engine interface {
	Scan(ctx context.Context, req scan.Request) (*scan.PageResult, error)
}

// EngineFactory builds a scan engine bound to the given mailbox identity.
type EngineFactory func(ctx context.Context, mailbox string) (Engine, error)

// MailboxLister enumerates the organization's scannable mailboxes.
type MailboxLister interface {
	ListDomainUsers(ctx context.Context, domain string) ([]directory.Mailbox, error)
}

// API serves the scan endpoints.
type API struct {
	Engines EngineFactory

	// Directory and Domain back the mailbox listing endpoint. When either
	// is unset the endpoint reports that listing is not configured.
	Directory MailboxLister
	Domain    string

	Metrics *instrumentation.Metrics
	Log     *slog.Logger
}

func (a *API) logger() *slog.Logger {
	if a.Log != nil {
		return a.Log
	}
	return slog.Default()
}

// Register installs the API routes on the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.Handle("GET /api/threads", a.instrument("/api/threads", a.handleThreads))
	mux.Handle("GET /api/mailboxes", a.instrument("/api/mailboxes", a.handleMailboxes))
}

// instrument wraps a handler with request metrics.
func (a *API) instrument(path string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		a.Metrics.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, time.Since(start))
	})
}

// handleThreads serves one page of classified threads for a mailbox.
//
// Query parameters: mailbox (required), startDate, endDate (YYYY-MM-DD),
// scope (all, inbox, sent), pageToken.
func (a *API) handleThreads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mailbox := q.Get("mailbox")
	if mailbox == "" {
		writeError(w, http.StatusBadRequest, "mailbox parameter is required")
		return
	}

	scope, err := gmail.ParseScope(q.Get("scope"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	startDate, err := gmail.ParseDate(q.Get("startDate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	endDate, err := gmail.ParseDate(q.Get("endDate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log := a.logger().With(logging.Mailbox(mailbox))

	engine, err := a.Engines(r.Context(), mailbox)
	if err != nil {
		log.Error("failed to build scan engine", logging.Err(err))
		writeError(w, http.StatusBadGateway, "mailbox is not accessible")
		return
	}

	result, err := engine.Scan(r.Context(), scan.Request{
		StartDate: startDate,
		EndDate:   endDate,
		Scope:     scope,
		PageToken: q.Get("pageToken"),
	})
	if err != nil {
		log.Error("scan failed", logging.Err(err))
		writeError(w, http.StatusBadGateway, "scan failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleMailboxes lists the organization's scannable mailboxes.
func (a *API) handleMailboxes(w http.ResponseWriter, r *http.Request) {
	if a.Directory == nil || a.Domain == "" {
		writeError(w, http.StatusNotImplemented, "mailbox listing is not configured")
		return
	}

	mailboxes, err := a.Directory.ListDomainUsers(r.Context(), a.Domain)
	if err != nil {
		a.logger().Error("failed to list mailboxes", logging.Err(err))
		writeError(w, http.StatusBadGateway, "directory is not accessible")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"mailboxes": mailboxes})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
