package scan

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/talentwire/mailscope/internal/classify"
	"github.com/talentwire/mailscope/internal/enrich"
	"github.com/talentwire/mailscope/internal/gmail"
	"github.com/talentwire/mailscope/internal/instrumentation"
	"github.com/talentwire/mailscope/internal/logging"
	"github.com/talentwire/mailscope/internal/rate"
)

// Default tuning values, applied when the corresponding Service field is
// left zero.
const (
	DefaultPageSize      = 25
	DefaultBatchSize     = 10
	DefaultCountPageSize = 500
	DefaultCountPages    = 50
	DefaultFetchTimeout  = 15 * time.Second
)

// Provider is the slice of the mail provider API the scanning engine
// consumes. *gmail.Client satisfies it; tests supply fakes.
type Provider interface {
	ListMessagePage(ctx context.Context, q, pageToken string, pageSize int64) (*gmailapi.ListMessagesResponse, error)
	ListThreadIDPage(ctx context.Context, q, pageToken string, pageSize int64) (*gmailapi.ListMessagesResponse, error)
	GetThread(ctx context.Context, threadID string) (*gmailapi.Thread, error)
	GetMessageMetadata(ctx context.Context, messageID string) (*gmailapi.Message, error)
	ListLabels(ctx context.Context) ([]*gmailapi.Label, error)
}

// Service scans one mailbox: it pages message stubs, reconstructs and
// classifies their threads, and reconciles the thread count.
type Service struct {
	Provider  Provider
	Extractor enrich.Extractor
	Limiter   rate.Limiter
	Metrics   *instrumentation.Metrics
	Log       *slog.Logger

	// Policy selects the reply-detection rule for classification.
	Policy classify.ReplyPolicy

	// PageSize is the number of message stubs per scan page.
	PageSize int64

	// BatchSize bounds concurrent thread detail fetches.
	BatchSize int

	// CountPageSize and CountPages tune the exact counter; counting gives
	// up when the page ceiling is reached.
	CountPageSize int64
	CountPages    int

	// FetchTimeout bounds each individual provider call.
	FetchTimeout time.Duration
}

func (s *Service) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

func (s *Service) pageSize() int64 {
	if s.PageSize > 0 {
		return s.PageSize
	}
	return DefaultPageSize
}

func (s *Service) batchSize() int {
	if s.BatchSize > 0 {
		return s.BatchSize
	}
	return DefaultBatchSize
}

func (s *Service) countPageSize() int64 {
	if s.CountPageSize > 0 {
		return s.CountPageSize
	}
	return DefaultCountPageSize
}

func (s *Service) countPages() int {
	if s.CountPages > 0 {
		return s.CountPages
	}
	return DefaultCountPages
}

func (s *Service) fetchTimeout() time.Duration {
	if s.FetchTimeout > 0 {
		return s.FetchTimeout
	}
	return DefaultFetchTimeout
}

// call runs one provider operation with rate limiting, a per-call timeout
// and operation metrics.
func (s *Service) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout())
	defer cancel()

	callCtx, span := instrumentation.StartProviderSpan(callCtx, operation)
	defer span.End()

	start := time.Now()
	err := fn(callCtx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	s.Metrics.RecordProviderOperation(ctx, operation, status, time.Since(start))

	return err
}

// Scan produces one page of classified threads for the request.
//
// The page fetch is the only fatal provider call. The exact count, label
// resolution, individual thread fetches and enrichment all degrade: a
// failure there narrows the result instead of failing the page.
func (s *Service) Scan(ctx context.Context, req Request) (*PageResult, error) {
	start := time.Now()
	log := logging.WithOperation(s.logger(), "scan")

	ctx, span := instrumentation.StartScanSpan(ctx, string(req.Scope))
	defer span.End()

	// Log lines correlate with the exported trace when tracing is on.
	if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
		log = log.With(slog.String("trace_id", traceID))
	}

	query := gmail.BuildQuery(req.Scope, req.StartDate, req.EndDate)

	// The exact count walks its own id-only pages; overlap it with the
	// page fetch and thread reconstruction. Only the first page pays for
	// it, follow-up pages reuse the caller's previous total.
	var countCh chan int
	if req.PageToken == "" {
		countCh = make(chan int, 1)
		go func() {
			countCh <- s.countThreads(ctx, query)
		}()
	}

	var page *gmailapi.ListMessagesResponse
	err := s.call(ctx, instrumentation.OpListMessages, func(ctx context.Context) error {
		var err error
		page, err = s.Provider.ListMessagePage(ctx, query, req.PageToken, s.pageSize())
		return err
	})
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.Metrics.RecordScan(ctx, string(req.Scope), instrumentation.StatusError, "", time.Since(start))
		return nil, fmt.Errorf("failed to fetch scan page: %w", err)
	}

	threadIDs := orderedThreadIDs(page.Messages)
	threads := s.fetchThreads(ctx, threadIDs)

	classifier := &classify.Classifier{
		Policy:      s.Policy,
		RTRLabelIDs: s.resolveRTRLabels(ctx, log),
		Metadata:    meteredMetadata{s},
		Log:         log,
	}

	items := s.assemble(ctx, log, classifier, threads)
	items = filterByDate(items, req.StartDate, req.EndDate)

	exact := 0
	if countCh != nil {
		exact = <-countCh
	}
	total := maxInt(exact, len(items), int(page.ResultSizeEstimate))

	s.Metrics.RecordThreadsClassified(ctx, len(items))
	s.Metrics.RecordScan(ctx, string(req.Scope), instrumentation.StatusSuccess, "", time.Since(start))
	instrumentation.SetSpanSuccess(span)

	log.Info("scan page complete",
		slog.String(logging.KeyScope, string(req.Scope)),
		slog.Int("fetched", len(page.Messages)),
		slog.Int("threads", len(items)),
		slog.Int("total", total),
		slog.Duration(logging.KeyDuration, time.Since(start)),
	)

	return &PageResult{
		Items:      items,
		Fetched:    len(page.Messages),
		NextCursor: page.NextPageToken,
		Total:      total,
	}, nil
}

// resolveRTRLabels maps the mailbox's labels of interest to their ids.
// Label resolution is advisory; on failure classification proceeds on
// subject keywords alone.
func (s *Service) resolveRTRLabels(ctx context.Context, log *slog.Logger) map[string]bool {
	var labels []*gmailapi.Label
	err := s.call(ctx, instrumentation.OpListLabels, func(ctx context.Context) error {
		var err error
		labels, err = s.Provider.ListLabels(ctx)
		return err
	})
	if err != nil {
		log.Warn("label resolution failed, falling back to subject matching", logging.Err(err))
		return nil
	}
	return classify.RTRLabelSet(labels)
}

// assemble classifies the fetched threads in encounter order, dropping
// duplicates, and enriches right-to-represent threads best-effort.
func (s *Service) assemble(ctx context.Context, log *slog.Logger, classifier *classify.Classifier, threads []*gmailapi.Thread) []*classify.Thread {
	seen := make(map[string]struct{}, len(threads))
	items := make([]*classify.Thread, 0, len(threads))

	for _, t := range threads {
		if t == nil {
			continue
		}
		item := classifier.Classify(ctx, t)
		if item == nil {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}

		if item.Flags.RightToRepresent {
			s.enrichItem(ctx, log, item, t)
		}

		items = append(items, item)
	}

	// Newest first; ties keep encounter order.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SortEpoch > items[j].SortEpoch
	})

	return items
}

// enrichItem attaches extracted structured fields to a right-to-represent
// thread. Extraction failures are logged and swallowed.
func (s *Service) enrichItem(ctx context.Context, log *slog.Logger, item *classify.Thread, t *gmailapi.Thread) {
	if s.Extractor == nil {
		s.Metrics.RecordEnrichment(ctx, instrumentation.EnrichResultSkipped)
		return
	}

	fields, err := s.Extractor.Extract(ctx, enrichmentText(t), item.SubjectOriginal)
	if err != nil {
		log.Warn("field extraction failed, continuing without structured fields",
			logging.Thread(item.ID), logging.Err(err))
		s.Metrics.RecordEnrichment(ctx, instrumentation.EnrichResultFailure)
		return
	}

	item.Enriched = fields
	s.Metrics.RecordEnrichment(ctx, instrumentation.EnrichResultSuccess)
}

// enrichmentText builds the extraction input from the thread's two most
// recent message bodies.
func enrichmentText(t *gmailapi.Thread) string {
	msgs := make([]*gmailapi.Message, 0, len(t.Messages))
	for _, m := range t.Messages {
		if m != nil {
			msgs = append(msgs, m)
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].InternalDate < msgs[j].InternalDate
	})

	if len(msgs) > 2 {
		msgs = msgs[len(msgs)-2:]
	}

	text := ""
	for _, m := range msgs {
		body := gmail.PlainTextBody(m)
		if body == "" {
			continue
		}
		if text != "" {
			text += "\n\n---\n\n"
		}
		text += body
	}
	return text
}

// orderedThreadIDs deduplicates the stub list into thread ids, preserving
// first-encounter order.
func orderedThreadIDs(stubs []*gmailapi.Message) []string {
	seen := make(map[string]struct{}, len(stubs))
	ids := make([]string, 0, len(stubs))
	for _, stub := range stubs {
		if stub == nil || stub.ThreadId == "" {
			continue
		}
		if _, dup := seen[stub.ThreadId]; dup {
			continue
		}
		seen[stub.ThreadId] = struct{}{}
		ids = append(ids, stub.ThreadId)
	}
	return ids
}

// filterByDate drops threads whose latest activity falls outside the
// requested local calendar date range. The provider query bounds are
// fuzzy at day granularity; this is the authoritative filter.
func filterByDate(items []*classify.Thread, start, end time.Time) []*classify.Thread {
	if start.IsZero() && end.IsZero() {
		return items
	}

	kept := items[:0]
	for _, item := range items {
		ts := time.UnixMilli(item.SortEpoch).Local()
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.Local)
		if !start.IsZero() && day.Before(start) {
			continue
		}
		if !end.IsZero() && day.After(end) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// meteredMetadata routes the classifier's header-recovery fetches through
// the service's rate limiter, timeout and metrics.
type meteredMetadata struct {
	s *Service
}

func (m meteredMetadata) GetMessageMetadata(ctx context.Context, messageID string) (*gmailapi.Message, error) {
	var msg *gmailapi.Message
	err := m.s.call(ctx, instrumentation.OpGetMetadata, func(ctx context.Context) error {
		var err error
		msg, err = m.s.Provider.GetMessageMetadata(ctx, messageID)
		return err
	})
	return msg, err
}

func maxInt(values ...int) int {
	best := 0
	for _, v := range values {
		if v > best {
			best = v
		}
	}
	return best
}
