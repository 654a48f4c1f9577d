package scan

import (
	"context"
	"log/slog"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/talentwire/mailscope/internal/instrumentation"
	"github.com/talentwire/mailscope/internal/logging"
)

// countThreads walks id-only stub pages and counts distinct thread ids
// for the query. The result is a lower bound on the true thread count:
// hitting the page ceiling stops the walk but keeps the partial count.
// Only a provider error degrades to 0, where the caller falls back to
// the fuzzy estimate.
func (s *Service) countThreads(ctx context.Context, query string) int {
	log := logging.WithOperation(s.logger(), "count_threads")

	seen := make(map[string]struct{})
	pageToken := ""
	limit := s.countPages()

	for page := 1; ; page++ {
		if page > limit {
			log.Info("exact count stopped at page ceiling, keeping partial count",
				slog.Int("pages", limit), slog.Int("threads", len(seen)))
			s.Metrics.RecordCountPages(ctx, limit, instrumentation.StatusPartial)
			return len(seen)
		}

		var res *gmailapi.ListMessagesResponse
		err := s.call(ctx, instrumentation.OpListThreads, func(ctx context.Context) error {
			var err error
			res, err = s.Provider.ListThreadIDPage(ctx, query, pageToken, s.countPageSize())
			return err
		})
		if err != nil {
			log.Warn("exact count failed, falling back to estimate",
				slog.Int("pages", page-1), logging.Err(err))
			s.Metrics.RecordCountPages(ctx, page-1, instrumentation.StatusError)
			return 0
		}

		for _, stub := range res.Messages {
			if stub != nil && stub.ThreadId != "" {
				seen[stub.ThreadId] = struct{}{}
			}
		}

		if res.NextPageToken == "" {
			log.Debug("exact count complete",
				slog.Int("pages", page), slog.Int("threads", len(seen)))
			s.Metrics.RecordCountPages(ctx, page, instrumentation.StatusSuccess)
			return len(seen)
		}
		pageToken = res.NextPageToken
	}
}
