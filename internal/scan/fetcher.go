package scan

import (
	"context"

	"golang.org/x/sync/errgroup"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/talentwire/mailscope/internal/instrumentation"
	"github.com/talentwire/mailscope/internal/logging"
)

// fetchThreads retrieves thread details in sequential batches of
// concurrent fetches, so at most batchSize provider calls are in flight.
// The result slice is aligned with ids; a failed fetch leaves a nil slot
// and the thread is dropped from the page.
func (s *Service) fetchThreads(ctx context.Context, ids []string) []*gmailapi.Thread {
	log := logging.WithOperation(s.logger(), "fetch_threads")
	results := make([]*gmailapi.Thread, len(ids))
	batch := s.batchSize()

	for lo := 0; lo < len(ids); lo += batch {
		hi := lo + batch
		if hi > len(ids) {
			hi = len(ids)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := lo; i < hi; i++ {
			g.Go(func() error {
				var thread *gmailapi.Thread
				err := s.call(gctx, instrumentation.OpGetThread, func(ctx context.Context) error {
					var err error
					thread, err = s.Provider.GetThread(ctx, ids[i])
					return err
				})
				if err != nil {
					log.Warn("thread fetch failed, dropping from page",
						logging.Thread(ids[i]), logging.Err(err))
					return nil
				}
				results[i] = thread
				return nil
			})
		}
		_ = g.Wait()

		if ctx.Err() != nil {
			break
		}
	}

	return results
}
