package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/globaltime"
)

// PollReport aggregates one poll pass over all due sources.
type PollReport struct {
	SourcesDue    int
	SourcesOK     int
	SourcesFailed int
	NotModified   int
	ItemsNew      int
	ItemsFailed   int
	Clustered     int
}

// PollDueSources fans the due sources out over a bounded worker pool. A
// source failure is counted and logged, never fatal; only storage errors
// stop the pass.
func (s *Service) PollDueSources(ctx context.Context) (*PollReport, error) {
	now := globaltime.UTC()
	sources, err := s.store.dueSources(ctx, now, s.opts.PollInterval, 0)
	if err != nil {
		return nil, fmt.Errorf("load due sources: %w", err)
	}

	report := &PollReport{SourcesDue: len(sources)}
	if len(sources) == 0 {
		return report, nil
	}

	results := make([]*SourceReport, len(sources))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.opts.Workers)

	for i, source := range sources {
		i, source := i, source
		group.Go(func() error {
			sourceReport, err := s.ProcessSource(groupCtx, source)
			if err != nil {
				return fmt.Errorf("source %d: %w", source.SourceID, err)
			}
			results[i] = sourceReport
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return report, err
	}

	for _, r := range results {
		if r == nil {
			continue
		}
		switch {
		case r.Err != nil:
			report.SourcesFailed++
		case r.NotModified:
			report.SourcesOK++
			report.NotModified++
		default:
			report.SourcesOK++
		}
		report.ItemsNew += r.ItemsNew
		report.ItemsFailed += r.ItemsFailed
		report.Clustered += r.Clustered
	}

	s.logger.Info().
		Int("sources_due", report.SourcesDue).
		Int("sources_ok", report.SourcesOK).
		Int("sources_failed", report.SourcesFailed).
		Int("not_modified", report.NotModified).
		Int("items_new", report.ItemsNew).
		Int("items_failed", report.ItemsFailed).
		Msg("poll pass complete")
	return report, nil
}
