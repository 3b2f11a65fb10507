// Package pipeline runs the per-source ingestion path: fetch, parse, upsert,
// feature extraction, and cluster assignment. One Service instance is shared
// by the poll command and the daemon loop.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/db"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/features"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/feedparse"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/fetch"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/globaltime"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/langdetect"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/urlnorm"
)

const (
	// DefaultMaxHamming is the largest simhash distance two items may have
	// and still land in the same cluster.
	DefaultMaxHamming = 12
	// DefaultMinJaccard is the smallest title-token overlap required for a
	// cluster match. Both signals must agree.
	DefaultMinJaccard = 0.5
)

// Options tunes a pipeline Service. Zero values fall back to the defaults.
type Options struct {
	Workers           int
	PollInterval      time.Duration
	ClusterWindow     time.Duration
	ClusterCandidates int
	MaxHamming        int
	MinJaccard        float64
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 30 * time.Minute
	}
	if o.ClusterWindow <= 0 {
		o.ClusterWindow = 72 * time.Hour
	}
	if o.ClusterCandidates <= 0 {
		o.ClusterCandidates = 300
	}
	if o.MaxHamming <= 0 {
		o.MaxHamming = DefaultMaxHamming
	}
	if o.MinJaccard <= 0 {
		o.MinJaccard = DefaultMinJaccard
	}
	return o
}

// Summarizer is the optional AI summary hook; it must degrade to a no-op
// rather than fail the pipeline.
type Summarizer interface {
	SummarizeItem(ctx context.Context, tenantID, itemID int64, title, content string, publishedAt *time.Time) error
}

// feedFetcher is what the pipeline needs from the HTTP client.
type feedFetcher interface {
	Fetch(ctx context.Context, feedURL string, etag, lastModified *string) (*fetch.Result, error)
}

// ingestStore is the pipeline's storage surface. The production
// implementation is dbStore; tests substitute a fake to drive the branch
// logic without a database.
type ingestStore interface {
	dueSources(ctx context.Context, now time.Time, pollInterval time.Duration, limit int) ([]db.PollableSource, error)
	markSuccess(ctx context.Context, sourceID int64, etag, lastModified *string, at time.Time) error
	markNotModified(ctx context.Context, sourceID int64, at time.Time) error
	markFailure(ctx context.Context, sourceID int64, at time.Time, failures int, openUntil *time.Time, cause string) error
	markParseError(ctx context.Context, sourceID int64, at time.Time, cause string) error
	upsertItems(ctx context.Context, items []storableItem) (*upsertOutcome, error)
	assignToCluster(ctx context.Context, tenantID int64, item StoredItem) (bool, error)
}

// Service wires the fetcher, parser, writer, and clusterer together.
type Service struct {
	store      ingestStore
	fetcher    feedFetcher
	logger     zerolog.Logger
	opts       Options
	summarizer Summarizer
}

// NewService builds a pipeline service on the shared pool.
func NewService(pool *db.Pool, fetcher *fetch.Client, logger zerolog.Logger, opts Options) (*Service, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetch client is nil")
	}
	opts = opts.withDefaults()
	return &Service{
		store:   newDBStore(pool, logger, opts),
		fetcher: fetcher,
		logger:  logger,
		opts:    opts,
	}, nil
}

// SetSummarizer enables AI summaries for newly stored items.
func (s *Service) SetSummarizer(summarizer Summarizer) {
	s.summarizer = summarizer
}

// SourceReport summarizes one source poll.
type SourceReport struct {
	SourceID    int64
	TenantID    int64
	NotModified bool
	Format      feedparse.Format
	ItemsSeen   int
	ItemsNew    int
	ItemsSkip   int
	ItemsFailed int
	Clustered   int
	Err         error
}

// ProcessSource polls one source end to end and persists the outcome. Fetch
// failures feed the circuit breaker; a body that fetched fine but would not
// parse is the feed's problem, not the host's, and only updates last_error.
// The returned report carries the processing error rather than failing the
// caller; only infrastructure errors (storage unreachable) come back as err.
func (s *Service) ProcessSource(ctx context.Context, source db.PollableSource) (*SourceReport, error) {
	report := &SourceReport{SourceID: source.SourceID, TenantID: source.TenantID}
	now := globaltime.UTC()

	result, err := s.fetcher.Fetch(ctx, source.FeedURL, source.ETag, source.LastModified)
	if err != nil {
		report.Err = err
		return report, s.recordFailure(ctx, source, now, err)
	}

	if result.NotModified {
		report.NotModified = true
		if err := s.store.markNotModified(ctx, source.SourceID, now); err != nil {
			return report, err
		}
		return report, nil
	}

	doc, err := feedparse.Parse(result.Body, result.ContentType)
	if err != nil {
		report.Err = err
		return report, s.recordParseError(ctx, source, now, err)
	}
	report.Format = doc.Format
	report.ItemsSeen = len(doc.Items)
	report.ItemsSkip = len(doc.Skipped)

	for _, skipped := range doc.Skipped {
		s.logger.Warn().
			Int64("source_id", source.SourceID).
			Int("item_index", skipped.Index).
			Str("reason", skipped.Reason).
			Msg("skipped malformed feed item")
	}

	outcome, err := s.upsertDocument(ctx, source, doc, result.FetchedAt)
	if err != nil {
		report.Err = err
		return report, s.recordFailure(ctx, source, now, err)
	}
	report.ItemsFailed = len(outcome.Failed)
	for _, failed := range outcome.Failed {
		s.logger.Error().Err(failed.Err).
			Int64("source_id", source.SourceID).
			Str("title", failed.Title).
			Msg("item upsert failed, skipping")
	}

	for _, item := range outcome.Stored {
		if !item.IsNew {
			continue
		}
		report.ItemsNew++
		assigned, err := s.store.assignToCluster(ctx, source.TenantID, item)
		if err != nil {
			s.logger.Error().Err(err).
				Int64("item_id", item.ItemID).
				Msg("cluster assignment failed")
			continue
		}
		if assigned {
			report.Clustered++
		}
		if s.summarizer != nil {
			if err := s.summarizer.SummarizeItem(ctx, source.TenantID, item.ItemID, item.Title, item.ContentText, item.PublishedAt); err != nil {
				s.logger.Warn().Err(err).
					Int64("item_id", item.ItemID).
					Msg("summary pass failed")
			}
		}
	}

	if err := s.store.markSuccess(ctx, source.SourceID, result.ETag, result.LastModified, now); err != nil {
		return report, err
	}

	s.logger.Info().
		Int64("source_id", source.SourceID).
		Str("format", string(doc.Format)).
		Int("items_seen", report.ItemsSeen).
		Int("items_new", report.ItemsNew).
		Int("items_skipped", report.ItemsSkip).
		Int("items_failed", report.ItemsFailed).
		Msg("source polled")
	return report, nil
}

// recordFailure bumps the failure streak and opens the breaker once the
// streak reaches the first cooldown step.
func (s *Service) recordFailure(ctx context.Context, source db.PollableSource, now time.Time, cause error) error {
	failures := source.ConsecutiveFailures + 1
	openUntil := fetch.OpenUntil(now, failures)

	event := s.logger.Warn().
		Int64("source_id", source.SourceID).
		Int("consecutive_failures", failures).
		Bool("permanent", fetch.IsPermanent(cause)).
		Err(cause)
	if openUntil != nil {
		event = event.Time("circuit_open_until", *openUntil)
	}
	event.Msg("source poll failed")

	return s.store.markFailure(ctx, source.SourceID, now, failures, openUntil, cause.Error())
}

// recordParseError stores the cause without touching the breaker: the host
// answered, so backing off would not help.
func (s *Service) recordParseError(ctx context.Context, source db.PollableSource, now time.Time, cause error) error {
	s.logger.Warn().
		Int64("source_id", source.SourceID).
		Err(cause).
		Msg("feed body failed to parse")

	return s.store.markParseError(ctx, source.SourceID, now, cause.Error())
}

// prepareItem normalizes one parsed entry into its storable form plus the
// clustering features.
func (s *Service) prepareItem(source db.PollableSource, entry feedparse.Item, fetchedAt time.Time) storableItem {
	canonical := urlnorm.Canonicalize(strings.TrimSpace(entry.Link))
	titleTokens := features.Tokenize(entry.Title)
	bodyTokens := features.Tokenize(entry.Title + " " + entry.ContentText)

	item := storableItem{
		TenantID:     source.TenantID,
		SourceID:     source.SourceID,
		Title:        strings.TrimSpace(entry.Title),
		CanonicalURL: canonical,
		Summary:      entry.Summary,
		ContentText:  entry.ContentText,
		Language:     langdetect.Detect(entry.Title, entry.ContentText),
		PublishedAt:  entry.PublishedAt,
		FetchedAt:    fetchedAt,
		Simhash:      features.Simhash(bodyTokens),
		TokenCount:   len(bodyTokens),
		TitleTokens:  titleTokens,
	}
	if guid := strings.TrimSpace(entry.GUID); guid != "" {
		item.GUID = &guid
	}
	if author := strings.TrimSpace(entry.Author); author != "" {
		item.Author = &author
	}
	if image := strings.TrimSpace(entry.ImageURL); image != "" {
		item.ImageURL = &image
	}
	return item
}

func (s *Service) upsertDocument(ctx context.Context, source db.PollableSource, doc *feedparse.Document, fetchedAt time.Time) (*upsertOutcome, error) {
	prepared := make([]storableItem, 0, len(doc.Items))
	for _, entry := range doc.Items {
		prepared = append(prepared, s.prepareItem(source, entry, fetchedAt))
	}
	if len(prepared) == 0 {
		return &upsertOutcome{}, nil
	}
	return s.store.upsertItems(ctx, prepared)
}
