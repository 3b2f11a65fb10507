// Package digest turns a tenant's undigested clusters into a ranked,
// sectioned digest document and records what was delivered.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/db"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/globaltime"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/settings"
)

// Trigger kinds recorded on generated digests.
const (
	TriggerBacklog = "backlog"
	TriggerAway    = "away"
	TriggerManual  = "manual"
)

// Options tunes digest triggering.
type Options struct {
	BacklogThreshold int
	AwayLookback     time.Duration
}

func (o Options) withDefaults() Options {
	if o.BacklogThreshold <= 0 {
		o.BacklogThreshold = 50
	}
	if o.AwayLookback <= 0 {
		o.AwayLookback = 24 * time.Hour
	}
	return o
}

// Service generates digests.
type Service struct {
	pool   *db.Pool
	logger zerolog.Logger
	opts   Options
}

// NewService builds a digest service.
func NewService(pool *db.Pool, logger zerolog.Logger, opts Options) (*Service, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	return &Service{pool: pool, logger: logger, opts: opts.withDefaults()}, nil
}

// Result is one generated digest.
type Result struct {
	DigestID    int64
	DigestUUID  string
	Trigger     string
	GeneratedAt time.Time
	Entries     []Entry
	Markdown    string
}

// candidate is one undigested cluster, pre-ranked by the selection query.
type candidate struct {
	ClusterID   int64
	Title       string
	URL         string
	Summary     string
	MemberCount int
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// Coverage first, then the representative's source weight, then recency.
// Clusters the user already read or dismissed never enter a digest. FOR
// UPDATE SKIP LOCKED serializes concurrent digest runs for the same tenant
// without blocking them.
const selectDigestCandidatesSQL = `
SELECT c.cluster_id, c.title, COALESCE(i.canonical_url, ''), COALESCE(i.summary, ''),
       c.member_count, c.first_seen_at, c.last_seen_at
FROM rollup.clusters c
LEFT JOIN rollup.items i ON i.item_id = c.representative_item_id
LEFT JOIN rollup.sources s ON s.source_id = i.source_id
WHERE c.tenant_id = $1
  AND c.digested_at IS NULL
  AND c.deleted_at IS NULL
  AND c.status = 'active'
  AND NOT EXISTS (
    SELECT 1 FROM rollup.read_states r
    WHERE r.tenant_id = c.tenant_id AND r.cluster_id = c.cluster_id
      AND (r.read OR r.not_interested))
ORDER BY c.member_count DESC, COALESCE(s.weight, 0) DESC, c.last_seen_at DESC
FOR UPDATE OF c SKIP LOCKED`

const insertDigestSQL = `
INSERT INTO rollup.digests (digest_uuid, tenant_id, trigger_kind, generated_at, window_start, window_end, cluster_count, rendered_markdown)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING digest_id`

const insertDigestEntrySQL = `
INSERT INTO rollup.digest_entries (digest_id, cluster_id, section, rank, one_liner)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (digest_id, cluster_id) DO NOTHING`

const markClusterDigestedSQL = `
UPDATE rollup.clusters
SET digested_at = $2, updated_at = now()
WHERE cluster_id = $1`

// Generate builds a digest from every undigested cluster the tenant has, in
// one transaction. Returns (nil, nil) when there is nothing to digest.
func (s *Service) Generate(ctx context.Context, tenantID int64, trigger string) (*Result, error) {
	now := globaltime.UTC()

	tx, err := s.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin digest transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, selectDigestCandidatesSQL, tenantID)
	if err != nil {
		return nil, fmt.Errorf("select digest candidates: %w", err)
	}

	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.ClusterID, &c.Title, &c.URL, &c.Summary, &c.MemberCount, &c.FirstSeenAt, &c.LastSeenAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan digest candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	iterErr := rows.Err()
	rows.Close()
	if iterErr != nil {
		return nil, fmt.Errorf("iterate digest candidates: %w", iterErr)
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	windowStart := candidates[0].FirstSeenAt
	for _, c := range candidates {
		if c.FirstSeenAt.Before(windowStart) {
			windowStart = c.FirstSeenAt
		}
	}

	entries := splitSections(candidates)
	markdown := renderMarkdown(entries)

	digestUUID := uuid.NewString()
	var digestID int64
	err = tx.QueryRow(ctx, insertDigestSQL, digestUUID, tenantID, trigger, now, windowStart, now, len(candidates), markdown).Scan(&digestID)
	if err != nil {
		return nil, fmt.Errorf("insert digest: %w", err)
	}

	for _, entry := range entries {
		if _, err := tx.Exec(ctx, insertDigestEntrySQL, digestID, entry.ClusterID, entry.Section, entry.Rank, entry.OneLiner); err != nil {
			return nil, fmt.Errorf("insert digest entry for cluster %d: %w", entry.ClusterID, err)
		}
		if _, err := tx.Exec(ctx, markClusterDigestedSQL, entry.ClusterID, now); err != nil {
			return nil, fmt.Errorf("mark cluster %d digested: %w", entry.ClusterID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit digest transaction: %w", err)
	}

	s.logger.Info().
		Int64("tenant_id", tenantID).
		Int64("digest_id", digestID).
		Str("trigger", trigger).
		Int("clusters", len(candidates)).
		Msg("digest generated")

	return &Result{
		DigestID:    digestID,
		DigestUUID:  digestUUID,
		Trigger:     trigger,
		GeneratedAt: now,
		Entries:     entries,
		Markdown:    markdown,
	}, nil
}

// MaybeGenerate applies the automatic triggers: a backlog at or above the
// threshold fires immediately; otherwise any backlog at all plus no digest
// generated within the lookback (a tenant never digested included) gets a
// catch-up digest. Per-tenant settings override the service defaults.
// Returns (nil, nil) when neither trigger fires.
func (s *Service) MaybeGenerate(ctx context.Context, tenantID int64) (*Result, error) {
	backlog, err := db.CountUndigestedClusters(ctx, s.pool, tenantID)
	if err != nil {
		return nil, err
	}

	threshold, err := settings.DigestBacklogThreshold(ctx, s.pool, tenantID, s.opts.BacklogThreshold)
	if err != nil {
		return nil, err
	}
	awayHours, err := settings.DigestAwayHours(ctx, s.pool, tenantID, int(s.opts.AwayLookback/time.Hour))
	if err != nil {
		return nil, err
	}

	lastDigest, err := db.LatestDigestAt(ctx, s.pool, tenantID)
	if err != nil {
		return nil, err
	}

	trigger, fire := decideTrigger(backlog, threshold, lastDigest, globaltime.UTC(), time.Duration(awayHours)*time.Hour)
	if !fire {
		return nil, nil
	}
	return s.Generate(ctx, tenantID, trigger)
}

// decideTrigger is the pure trigger policy: backlog size beats everything,
// then staleness of the newest digest. A tenant with backlog that has never
// been digested is maximally stale.
func decideTrigger(backlog, threshold int, lastDigest *time.Time, now time.Time, lookback time.Duration) (string, bool) {
	if backlog <= 0 {
		return "", false
	}
	if backlog >= threshold {
		return TriggerBacklog, true
	}
	if lastDigest == nil || now.Sub(*lastDigest) >= lookback {
		return TriggerAway, true
	}
	return "", false
}
