package db

import (
	"context"
	"fmt"
	"time"
)

// Stored weight values behind the prefer/neutral/deprioritize tri-state a
// subscription carries. Ranking joins read the integer directly.
const (
	WeightPrefer       int16 = 1
	WeightNeutral      int16 = 0
	WeightDeprioritize int16 = -1
)

// WeightFromName maps the tri-state name onto its stored value.
func WeightFromName(name string) (int16, error) {
	switch name {
	case "prefer":
		return WeightPrefer, nil
	case "", "neutral":
		return WeightNeutral, nil
	case "deprioritize":
		return WeightDeprioritize, nil
	default:
		return 0, fmt.Errorf("unknown weight %q (want prefer, neutral, or deprioritize)", name)
	}
}

// WeightName is the inverse of WeightFromName; out-of-range stored values
// collapse onto the nearest named state.
func WeightName(weight int16) string {
	switch {
	case weight > 0:
		return "prefer"
	case weight < 0:
		return "deprioritize"
	default:
		return "neutral"
	}
}

// PollableSource is the slice of a source row the poller needs.
type PollableSource struct {
	SourceID            int64
	TenantID            int64
	FeedURL             string
	Title               string
	ETag                *string
	LastModified        *string
	ConsecutiveFailures int
	Weight              int16
}

const selectDueSourcesSQL = `
SELECT source_id, tenant_id, feed_url, title, etag, last_modified, consecutive_failures, weight
FROM rollup.sources
WHERE deleted_at IS NULL
  AND muted = false
  AND (circuit_open_until IS NULL OR circuit_open_until <= $1)
  AND (last_polled_at IS NULL OR last_polled_at <= $2)
ORDER BY last_polled_at NULLS FIRST
LIMIT $3`

// DueSources returns sources that are neither muted nor cooling down and
// whose last poll is older than the poll interval.
func DueSources(ctx context.Context, pool *Pool, now time.Time, pollInterval time.Duration, limit int) ([]PollableSource, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := pool.Query(ctx, selectDueSourcesSQL, now, now.Add(-pollInterval), limit)
	if err != nil {
		return nil, fmt.Errorf("select due sources: %w", err)
	}
	defer rows.Close()

	var sources []PollableSource
	for rows.Next() {
		var s PollableSource
		if err := rows.Scan(&s.SourceID, &s.TenantID, &s.FeedURL, &s.Title, &s.ETag, &s.LastModified, &s.ConsecutiveFailures, &s.Weight); err != nil {
			return nil, fmt.Errorf("scan due source: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due sources: %w", err)
	}
	return sources, nil
}

const markSourceSuccessSQL = `
UPDATE rollup.sources
SET etag = $2,
    last_modified = $3,
    last_polled_at = $4,
    last_success_at = $4,
    consecutive_failures = 0,
    circuit_open_until = NULL,
    last_error = NULL,
    updated_at = now()
WHERE source_id = $1`

// MarkSourceSuccess stores the new validator cursor and closes the breaker.
func MarkSourceSuccess(ctx context.Context, pool *Pool, sourceID int64, etag, lastModified *string, polledAt time.Time) error {
	if pool == nil {
		return fmt.Errorf("database pool is nil")
	}
	if _, err := pool.Exec(ctx, markSourceSuccessSQL, sourceID, etag, lastModified, polledAt); err != nil {
		return fmt.Errorf("mark source %d success: %w", sourceID, err)
	}
	return nil
}

const markSourceNotModifiedSQL = `
UPDATE rollup.sources
SET last_polled_at = $2,
    last_success_at = $2,
    consecutive_failures = 0,
    circuit_open_until = NULL,
    last_error = NULL,
    updated_at = now()
WHERE source_id = $1`

// MarkSourceNotModified records a 304 poll: the cursor stays, the breaker
// resets.
func MarkSourceNotModified(ctx context.Context, pool *Pool, sourceID int64, polledAt time.Time) error {
	if pool == nil {
		return fmt.Errorf("database pool is nil")
	}
	if _, err := pool.Exec(ctx, markSourceNotModifiedSQL, sourceID, polledAt); err != nil {
		return fmt.Errorf("mark source %d not modified: %w", sourceID, err)
	}
	return nil
}

const markSourceFailureSQL = `
UPDATE rollup.sources
SET last_polled_at = $2,
    consecutive_failures = $3,
    circuit_open_until = $4,
    last_error = $5,
    updated_at = now()
WHERE source_id = $1`

// MarkSourceFailure bumps the failure streak and opens the breaker until
// openUntil (nil keeps it closed for streaks below the first step).
func MarkSourceFailure(ctx context.Context, pool *Pool, sourceID int64, polledAt time.Time, failures int, openUntil *time.Time, cause string) error {
	if pool == nil {
		return fmt.Errorf("database pool is nil")
	}
	message := cause
	if len(message) > 500 {
		message = message[:500]
	}
	if _, err := pool.Exec(ctx, markSourceFailureSQL, sourceID, polledAt, failures, openUntil, message); err != nil {
		return fmt.Errorf("mark source %d failure: %w", sourceID, err)
	}
	return nil
}

const markSourceParseErrorSQL = `
UPDATE rollup.sources
SET last_polled_at = $2,
    last_error = $3,
    updated_at = now()
WHERE source_id = $1`

// MarkSourceParseError records a poll whose body could not be parsed. The
// fetch itself worked, so the failure streak and circuit stay untouched.
func MarkSourceParseError(ctx context.Context, pool *Pool, sourceID int64, polledAt time.Time, cause string) error {
	if pool == nil {
		return fmt.Errorf("database pool is nil")
	}
	message := cause
	if len(message) > 500 {
		message = message[:500]
	}
	if _, err := pool.Exec(ctx, markSourceParseErrorSQL, sourceID, polledAt, message); err != nil {
		return fmt.Errorf("mark source %d parse error: %w", sourceID, err)
	}
	return nil
}

const setSourceMutedSQL = `
UPDATE rollup.sources
SET muted = $2, updated_at = now()
WHERE source_id = $1 AND deleted_at IS NULL`

// SetSourceMuted flips the muted flag; muted sources are skipped by the
// poller but keep their stored items.
func SetSourceMuted(ctx context.Context, pool *Pool, sourceID int64, muted bool) (bool, error) {
	if pool == nil {
		return false, fmt.Errorf("database pool is nil")
	}
	tag, err := pool.Exec(ctx, setSourceMutedSQL, sourceID, muted)
	if err != nil {
		return false, fmt.Errorf("set source %d muted=%t: %w", sourceID, muted, err)
	}
	return tag.RowsAffected() == 1, nil
}

const softDeleteSourceSQL = `
UPDATE rollup.sources
SET deleted_at = now(), updated_at = now()
WHERE source_id = $1 AND deleted_at IS NULL`

// SoftDeleteSource unsubscribes a feed without touching its items.
func SoftDeleteSource(ctx context.Context, pool *Pool, sourceID int64) (bool, error) {
	if pool == nil {
		return false, fmt.Errorf("database pool is nil")
	}
	tag, err := pool.Exec(ctx, softDeleteSourceSQL, sourceID)
	if err != nil {
		return false, fmt.Errorf("soft delete source %d: %w", sourceID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// SourceStatusRow backs the sources list command and the stats endpoint.
type SourceStatusRow struct {
	SourceID            int64
	TenantID            int64
	FeedURL             string
	Title               string
	Weight              int16
	Folder              *string
	Muted               bool
	ConsecutiveFailures int
	CircuitOpenUntil    *time.Time
	LastSuccessAt       *time.Time
	LastError           *string
	ItemCount           int64
}

const selectSourceStatusSQL = `
SELECT s.source_id, s.tenant_id, s.feed_url, s.title, s.weight, s.folder, s.muted,
       s.consecutive_failures, s.circuit_open_until, s.last_success_at, s.last_error,
       COUNT(i.item_id) AS item_count
FROM rollup.sources s
LEFT JOIN rollup.items i ON i.source_id = s.source_id AND i.deleted_at IS NULL
WHERE s.deleted_at IS NULL AND s.tenant_id = $1
GROUP BY s.source_id
ORDER BY s.source_id`

// ListSourceStatus returns every live source for a tenant with its health.
func ListSourceStatus(ctx context.Context, pool *Pool, tenantID int64) ([]SourceStatusRow, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	rows, err := pool.Query(ctx, selectSourceStatusSQL, tenantID)
	if err != nil {
		return nil, fmt.Errorf("select source status: %w", err)
	}
	defer rows.Close()

	var out []SourceStatusRow
	for rows.Next() {
		var r SourceStatusRow
		if err := rows.Scan(&r.SourceID, &r.TenantID, &r.FeedURL, &r.Title, &r.Weight, &r.Folder, &r.Muted, &r.ConsecutiveFailures, &r.CircuitOpenUntil, &r.LastSuccessAt, &r.LastError, &r.ItemCount); err != nil {
			return nil, fmt.Errorf("scan source status: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source status: %w", err)
	}
	return out, nil
}

const insertSourceSQL = `
INSERT INTO rollup.sources (tenant_id, feed_url, title, site_url, weight, folder)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (tenant_id, feed_url) WHERE deleted_at IS NULL DO NOTHING
RETURNING source_id`

// InsertSource subscribes a tenant to a feed. Returns (0, nil) when the
// subscription already exists.
func InsertSource(ctx context.Context, pool *Pool, tenantID int64, feedURL, title string, siteURL *string, weight int16, folder *string) (int64, error) {
	if pool == nil {
		return 0, fmt.Errorf("database pool is nil")
	}
	var sourceID int64
	err := pool.QueryRow(ctx, insertSourceSQL, tenantID, feedURL, title, siteURL, weight, folder).Scan(&sourceID)
	if IsNoRows(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}
	return sourceID, nil
}
