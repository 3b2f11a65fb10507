package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DigestSummary is one generated digest without its rendered body.
type DigestSummary struct {
	DigestID     int64
	DigestUUID   string
	TriggerKind  string
	GeneratedAt  time.Time
	WindowStart  time.Time
	WindowEnd    time.Time
	ClusterCount int
}

const selectDigestsSQL = `
SELECT digest_id, digest_uuid, trigger_kind, generated_at, window_start, window_end, cluster_count
FROM rollup.digests
WHERE tenant_id = $1
ORDER BY generated_at DESC
LIMIT $2`

// ListDigests returns a tenant's digests, newest first.
func ListDigests(ctx context.Context, pool *Pool, tenantID int64, limit int) ([]DigestSummary, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := pool.Query(ctx, selectDigestsSQL, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("select digests: %w", err)
	}
	defer rows.Close()

	var out []DigestSummary
	for rows.Next() {
		var d DigestSummary
		if err := rows.Scan(&d.DigestID, &d.DigestUUID, &d.TriggerKind, &d.GeneratedAt, &d.WindowStart, &d.WindowEnd, &d.ClusterCount); err != nil {
			return nil, fmt.Errorf("scan digest summary: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate digest summaries: %w", err)
	}
	return out, nil
}

const selectLatestDigestAtSQL = `
SELECT MAX(generated_at)
FROM rollup.digests
WHERE tenant_id = $1`

// LatestDigestAt returns when the tenant's newest digest was generated, or
// nil if the tenant has never been digested.
func LatestDigestAt(ctx context.Context, pool *Pool, tenantID int64) (*time.Time, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	var latest sql.NullTime
	if err := pool.QueryRow(ctx, selectLatestDigestAtSQL, tenantID).Scan(&latest); err != nil {
		return nil, fmt.Errorf("select latest digest time: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

// DigestEntryRow is one digest entry joined with its cluster title.
type DigestEntryRow struct {
	ClusterID int64
	Section   string
	Rank      int
	OneLiner  string
	Title     string
}

// DigestDetail is one digest with its entries and rendered markdown.
type DigestDetail struct {
	DigestSummary
	RenderedMarkdown string
	Entries          []DigestEntryRow
}

const selectDigestDetailSQL = `
SELECT digest_id, digest_uuid, trigger_kind, generated_at, window_start, window_end, cluster_count, rendered_markdown
FROM rollup.digests
WHERE tenant_id = $1 AND digest_id = $2`

const selectDigestEntriesSQL = `
SELECT e.cluster_id, e.section, e.rank, e.one_liner, c.title
FROM rollup.digest_entries e
JOIN rollup.clusters c ON c.cluster_id = e.cluster_id
WHERE e.digest_id = $1
ORDER BY e.rank`

// DigestByID loads one digest with its entries. Returns ErrNoRows through the
// scan when the digest does not exist for the tenant.
func DigestByID(ctx context.Context, pool *Pool, tenantID, digestID int64) (*DigestDetail, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	var d DigestDetail
	err := pool.QueryRow(ctx, selectDigestDetailSQL, tenantID, digestID).Scan(
		&d.DigestID, &d.DigestUUID, &d.TriggerKind, &d.GeneratedAt, &d.WindowStart, &d.WindowEnd, &d.ClusterCount, &d.RenderedMarkdown,
	)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, selectDigestEntriesSQL, digestID)
	if err != nil {
		return nil, fmt.Errorf("select digest entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e DigestEntryRow
		if err := rows.Scan(&e.ClusterID, &e.Section, &e.Rank, &e.OneLiner, &e.Title); err != nil {
			return nil, fmt.Errorf("scan digest entry: %w", err)
		}
		d.Entries = append(d.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate digest entries: %w", err)
	}
	return &d, nil
}
