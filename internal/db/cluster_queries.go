package db

import (
	"context"
	"fmt"
	"time"
)

// ClusterSummary backs the clusters list API and the digest selector.
type ClusterSummary struct {
	ClusterID            int64
	ClusterUUID          string
	TenantID             int64
	Title                string
	RepresentativeItemID *int64
	RepresentativeURL    *string
	MemberCount          int
	SourceCount          int
	FirstSeenAt          time.Time
	LastSeenAt           time.Time
	DigestedAt           *time.Time
}

const selectRecentClustersSQL = `
SELECT c.cluster_id, c.cluster_uuid, c.tenant_id, c.title, c.representative_item_id,
       ri.canonical_url, c.member_count,
       COUNT(DISTINCT i.source_id) AS source_count,
       c.first_seen_at, c.last_seen_at, c.digested_at
FROM rollup.clusters c
LEFT JOIN rollup.items ri ON ri.item_id = c.representative_item_id
LEFT JOIN rollup.cluster_members m ON m.cluster_id = c.cluster_id
LEFT JOIN rollup.items i ON i.item_id = m.item_id AND i.deleted_at IS NULL
WHERE c.deleted_at IS NULL AND c.tenant_id = $1 AND c.last_seen_at >= $2
GROUP BY c.cluster_id, ri.canonical_url
ORDER BY c.last_seen_at DESC
LIMIT $3`

// RecentClusters lists a tenant's clusters last touched after since.
func RecentClusters(ctx context.Context, pool *Pool, tenantID int64, since time.Time, limit int) ([]ClusterSummary, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := pool.Query(ctx, selectRecentClustersSQL, tenantID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent clusters: %w", err)
	}
	defer rows.Close()

	var out []ClusterSummary
	for rows.Next() {
		var c ClusterSummary
		if err := rows.Scan(&c.ClusterID, &c.ClusterUUID, &c.TenantID, &c.Title, &c.RepresentativeItemID, &c.RepresentativeURL, &c.MemberCount, &c.SourceCount, &c.FirstSeenAt, &c.LastSeenAt, &c.DigestedAt); err != nil {
			return nil, fmt.Errorf("scan cluster summary: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster summaries: %w", err)
	}
	return out, nil
}

// ClusterMemberRow is one item inside a cluster, for detail views.
type ClusterMemberRow struct {
	ItemID            int64
	SourceID          int64
	Title             string
	CanonicalURL      string
	PublishedAt       *time.Time
	HammingDistance   *int
	JaccardSimilarity *float64
}

const selectClusterMembersSQL = `
SELECT i.item_id, i.source_id, i.title, i.canonical_url, i.published_at,
       m.hamming_distance, m.jaccard_similarity
FROM rollup.cluster_members m
JOIN rollup.items i ON i.item_id = m.item_id
WHERE m.cluster_id = $1 AND i.deleted_at IS NULL
ORDER BY i.published_at NULLS LAST, i.item_id`

// ClusterMembers lists the items of one cluster, oldest publication first.
func ClusterMembers(ctx context.Context, pool *Pool, clusterID int64) ([]ClusterMemberRow, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	rows, err := pool.Query(ctx, selectClusterMembersSQL, clusterID)
	if err != nil {
		return nil, fmt.Errorf("select cluster members: %w", err)
	}
	defer rows.Close()

	var out []ClusterMemberRow
	for rows.Next() {
		var m ClusterMemberRow
		if err := rows.Scan(&m.ItemID, &m.SourceID, &m.Title, &m.CanonicalURL, &m.PublishedAt, &m.HammingDistance, &m.JaccardSimilarity); err != nil {
			return nil, fmt.Errorf("scan cluster member: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster members: %w", err)
	}
	return out, nil
}

const countUndigestedClustersSQL = `
SELECT COUNT(*)
FROM rollup.clusters c
WHERE c.tenant_id = $1 AND c.digested_at IS NULL AND c.deleted_at IS NULL
  AND c.status = 'active'
  AND NOT EXISTS (
    SELECT 1 FROM rollup.read_states r
    WHERE r.tenant_id = c.tenant_id AND r.cluster_id = c.cluster_id
      AND (r.read OR r.not_interested))`

// CountUndigestedClusters returns the tenant's digest backlog: live clusters
// never digested and not marked read or not-interested.
func CountUndigestedClusters(ctx context.Context, pool *Pool, tenantID int64) (int, error) {
	if pool == nil {
		return 0, fmt.Errorf("database pool is nil")
	}
	var n int
	if err := pool.QueryRow(ctx, countUndigestedClustersSQL, tenantID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count undigested clusters: %w", err)
	}
	return n, nil
}

// MergeClustersResult reports what an admin merge moved.
type MergeClustersResult struct {
	MovedMembers   int64
	NewMemberCount int
}

const mergeMoveMembersSQL = `
UPDATE rollup.cluster_members
SET cluster_id = $1
WHERE cluster_id = $2`

const mergeRefreshTargetSQL = `
UPDATE rollup.clusters
SET member_count = (SELECT COUNT(*) FROM rollup.cluster_members WHERE cluster_id = $1),
    first_seen_at = LEAST(first_seen_at, $2),
    last_seen_at = GREATEST(last_seen_at, $3),
    updated_at = now()
WHERE cluster_id = $1
RETURNING member_count`

// Markers OR-combine so a cluster read (or saved, or dismissed) under either
// id stays that way after the merge.
const mergeCombineReadStateSQL = `
INSERT INTO rollup.read_states (tenant_id, cluster_id, read, saved, not_interested, updated_at)
SELECT tenant_id, $1, read, saved, not_interested, now()
FROM rollup.read_states
WHERE cluster_id = $2
ON CONFLICT (tenant_id, cluster_id) DO UPDATE
SET read = rollup.read_states.read OR EXCLUDED.read,
    saved = rollup.read_states.saved OR EXCLUDED.saved,
    not_interested = rollup.read_states.not_interested OR EXCLUDED.not_interested,
    updated_at = now()`

const mergeDropSourceReadStateSQL = `
DELETE FROM rollup.read_states
WHERE cluster_id = $1`

const mergeRetireSourceSQL = `
UPDATE rollup.clusters
SET status = 'merged', deleted_at = now(), updated_at = now()
WHERE cluster_id = $1`

const selectClusterForMergeSQL = `
SELECT tenant_id, first_seen_at, last_seen_at
FROM rollup.clusters
WHERE cluster_id = $1 AND deleted_at IS NULL`

// MergeClusters moves every member of src into dst, refreshes dst's
// aggregates, and retires src. Both clusters must be live and belong to the
// same tenant; the whole operation is one transaction.
func MergeClusters(ctx context.Context, pool *Pool, dstID, srcID int64) (*MergeClustersResult, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	if dstID == srcID {
		return nil, fmt.Errorf("cannot merge cluster %d into itself", dstID)
	}

	tx, err := pool.BeginTx(ctx, TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin merge transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var dstTenant, srcTenant int64
	var dstFirst, dstLast, srcFirst, srcLast time.Time
	if err := tx.QueryRow(ctx, selectClusterForMergeSQL, dstID).Scan(&dstTenant, &dstFirst, &dstLast); err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("destination cluster %d not found", dstID)
		}
		return nil, fmt.Errorf("load destination cluster: %w", err)
	}
	if err := tx.QueryRow(ctx, selectClusterForMergeSQL, srcID).Scan(&srcTenant, &srcFirst, &srcLast); err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("source cluster %d not found", srcID)
		}
		return nil, fmt.Errorf("load source cluster: %w", err)
	}
	if dstTenant != srcTenant {
		return nil, fmt.Errorf("clusters %d and %d belong to different tenants", dstID, srcID)
	}

	tag, err := tx.Exec(ctx, mergeMoveMembersSQL, dstID, srcID)
	if err != nil {
		return nil, fmt.Errorf("move cluster members: %w", err)
	}

	result := &MergeClustersResult{MovedMembers: tag.RowsAffected()}
	if err := tx.QueryRow(ctx, mergeRefreshTargetSQL, dstID, srcFirst, srcLast).Scan(&result.NewMemberCount); err != nil {
		return nil, fmt.Errorf("refresh destination cluster: %w", err)
	}

	if _, err := tx.Exec(ctx, mergeCombineReadStateSQL, dstID, srcID); err != nil {
		return nil, fmt.Errorf("combine read states: %w", err)
	}
	if _, err := tx.Exec(ctx, mergeDropSourceReadStateSQL, srcID); err != nil {
		return nil, fmt.Errorf("drop source read states: %w", err)
	}

	if _, err := tx.Exec(ctx, mergeRetireSourceSQL, srcID); err != nil {
		return nil, fmt.Errorf("retire source cluster: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit merge transaction: %w", err)
	}
	return result, nil
}
