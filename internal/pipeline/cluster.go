package pipeline

import (
	"context"
	"fmt"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/db"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/features"
)

// clusterCandidate is a live cluster's matching surface: its representative
// item's fingerprint and title.
type clusterCandidate struct {
	ClusterID int64
	Simhash   uint64
	Title     string
}

// matchResult records why an item joined a cluster.
type matchResult struct {
	ClusterID int64
	Hamming   int
	Jaccard   float64
}

// bestClusterMatch picks the candidate with the lowest Hamming distance whose
// Jaccard overlap also clears the floor; Jaccard breaks distance ties. Both
// signals must agree or the item starts a new cluster.
func bestClusterMatch(item StoredItem, candidates []clusterCandidate, maxHamming int, minJaccard float64) *matchResult {
	var best *matchResult
	for _, candidate := range candidates {
		hamming := features.HammingDistance(item.Simhash, candidate.Simhash)
		if hamming > maxHamming {
			continue
		}
		jaccard := features.JaccardSimilarity(item.TitleTokens, features.Tokenize(candidate.Title))
		if jaccard < minJaccard {
			continue
		}
		if best == nil || hamming < best.Hamming || (hamming == best.Hamming && jaccard > best.Jaccard) {
			best = &matchResult{ClusterID: candidate.ClusterID, Hamming: hamming, Jaccard: jaccard}
		}
	}
	return best
}

const selectCandidateClustersSQL = `
SELECT c.cluster_id, i.simhash, i.title
FROM rollup.clusters c
JOIN rollup.items i ON i.item_id = c.representative_item_id
WHERE c.tenant_id = $1
  AND c.deleted_at IS NULL
  AND c.last_seen_at >= $2
  AND i.simhash IS NOT NULL
ORDER BY c.last_seen_at DESC
LIMIT $3`

const createClusterSQL = `
INSERT INTO rollup.clusters (tenant_id, representative_item_id, title, first_seen_at, last_seen_at, member_count)
VALUES ($1, $2, $3, $4, $4, 0)
RETURNING cluster_id`

const insertClusterMemberSQL = `
INSERT INTO rollup.cluster_members (cluster_id, item_id, hamming_distance, jaccard_similarity, matched_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (item_id) DO NOTHING`

// refreshClusterSQL recomputes the aggregate columns after membership
// changes. The representative is the earliest-published member; source
// weight then item id break ties.
const refreshClusterSQL = `
WITH rep AS (
	SELECT i.item_id, i.title
	FROM rollup.cluster_members m
	JOIN rollup.items i ON i.item_id = m.item_id
	JOIN rollup.sources src ON src.source_id = i.source_id
	WHERE m.cluster_id = $1 AND i.deleted_at IS NULL
	ORDER BY i.published_at ASC NULLS LAST, src.weight DESC, i.item_id ASC
	LIMIT 1
)
UPDATE rollup.clusters c
SET representative_item_id = rep.item_id,
    title = rep.title,
    member_count = (SELECT COUNT(*) FROM rollup.cluster_members WHERE cluster_id = $1),
    last_seen_at = GREATEST(c.last_seen_at, $2),
    updated_at = now()
FROM rep
WHERE c.cluster_id = $1`

// assignToCluster places one freshly inserted item into its cluster: the
// best recency-window match when both similarity signals agree, a brand new
// cluster otherwise. Assignment for a tenant is serialized so concurrent
// source polls cannot both open a cluster for the same story.
func (d *dbStore) assignToCluster(ctx context.Context, tenantID int64, item StoredItem) (bool, error) {
	lock := d.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := d.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin cluster transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	windowStart := item.FetchedAt.Add(-d.opts.ClusterWindow)
	rows, err := tx.Query(ctx, selectCandidateClustersSQL, tenantID, windowStart, d.opts.ClusterCandidates)
	if err != nil {
		return false, fmt.Errorf("select candidate clusters: %w", err)
	}

	var candidates []clusterCandidate
	for rows.Next() {
		var c clusterCandidate
		var simhash int64
		if err := rows.Scan(&c.ClusterID, &simhash, &c.Title); err != nil {
			rows.Close()
			return false, fmt.Errorf("scan candidate cluster: %w", err)
		}
		c.Simhash = uint64(simhash)
		candidates = append(candidates, c)
	}
	closeErr := rows.Err()
	rows.Close()
	if closeErr != nil {
		return false, fmt.Errorf("iterate candidate clusters: %w", closeErr)
	}

	match := bestClusterMatch(item, candidates, d.opts.MaxHamming, d.opts.MinJaccard)

	var clusterID int64
	matched := match != nil
	if matched {
		clusterID = match.ClusterID
		if _, err := tx.Exec(ctx, insertClusterMemberSQL, clusterID, item.ItemID, match.Hamming, match.Jaccard, item.FetchedAt); err != nil {
			return false, fmt.Errorf("insert cluster member: %w", err)
		}
	} else {
		if err := tx.QueryRow(ctx, createClusterSQL, tenantID, item.ItemID, item.Title, item.FetchedAt).Scan(&clusterID); err != nil {
			return false, fmt.Errorf("create cluster: %w", err)
		}
		if _, err := tx.Exec(ctx, insertClusterMemberSQL, clusterID, item.ItemID, nil, nil, item.FetchedAt); err != nil {
			return false, fmt.Errorf("insert founding cluster member: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, refreshClusterSQL, clusterID, item.FetchedAt); err != nil {
		return false, fmt.Errorf("refresh cluster aggregate: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit cluster transaction: %w", err)
	}
	return matched, nil
}
