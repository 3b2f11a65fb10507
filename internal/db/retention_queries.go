package db

import (
	"context"
	"fmt"
	"time"
)

// RetentionReport summarizes what a retention pass removed (or would remove
// in dry-run).
type RetentionReport struct {
	TenantID    int64
	Cutoff      time.Time
	Items       int64
	Clusters    int64
	AIUsageRows int64
	DryRun      bool
}

const countExpiredItemsSQL = `
SELECT COUNT(*)
FROM rollup.items
WHERE tenant_id = $1 AND deleted_at IS NULL AND fetched_at < $2`

const softDeleteExpiredItemsSQL = `
UPDATE rollup.items
SET deleted_at = now(), updated_at = now()
WHERE tenant_id = $1 AND deleted_at IS NULL AND fetched_at < $2`

const countEmptyClustersSQL = `
SELECT COUNT(*)
FROM rollup.clusters c
WHERE c.tenant_id = $1 AND c.deleted_at IS NULL
  AND NOT EXISTS (
	SELECT 1 FROM rollup.cluster_members m
	JOIN rollup.items i ON i.item_id = m.item_id
	WHERE m.cluster_id = c.cluster_id AND i.deleted_at IS NULL
  )`

const retireEmptyClustersSQL = `
UPDATE rollup.clusters c
SET status = 'expired', deleted_at = now(), updated_at = now()
WHERE c.tenant_id = $1 AND c.deleted_at IS NULL
  AND NOT EXISTS (
	SELECT 1 FROM rollup.cluster_members m
	JOIN rollup.items i ON i.item_id = m.item_id
	WHERE m.cluster_id = c.cluster_id AND i.deleted_at IS NULL
  )`

const countExpiredAIUsageSQL = `
SELECT COUNT(*)
FROM rollup.ai_usage
WHERE tenant_id = $1 AND usage_day < $2`

const deleteExpiredAIUsageSQL = `
DELETE FROM rollup.ai_usage
WHERE tenant_id = $1 AND usage_day < $2`

// RunRetention soft-deletes items fetched before cutoff, retires clusters
// whose members are all gone, and drops old usage accounting. With dryRun the
// report carries the counts and nothing is touched.
func RunRetention(ctx context.Context, pool *Pool, tenantID int64, cutoff time.Time, dryRun bool) (*RetentionReport, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	report := &RetentionReport{TenantID: tenantID, Cutoff: cutoff, DryRun: dryRun}

	if dryRun {
		if err := pool.QueryRow(ctx, countExpiredItemsSQL, tenantID, cutoff).Scan(&report.Items); err != nil {
			return nil, fmt.Errorf("count expired items: %w", err)
		}
		if err := pool.QueryRow(ctx, countEmptyClustersSQL, tenantID).Scan(&report.Clusters); err != nil {
			return nil, fmt.Errorf("count empty clusters: %w", err)
		}
		if err := pool.QueryRow(ctx, countExpiredAIUsageSQL, tenantID, cutoff).Scan(&report.AIUsageRows); err != nil {
			return nil, fmt.Errorf("count expired ai usage: %w", err)
		}
		return report, nil
	}

	tx, err := pool.BeginTx(ctx, TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin retention transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, softDeleteExpiredItemsSQL, tenantID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("soft delete expired items: %w", err)
	}
	report.Items = tag.RowsAffected()

	tag, err = tx.Exec(ctx, retireEmptyClustersSQL, tenantID)
	if err != nil {
		return nil, fmt.Errorf("retire empty clusters: %w", err)
	}
	report.Clusters = tag.RowsAffected()

	tag, err = tx.Exec(ctx, deleteExpiredAIUsageSQL, tenantID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("delete expired ai usage: %w", err)
	}
	report.AIUsageRows = tag.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit retention transaction: %w", err)
	}
	return report, nil
}
