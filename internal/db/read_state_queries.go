package db

import (
	"context"
	"fmt"
)

// ReadMarkers is a partial update of a cluster's read state: nil fields keep
// their stored value, absent rows start from all-false.
type ReadMarkers struct {
	Read          *bool
	Saved         *bool
	NotInterested *bool
}

const upsertReadStateSQL = `
INSERT INTO rollup.read_states (tenant_id, cluster_id, read, saved, not_interested, updated_at)
VALUES ($1, $2, COALESCE($3, false), COALESCE($4, false), COALESCE($5, false), now())
ON CONFLICT (tenant_id, cluster_id) DO UPDATE
SET read = COALESCE($3, rollup.read_states.read),
    saved = COALESCE($4, rollup.read_states.saved),
    not_interested = COALESCE($5, rollup.read_states.not_interested),
    updated_at = now()`

// SetReadMarkers upserts the tenant's markers for one cluster and returns the
// resulting state.
func SetReadMarkers(ctx context.Context, pool *Pool, tenantID, clusterID int64, markers ReadMarkers) (*ReadState, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	if _, err := pool.Exec(ctx, upsertReadStateSQL, tenantID, clusterID, markers.Read, markers.Saved, markers.NotInterested); err != nil {
		return nil, fmt.Errorf("upsert read state for cluster %d: %w", clusterID, err)
	}
	return ReadStateFor(ctx, pool, tenantID, clusterID)
}

const selectReadStateSQL = `
SELECT read, saved, not_interested, updated_at
FROM rollup.read_states
WHERE tenant_id = $1 AND cluster_id = $2`

// ReadStateFor loads the markers for one cluster. A missing row comes back as
// the all-false state, not an error.
func ReadStateFor(ctx context.Context, pool *Pool, tenantID, clusterID int64) (*ReadState, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	state := ReadState{TenantID: tenantID, ClusterID: clusterID}
	err := pool.QueryRow(ctx, selectReadStateSQL, tenantID, clusterID).Scan(&state.Read, &state.Saved, &state.NotInterested, &state.UpdatedAt)
	if IsNoRows(err) {
		return &state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select read state for cluster %d: %w", clusterID, err)
	}
	return &state, nil
}

const selectClusterTenantSQL = `
SELECT tenant_id
FROM rollup.clusters
WHERE cluster_id = $1 AND deleted_at IS NULL`

// ClusterOwnedBy reports whether the cluster exists and belongs to the tenant.
func ClusterOwnedBy(ctx context.Context, pool *Pool, tenantID, clusterID int64) (bool, error) {
	if pool == nil {
		return false, fmt.Errorf("database pool is nil")
	}
	var owner int64
	err := pool.QueryRow(ctx, selectClusterTenantSQL, clusterID).Scan(&owner)
	if IsNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select cluster %d owner: %w", clusterID, err)
	}
	return owner == tenantID, nil
}
