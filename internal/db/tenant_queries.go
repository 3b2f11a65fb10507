package db

import (
	"context"
	"fmt"
	"strings"
)

const selectTenantBySlugSQL = `
SELECT tenant_id, tenant_uuid, slug, name
FROM rollup.tenants
WHERE slug = $1`

// TenantBySlug resolves a tenant slug to its row. Returns ErrNoRows through
// the scan when the slug is unknown.
func TenantBySlug(ctx context.Context, pool *Pool, slug string) (*Tenant, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("tenant slug is empty")
	}

	var t Tenant
	err := pool.QueryRow(ctx, selectTenantBySlugSQL, slug).Scan(&t.TenantID, &t.TenantUUID, &t.Slug, &t.Name)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const insertTenantSQL = `
INSERT INTO rollup.tenants (slug, name)
VALUES ($1, $2)
ON CONFLICT (slug) DO NOTHING
RETURNING tenant_id`

// EnsureTenant creates a tenant if the slug is new and returns its id either
// way.
func EnsureTenant(ctx context.Context, pool *Pool, slug, name string) (int64, error) {
	if pool == nil {
		return 0, fmt.Errorf("database pool is nil")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return 0, fmt.Errorf("tenant slug is empty")
	}
	if strings.TrimSpace(name) == "" {
		name = slug
	}

	var tenantID int64
	err := pool.QueryRow(ctx, insertTenantSQL, slug, name).Scan(&tenantID)
	if err == nil {
		return tenantID, nil
	}
	if !IsNoRows(err) {
		return 0, fmt.Errorf("insert tenant: %w", err)
	}

	existing, err := TenantBySlug(ctx, pool, slug)
	if err != nil {
		return 0, fmt.Errorf("load existing tenant %q: %w", slug, err)
	}
	return existing.TenantID, nil
}

const listTenantsSQL = `
SELECT tenant_id, tenant_uuid, slug, name, created_at
FROM rollup.tenants
ORDER BY tenant_id`

// ListTenants returns all tenants, oldest first.
func ListTenants(ctx context.Context, pool *Pool) ([]Tenant, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	rows, err := pool.Query(ctx, listTenantsSQL)
	if err != nil {
		return nil, fmt.Errorf("select tenants: %w", err)
	}
	defer rows.Close()

	var out []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.TenantID, &t.TenantUUID, &t.Slug, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenants: %w", err)
	}
	return out, nil
}

// TenantStats is the aggregate snapshot behind `rollup health` and the stats
// endpoint.
type TenantStats struct {
	TenantID           int64
	Sources            int64
	MutedSources       int64
	OpenCircuits       int64
	Items              int64
	Clusters           int64
	UndigestedClusters int64
	Digests            int64
}

const selectTenantStatsSQL = `
SELECT
	(SELECT COUNT(*) FROM rollup.sources WHERE tenant_id = $1 AND deleted_at IS NULL),
	(SELECT COUNT(*) FROM rollup.sources WHERE tenant_id = $1 AND deleted_at IS NULL AND muted),
	(SELECT COUNT(*) FROM rollup.sources WHERE tenant_id = $1 AND deleted_at IS NULL AND circuit_open_until > now()),
	(SELECT COUNT(*) FROM rollup.items WHERE tenant_id = $1 AND deleted_at IS NULL),
	(SELECT COUNT(*) FROM rollup.clusters WHERE tenant_id = $1 AND deleted_at IS NULL),
	(SELECT COUNT(*) FROM rollup.clusters WHERE tenant_id = $1 AND deleted_at IS NULL AND digested_at IS NULL),
	(SELECT COUNT(*) FROM rollup.digests WHERE tenant_id = $1)`

// StatsForTenant collects row counts for one tenant in a single round trip.
func StatsForTenant(ctx context.Context, pool *Pool, tenantID int64) (*TenantStats, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	stats := TenantStats{TenantID: tenantID}
	err := pool.QueryRow(ctx, selectTenantStatsSQL, tenantID).Scan(
		&stats.Sources,
		&stats.MutedSources,
		&stats.OpenCircuits,
		&stats.Items,
		&stats.Clusters,
		&stats.UndigestedClusters,
		&stats.Digests,
	)
	if err != nil {
		return nil, fmt.Errorf("select tenant stats: %w", err)
	}
	return &stats, nil
}
