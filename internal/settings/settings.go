// Package settings is the per-tenant key/value store behind operator knobs
// that must not require a redeploy: AI mode, digest thresholds, retention.
// Every getter takes the deployment-wide default and returns it when the
// tenant has no override.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/db"
)

// Well-known keys.
const (
	KeyAIMode                  = "ai_mode"
	KeyProgressiveSummaryHours = "progressive_summary_hours"
	KeyDailyTokenBudget        = "ai_daily_token_budget"
	KeyDigestBacklogThreshold  = "digest_backlog_threshold"
	KeyDigestAwayHours         = "digest_away_hours"
	KeyRetentionDays           = "retention_days"
)

// AI modes. Off is the default; "all" summarizes every new item;
// "progressive" only summarizes items published within the progressive
// window, so a backfilled archive does not burn the budget.
const (
	AIModeOff         = "off"
	AIModeAll         = "all"
	AIModeProgressive = "progressive"
)

// Defaults for tenants with no override and no deployment value.
const (
	DefaultDailyTokenBudget        = 200_000
	DefaultProgressiveSummaryHours = 24
)

const selectSettingSQL = `
SELECT value
FROM rollup.tenant_settings
WHERE tenant_id = $1 AND key = $2`

const upsertSettingSQL = `
INSERT INTO rollup.tenant_settings (tenant_id, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (tenant_id, key) DO UPDATE
SET value = EXCLUDED.value, updated_at = now()`

// Get returns the raw value for a key and whether it was set.
func Get(ctx context.Context, pool *db.Pool, tenantID int64, key string) (string, bool, error) {
	if pool == nil {
		return "", false, fmt.Errorf("database pool is nil")
	}
	var value string
	err := pool.QueryRow(ctx, selectSettingSQL, tenantID, key).Scan(&value)
	if db.IsNoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select setting %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores a value for a key, overwriting any previous one.
func Set(ctx context.Context, pool *db.Pool, tenantID int64, key, value string) error {
	if pool == nil {
		return fmt.Errorf("database pool is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("setting key is empty")
	}
	if _, err := pool.Exec(ctx, upsertSettingSQL, tenantID, key, value); err != nil {
		return fmt.Errorf("upsert setting %q: %w", key, err)
	}
	return nil
}

// AIMode returns the tenant's summarization mode. Unset or unrecognized
// values mean off.
func AIMode(ctx context.Context, pool *db.Pool, tenantID int64) (string, error) {
	value, ok, err := Get(ctx, pool, tenantID, KeyAIMode)
	if err != nil || !ok {
		return AIModeOff, err
	}
	switch mode := strings.ToLower(strings.TrimSpace(value)); mode {
	case AIModeAll, AIModeProgressive:
		return mode, nil
	default:
		return AIModeOff, nil
	}
}

// ProgressiveSummaryHours is the recency window for progressive mode.
func ProgressiveSummaryHours(ctx context.Context, pool *db.Pool, tenantID int64) (int, error) {
	return positiveIntSetting(ctx, pool, tenantID, KeyProgressiveSummaryHours, DefaultProgressiveSummaryHours)
}

// DailyTokenBudget returns the tenant's summarization budget in tokens per
// day.
func DailyTokenBudget(ctx context.Context, pool *db.Pool, tenantID int64) (int, error) {
	return positiveIntSetting(ctx, pool, tenantID, KeyDailyTokenBudget, DefaultDailyTokenBudget)
}

// DigestBacklogThreshold returns the tenant's backlog trigger size, falling
// back to the deployment default.
func DigestBacklogThreshold(ctx context.Context, pool *db.Pool, tenantID int64, fallback int) (int, error) {
	return positiveIntSetting(ctx, pool, tenantID, KeyDigestBacklogThreshold, fallback)
}

// DigestAwayHours returns the tenant's away trigger window in hours, falling
// back to the deployment default.
func DigestAwayHours(ctx context.Context, pool *db.Pool, tenantID int64, fallback int) (int, error) {
	return positiveIntSetting(ctx, pool, tenantID, KeyDigestAwayHours, fallback)
}

// RetentionDays returns the tenant's retention window, falling back to the
// deployment default.
func RetentionDays(ctx context.Context, pool *db.Pool, tenantID int64, fallback int) (int, error) {
	return positiveIntSetting(ctx, pool, tenantID, KeyRetentionDays, fallback)
}

func positiveIntSetting(ctx context.Context, pool *db.Pool, tenantID int64, key string, fallback int) (int, error) {
	value, ok, err := Get(ctx, pool, tenantID, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return fallback, nil
	}
	parsed, parseErr := strconv.Atoi(strings.TrimSpace(value))
	if parseErr != nil || parsed <= 0 {
		return fallback, nil
	}
	return parsed, nil
}

// ParseBool accepts the spellings operators actually type.
func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on", "enabled":
		return true
	default:
		return false
	}
}
