// Package summarize produces optional AI one-paragraph summaries for stored
// items. It is strictly best-effort: a model outage or an exhausted budget
// degrades to no summary, never to a pipeline failure.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/db"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/globaltime"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/settings"
)

// Completion is one model call's output plus its token accounting.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
}

// Completer abstracts the model backend so tests can stub it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
	Model() string
}

const maxPromptContentChars = 4000

// Service summarizes items for tenants that opted in, within their daily
// token budget.
type Service struct {
	pool      *db.Pool
	completer Completer
	logger    zerolog.Logger
}

// NewService builds a summarize service. A nil completer produces a service
// whose SummarizeItem is a no-op, for deployments without a model host.
func NewService(pool *db.Pool, completer Completer, logger zerolog.Logger) (*Service, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	return &Service{pool: pool, completer: completer, logger: logger}, nil
}

const sumTokensForDaySQL = `
SELECT COALESCE(SUM(prompt_tokens + completion_tokens), 0)
FROM rollup.ai_usage
WHERE tenant_id = $1 AND usage_day = $2`

// budgetRemaining checks the tenant's spend for today against its budget.
// Errors reading usage fail open: a broken accounting table must not silence
// summaries.
func (s *Service) budgetRemaining(ctx context.Context, tenantID int64, day time.Time) bool {
	budget, err := settings.DailyTokenBudget(ctx, s.pool, tenantID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("tenant_id", tenantID).Msg("budget lookup failed, allowing summary")
		return true
	}

	var spent int64
	if err := s.pool.QueryRow(ctx, sumTokensForDaySQL, tenantID, day.Format("2006-01-02")).Scan(&spent); err != nil {
		s.logger.Warn().Err(err).Int64("tenant_id", tenantID).Msg("usage lookup failed, allowing summary")
		return true
	}
	return spent < int64(budget)
}

const insertAIUsageSQL = `
INSERT INTO rollup.ai_usage (tenant_id, model, prompt_tokens, completion_tokens, latency_ms, usage_day)
VALUES ($1, $2, $3, $4, $5, $6)`

const updateItemSummarySQL = `
UPDATE rollup.items
SET ai_summary = $2, ai_summary_model = $3, updated_at = now()
WHERE item_id = $1 AND deleted_at IS NULL`

// SummarizeItem generates and stores a summary for one item. Every early
// return is silent: mode off, stale item in progressive mode, no completer,
// budget spent, and model failure all leave the item without a summary.
// publishedAt is the item's publication time, nil when the feed carried none.
func (s *Service) SummarizeItem(ctx context.Context, tenantID, itemID int64, title, content string, publishedAt *time.Time) error {
	if s.completer == nil {
		return nil
	}

	mode, err := settings.AIMode(ctx, s.pool, tenantID)
	if err != nil {
		return err
	}
	if mode == settings.AIModeOff {
		return nil
	}
	if mode == settings.AIModeProgressive {
		hours, err := settings.ProgressiveSummaryHours(ctx, s.pool, tenantID)
		if err != nil {
			return err
		}
		if !withinProgressiveWindow(publishedAt, globaltime.UTC(), hours) {
			s.logger.Debug().Int64("item_id", itemID).Msg("item outside progressive window, skipping summary")
			return nil
		}
	}

	today := globaltime.StartOfDayUTC()
	if !s.budgetRemaining(ctx, tenantID, today) {
		s.logger.Debug().Int64("tenant_id", tenantID).Msg("daily token budget spent, skipping summary")
		return nil
	}

	completion, err := s.completer.Complete(ctx, buildPrompt(title, content))
	if err != nil {
		s.logger.Warn().Err(err).Int64("item_id", itemID).Msg("summary generation failed")
		return nil
	}

	summary := strings.TrimSpace(completion.Text)
	if summary == "" {
		return nil
	}

	latencyMS := int(completion.Latency.Milliseconds())
	if _, err := s.pool.Exec(ctx, insertAIUsageSQL, tenantID, s.completer.Model(), completion.PromptTokens, completion.CompletionTokens, latencyMS, today.Format("2006-01-02")); err != nil {
		return fmt.Errorf("record ai usage: %w", err)
	}

	model := s.completer.Model()
	if _, err := s.pool.Exec(ctx, updateItemSummarySQL, itemID, summary, model); err != nil {
		return fmt.Errorf("store summary for item %d: %w", itemID, err)
	}
	return nil
}

// withinProgressiveWindow reports whether an item is fresh enough to
// summarize in progressive mode. Undated items count as fresh; the feed just
// delivered them.
func withinProgressiveWindow(publishedAt *time.Time, now time.Time, hours int) bool {
	if publishedAt == nil {
		return true
	}
	return now.Sub(*publishedAt) <= time.Duration(hours)*time.Hour
}

func buildPrompt(title, content string) string {
	trimmed := content
	if len(trimmed) > maxPromptContentChars {
		trimmed = trimmed[:maxPromptContentChars]
	}
	return fmt.Sprintf(`Summarize the following article in one short paragraph of plain prose. No preamble, no bullet points.

Title: %s

Content: %s`, title, trimmed)
}
