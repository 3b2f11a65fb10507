package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// storableItem is a parsed entry plus its derived columns, ready to insert.
type storableItem struct {
	TenantID     int64
	SourceID     int64
	GUID         *string
	CanonicalURL string
	Title        string
	Author       *string
	Summary      string
	ContentText  string
	ImageURL     *string
	Language     string
	PublishedAt  *time.Time
	FetchedAt    time.Time
	Simhash      uint64
	TokenCount   int

	TitleTokens []string
}

// StoredItem is the upsert outcome the clusterer consumes. IsNew is true only
// for rows created by this poll; refreshed duplicates keep their cluster.
type StoredItem struct {
	ItemID      int64
	IsNew       bool
	Title       string
	ContentText string
	TitleTokens []string
	Simhash     uint64
	PublishedAt *time.Time
	FetchedAt   time.Time
}

// failedItem is one entry that could not be stored.
type failedItem struct {
	Title string
	Err   error
}

// upsertOutcome splits a batch into what landed and what did not. A row
// failure skips that entry and continues the batch; it never fails the
// source poll.
type upsertOutcome struct {
	Stored []StoredItem
	Failed []failedItem
}

const itemInsertColumns = `tenant_id, source_id, guid, canonical_url, title, author, summary, content_text, image_url, language, published_at, fetched_at, simhash, token_count`

const itemConflictByGUID = `
ON CONFLICT (tenant_id, source_id, guid) WHERE guid IS NOT NULL AND deleted_at IS NULL
DO UPDATE SET
	canonical_url = EXCLUDED.canonical_url,
	title = EXCLUDED.title,
	author = EXCLUDED.author,
	summary = EXCLUDED.summary,
	content_text = EXCLUDED.content_text,
	image_url = EXCLUDED.image_url,
	language = EXCLUDED.language,
	published_at = COALESCE(EXCLUDED.published_at, rollup.items.published_at),
	simhash = EXCLUDED.simhash,
	token_count = EXCLUDED.token_count,
	updated_at = now()`

const itemConflictByURL = `
ON CONFLICT (tenant_id, source_id, canonical_url, published_at) WHERE guid IS NULL AND deleted_at IS NULL
DO UPDATE SET
	title = EXCLUDED.title,
	author = EXCLUDED.author,
	summary = EXCLUDED.summary,
	content_text = EXCLUDED.content_text,
	image_url = EXCLUDED.image_url,
	language = EXCLUDED.language,
	simhash = EXCLUDED.simhash,
	token_count = EXCLUDED.token_count,
	updated_at = now()`

// upsertItems writes a batch of items. Entries with a guid key on
// (tenant, source, guid); the rest key on (tenant, source, canonical_url,
// published_at). Each group goes in as one multi-row statement first; if that
// fails the group falls back to individual upserts so one poisonous row
// cannot sink its siblings. Rows that still fail land in Failed.
func (d *dbStore) upsertItems(ctx context.Context, items []storableItem) (*upsertOutcome, error) {
	outcome := &upsertOutcome{}

	var withGUID, withoutGUID []storableItem
	for _, item := range items {
		switch {
		case item.GUID != nil:
			withGUID = append(withGUID, item)
		case item.CanonicalURL != "":
			withoutGUID = append(withoutGUID, item)
		default:
			outcome.Failed = append(outcome.Failed, failedItem{
				Title: item.Title,
				Err:   fmt.Errorf("item has no guid and no url"),
			})
		}
	}

	for _, group := range []struct {
		items    []storableItem
		conflict string
	}{
		{withGUID, itemConflictByGUID},
		{withoutGUID, itemConflictByURL},
	} {
		if len(group.items) == 0 {
			continue
		}
		d.upsertGroup(ctx, group.items, group.conflict, outcome)
	}
	return outcome, nil
}

func (d *dbStore) upsertGroup(ctx context.Context, items []storableItem, conflict string, outcome *upsertOutcome) {
	stored, err := d.execUpsert(ctx, items, conflict)
	if err == nil {
		outcome.Stored = append(outcome.Stored, stored...)
		return
	}

	d.logger.Warn().Err(err).
		Int("batch_size", len(items)).
		Msg("batch upsert failed, retrying items individually")

	for _, item := range items {
		single, singleErr := d.execUpsert(ctx, []storableItem{item}, conflict)
		if singleErr != nil {
			outcome.Failed = append(outcome.Failed, failedItem{Title: item.Title, Err: singleErr})
			continue
		}
		outcome.Stored = append(outcome.Stored, single...)
	}
}

func (d *dbStore) execUpsert(ctx context.Context, items []storableItem, conflict string) ([]StoredItem, error) {
	var (
		placeholders []string
		args         []any
	)
	for i, item := range items {
		base := i * 14
		marks := make([]string, 14)
		for j := range marks {
			marks[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(marks, ", ")+")")
		args = append(args,
			item.TenantID,
			item.SourceID,
			item.GUID,
			item.CanonicalURL,
			item.Title,
			item.Author,
			item.Summary,
			item.ContentText,
			item.ImageURL,
			item.Language,
			item.PublishedAt,
			item.FetchedAt,
			int64(item.Simhash),
			item.TokenCount,
		)
	}

	query := fmt.Sprintf(
		"INSERT INTO rollup.items (%s)\nVALUES %s\n%s\nRETURNING item_id, (xmax = 0) AS is_new",
		itemInsertColumns,
		strings.Join(placeholders, ",\n       "),
		conflict,
	)

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("upsert %d items: %w", len(items), err)
	}
	defer rows.Close()

	stored := make([]StoredItem, 0, len(items))
	idx := 0
	for rows.Next() {
		var itemID int64
		var isNew bool
		if err := rows.Scan(&itemID, &isNew); err != nil {
			return nil, fmt.Errorf("scan upsert result: %w", err)
		}
		if idx >= len(items) {
			return nil, fmt.Errorf("upsert returned more rows than inserted")
		}
		src := items[idx]
		stored = append(stored, StoredItem{
			ItemID:      itemID,
			IsNew:       isNew,
			Title:       src.Title,
			ContentText: src.ContentText,
			TitleTokens: src.TitleTokens,
			Simhash:     src.Simhash,
			PublishedAt: src.PublishedAt,
			FetchedAt:   src.FetchedAt,
		})
		idx++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate upsert results: %w", err)
	}
	return stored, nil
}
