package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/db"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/fetch"
)

const pollTestFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Wire</title>
<item><title>Rates rise again</title><link>https://news.example.com/rates</link><guid isPermaLink="false">urn:item:1</guid></item>
<item><title>Second story</title><link>https://news.example.com/second</link><guid isPermaLink="false">urn:item:2</guid></item>
</channel></rss>`

type fakeFetcher struct {
	result *fetch.Result
	err    error
}

func (f *fakeFetcher) Fetch(ctx context.Context, feedURL string, etag, lastModified *string) (*fetch.Result, error) {
	return f.result, f.err
}

type failureRecord struct {
	failures  int
	openUntil *time.Time
	cause     string
}

type fakeStore struct {
	upsertResult *upsertOutcome
	upsertErr    error
	assignResult bool

	upsertBatches    [][]storableItem
	assignedItems    []int64
	successCalls     int
	notModifiedCalls int
	parseErrorCalls  int
	failures         []failureRecord
}

func (f *fakeStore) dueSources(ctx context.Context, now time.Time, pollInterval time.Duration, limit int) ([]db.PollableSource, error) {
	return nil, nil
}

func (f *fakeStore) markSuccess(ctx context.Context, sourceID int64, etag, lastModified *string, at time.Time) error {
	f.successCalls++
	return nil
}

func (f *fakeStore) markNotModified(ctx context.Context, sourceID int64, at time.Time) error {
	f.notModifiedCalls++
	return nil
}

func (f *fakeStore) markFailure(ctx context.Context, sourceID int64, at time.Time, failures int, openUntil *time.Time, cause string) error {
	f.failures = append(f.failures, failureRecord{failures: failures, openUntil: openUntil, cause: cause})
	return nil
}

func (f *fakeStore) markParseError(ctx context.Context, sourceID int64, at time.Time, cause string) error {
	f.parseErrorCalls++
	return nil
}

func (f *fakeStore) upsertItems(ctx context.Context, items []storableItem) (*upsertOutcome, error) {
	f.upsertBatches = append(f.upsertBatches, items)
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if f.upsertResult != nil {
		return f.upsertResult, nil
	}
	stored := make([]StoredItem, 0, len(items))
	for i, item := range items {
		stored = append(stored, StoredItem{
			ItemID:      int64(i + 1),
			IsNew:       true,
			Title:       item.Title,
			TitleTokens: item.TitleTokens,
			Simhash:     item.Simhash,
			PublishedAt: item.PublishedAt,
			FetchedAt:   item.FetchedAt,
		})
	}
	return &upsertOutcome{Stored: stored}, nil
}

func (f *fakeStore) assignToCluster(ctx context.Context, tenantID int64, item StoredItem) (bool, error) {
	f.assignedItems = append(f.assignedItems, item.ItemID)
	return f.assignResult, nil
}

func newTestService(store ingestStore, fetcher feedFetcher) *Service {
	return &Service{
		store:   store,
		fetcher: fetcher,
		logger:  zerolog.Nop(),
		opts:    Options{}.withDefaults(),
	}
}

func TestProcessSource_NotModifiedSkipsStorage(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	svc := newTestService(store, &fakeFetcher{result: &fetch.Result{NotModified: true, StatusCode: 304}})

	report, err := svc.ProcessSource(context.Background(), db.PollableSource{SourceID: 1, TenantID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.NotModified {
		t.Fatalf("expected a not-modified report")
	}
	if store.notModifiedCalls != 1 {
		t.Fatalf("expected one not-modified mark, got %d", store.notModifiedCalls)
	}
	if len(store.upsertBatches) != 0 {
		t.Fatalf("304 must not reach the writer, got %d batches", len(store.upsertBatches))
	}
	if store.successCalls != 0 || len(store.failures) != 0 {
		t.Fatalf("304 must not mark success or failure")
	}
}

func TestProcessSource_ParseFailureLeavesBreakerAlone(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	svc := newTestService(store, &fakeFetcher{result: &fetch.Result{
		Body:       []byte("<html><body>not a feed</body></html>"),
		StatusCode: 200,
	}})

	report, err := svc.ProcessSource(context.Background(), db.PollableSource{SourceID: 1, TenantID: 1, ConsecutiveFailures: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Err == nil {
		t.Fatalf("expected the parse error on the report")
	}
	if store.parseErrorCalls != 1 {
		t.Fatalf("expected one parse-error mark, got %d", store.parseErrorCalls)
	}
	if len(store.failures) != 0 {
		t.Fatalf("a parse failure must not feed the circuit breaker, got %+v", store.failures)
	}
}

func TestProcessSource_FetchFailureFeedsBreaker(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	svc := newTestService(store, &fakeFetcher{err: errors.New("connection refused")})

	report, err := svc.ProcessSource(context.Background(), db.PollableSource{SourceID: 1, TenantID: 1, ConsecutiveFailures: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Err == nil {
		t.Fatalf("expected the fetch error on the report")
	}
	if len(store.failures) != 1 {
		t.Fatalf("expected one failure mark, got %d", len(store.failures))
	}
	if store.failures[0].failures != 3 {
		t.Fatalf("streak should increment to 3, got %d", store.failures[0].failures)
	}
	if store.failures[0].openUntil == nil {
		t.Fatalf("third consecutive failure should open the circuit")
	}
}

func TestProcessSource_DuplicateItemsAreNotReclustered(t *testing.T) {
	t.Parallel()

	store := &fakeStore{upsertResult: &upsertOutcome{Stored: []StoredItem{
		{ItemID: 10, IsNew: false, Title: "Rates rise again"},
		{ItemID: 11, IsNew: true, Title: "Second story"},
	}}}
	svc := newTestService(store, &fakeFetcher{result: &fetch.Result{
		Body:       []byte(pollTestFeed),
		StatusCode: 200,
	}})

	report, err := svc.ProcessSource(context.Background(), db.PollableSource{SourceID: 1, TenantID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.ItemsNew != 1 {
		t.Fatalf("only the new row counts, got %d", report.ItemsNew)
	}
	if len(store.assignedItems) != 1 || store.assignedItems[0] != 11 {
		t.Fatalf("only the new row is clustered, got %v", store.assignedItems)
	}
	if store.successCalls != 1 {
		t.Fatalf("expected a success mark, got %d", store.successCalls)
	}
}

func TestProcessSource_RowFailuresSkipAndContinue(t *testing.T) {
	t.Parallel()

	store := &fakeStore{upsertResult: &upsertOutcome{
		Stored: []StoredItem{{ItemID: 11, IsNew: true, Title: "Second story"}},
		Failed: []failedItem{{Title: "Rates rise again", Err: fmt.Errorf("value too long")}},
	}}
	svc := newTestService(store, &fakeFetcher{result: &fetch.Result{
		Body:       []byte(pollTestFeed),
		StatusCode: 200,
	}})

	report, err := svc.ProcessSource(context.Background(), db.PollableSource{SourceID: 1, TenantID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.ItemsFailed != 1 {
		t.Fatalf("expected one failed row, got %d", report.ItemsFailed)
	}
	if report.ItemsNew != 1 {
		t.Fatalf("surviving row still lands, got %d new", report.ItemsNew)
	}
	if store.successCalls != 1 {
		t.Fatalf("row failures must not fail the poll, success marks: %d", store.successCalls)
	}
	if len(store.failures) != 0 {
		t.Fatalf("row failures must not feed the circuit breaker")
	}
}

type fakeSummarizer struct {
	calls       []int64
	publishedAt []*time.Time
}

func (f *fakeSummarizer) SummarizeItem(ctx context.Context, tenantID, itemID int64, title, content string, publishedAt *time.Time) error {
	f.calls = append(f.calls, itemID)
	f.publishedAt = append(f.publishedAt, publishedAt)
	return nil
}

func TestProcessSource_SummarizerSeesNewItemsOnly(t *testing.T) {
	t.Parallel()

	published := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	store := &fakeStore{upsertResult: &upsertOutcome{Stored: []StoredItem{
		{ItemID: 10, IsNew: false, Title: "Rates rise again"},
		{ItemID: 11, IsNew: true, Title: "Second story", PublishedAt: &published},
	}}}
	svc := newTestService(store, &fakeFetcher{result: &fetch.Result{
		Body:       []byte(pollTestFeed),
		StatusCode: 200,
	}})
	summarizer := &fakeSummarizer{}
	svc.SetSummarizer(summarizer)

	if _, err := svc.ProcessSource(context.Background(), db.PollableSource{SourceID: 1, TenantID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summarizer.calls) != 1 || summarizer.calls[0] != 11 {
		t.Fatalf("summarizer should see only new items, got %v", summarizer.calls)
	}
	if summarizer.publishedAt[0] == nil || !summarizer.publishedAt[0].Equal(published) {
		t.Fatalf("summarizer should receive the publication time, got %v", summarizer.publishedAt[0])
	}
}
