package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/db"
)

// dbStore is the production ingestStore on the shared Postgres pool.
type dbStore struct {
	pool   *db.Pool
	logger zerolog.Logger
	opts   Options

	// tenantLocks serializes cluster assignment per tenant so greedy
	// matching never races with itself.
	tenantLocksMu sync.Mutex
	tenantLocks   map[int64]*sync.Mutex
}

func newDBStore(pool *db.Pool, logger zerolog.Logger, opts Options) *dbStore {
	return &dbStore{
		pool:        pool,
		logger:      logger,
		opts:        opts,
		tenantLocks: make(map[int64]*sync.Mutex),
	}
}

func (d *dbStore) dueSources(ctx context.Context, now time.Time, pollInterval time.Duration, limit int) ([]db.PollableSource, error) {
	return db.DueSources(ctx, d.pool, now, pollInterval, limit)
}

func (d *dbStore) markSuccess(ctx context.Context, sourceID int64, etag, lastModified *string, at time.Time) error {
	return db.MarkSourceSuccess(ctx, d.pool, sourceID, etag, lastModified, at)
}

func (d *dbStore) markNotModified(ctx context.Context, sourceID int64, at time.Time) error {
	return db.MarkSourceNotModified(ctx, d.pool, sourceID, at)
}

func (d *dbStore) markFailure(ctx context.Context, sourceID int64, at time.Time, failures int, openUntil *time.Time, cause string) error {
	return db.MarkSourceFailure(ctx, d.pool, sourceID, at, failures, openUntil, cause)
}

func (d *dbStore) markParseError(ctx context.Context, sourceID int64, at time.Time, cause string) error {
	return db.MarkSourceParseError(ctx, d.pool, sourceID, at, cause)
}

func (d *dbStore) tenantLock(tenantID int64) *sync.Mutex {
	d.tenantLocksMu.Lock()
	defer d.tenantLocksMu.Unlock()
	lock, ok := d.tenantLocks[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		d.tenantLocks[tenantID] = lock
	}
	return lock
}
