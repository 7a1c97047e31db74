package postgres

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/recordkit/recordkit/pkg/record"
	"github.com/recordkit/recordkit/pkg/storage"
)

// CachedStore puts an in-process LRU in front of Get and invalidates it on
// every mutation. List/Count always hit the database; cached reads serve
// only id lookups.
type CachedStore struct {
	storage.RecordStore
	cache *lru.Cache[int64, record.Record]
}

// NewCachedStore wraps a store with an LRU of the given capacity.
func NewCachedStore(store storage.RecordStore, size int) (*CachedStore, error) {
	cache, err := lru.New[int64, record.Record](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create record cache: %w", err)
	}
	return &CachedStore{RecordStore: store, cache: cache}, nil
}

func (c *CachedStore) Get(ctx context.Context, id int64) (*record.Record, error) {
	if cached, ok := c.cache.Get(id); ok {
		rec := cached // copy; callers mutate the result
		return &rec, nil
	}

	rec, err := c.RecordStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, *rec)
	return rec, nil
}

func (c *CachedStore) Create(ctx context.Context, rec *record.Record) error {
	if err := c.RecordStore.Create(ctx, rec); err != nil {
		return err
	}
	c.cache.Add(rec.ID, *rec)
	return nil
}

func (c *CachedStore) Update(ctx context.Context, rec *record.Record, expectedVersion int64) error {
	// Invalidate before and after: a failed CAS still means our copy is stale.
	c.cache.Remove(rec.ID)
	if err := c.RecordStore.Update(ctx, rec, expectedVersion); err != nil {
		return err
	}
	c.cache.Add(rec.ID, *rec)
	return nil
}

func (c *CachedStore) SetSyncFlag(ctx context.Context, id int64, flag *int) error {
	c.cache.Remove(id)
	return c.RecordStore.SetSyncFlag(ctx, id, flag)
}
