package storage

import (
	"context"
	"time"

	"github.com/recordkit/recordkit/pkg/query"
	"github.com/recordkit/recordkit/pkg/record"
)

// RecordStore is the primary persistence interface for records. Writes are
// version-checked: Update performs a compare-and-swap on the lock version
// and reports a conflict as a typed record error.
type RecordStore interface {
	// Create persists a new record, assigning its ID and setting the lock
	// version to 1.
	Create(ctx context.Context, rec *record.Record) error

	// Get fetches a record by id. Missing records yield a NotFound error.
	Get(ctx context.Context, id int64) (*record.Record, error)

	// List fetches records matching the filter, sorted and paged.
	List(ctx context.Context, filter *query.Filter, sort query.Sort, page query.PageSpec) ([]*record.Record, error)

	// Count counts records matching the filter.
	Count(ctx context.Context, filter *query.Filter) (int64, error)

	// Update persists rec where the stored lock version still equals
	// expectedVersion, incrementing it by one. Zero rows affected means the
	// record is gone (NotFound) or the version moved (LockConflict).
	Update(ctx context.Context, rec *record.Record, expectedVersion int64) error

	// SetSyncFlag sets or clears the mirror re-sync marker without touching
	// the lock version.
	SetSyncFlag(ctx context.Context, id int64, flag *int) error

	// ListPendingSync fetches up to limit records flagged for re-sync.
	ListPendingSync(ctx context.Context, limit int) ([]*record.Record, error)

	// ReferenceCount reports how many other rows reference the record and
	// the field they reference it through.
	ReferenceCount(ctx context.Context, id int64) (int64, string, error)

	// HealthCheck verifies the backing store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases all connections.
	Close() error
}

// MirrorStore is the optional secondary document store. Lifecycle never
// depends on its success: a failed mirror write flags the record for re-sync
// instead of failing the request.
type MirrorStore interface {
	// Upsert writes the record's document representation keyed by id.
	Upsert(ctx context.Context, rec *record.Record) error

	// Ping verifies the mirror is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close() error
}

// Config for the storage backends.
type Config struct {
	// Driver selects the SQL driver: "postgres" or "sqlite3".
	Driver string

	// DSN is the driver-specific connection string.
	DSN string

	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration

	// Mirror (Redis) config. MirrorEnabled false disables mirroring.
	MirrorEnabled bool
	RedisURL      string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	// CacheSize is the record read-cache capacity in entries; 0 disables it.
	CacheSize int
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Driver:      "postgres",
		MaxConns:    20,
		MinConns:    2,
		Timeout:     10 * time.Second,
		MaxLifetime: 1 * time.Hour,
		MaxIdleTime: 10 * time.Minute,

		RedisDB:       0,
		RedisPoolSize: 10,

		CacheSize: 1024,
	}
}
