package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/recordkit/recordkit/pkg/query"
	"github.com/recordkit/recordkit/pkg/record"
	"github.com/recordkit/recordkit/pkg/storage"
)

// Store implements storage.RecordStore over database/sql.
type Store struct {
	db     *sql.DB
	driver string
}

// NewStore opens a connection for the configured driver and bootstraps the
// schema.
func NewStore(config storage.Config) (*Store, error) {
	db, err := openDB(config)
	if err != nil {
		return nil, err
	}
	if err := bootstrapSchema(db, config.Driver); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, driver: config.Driver}, nil
}

// NewStoreFromDB wraps an existing connection. The schema is bootstrapped
// with the postgres dialect.
func NewStoreFromDB(db *sql.DB) (*Store, error) {
	if err := bootstrapSchema(db, "postgres"); err != nil {
		return nil, err
	}
	return &Store{db: db, driver: "postgres"}, nil
}

const recordColumns = "id, name, description, status, lock_version, detail, sync_flag"

func (s *Store) Create(ctx context.Context, rec *record.Record) error {
	detailJSON, err := json.Marshal(rec.Detail)
	if err != nil {
		return fmt.Errorf("failed to marshal detail: %w", err)
	}

	query := `
		INSERT INTO records (name, description, status, lock_version, detail, sync_flag)
		VALUES ($1, $2, $3, 1, $4, $5)
		RETURNING id
	`

	err = s.db.QueryRowContext(ctx, query,
		rec.Name, rec.Description, int(rec.Status), detailJSON, rec.SyncFlag,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}

	rec.LockVersion = 1
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (*record.Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE id = $1", id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, record.NewError(record.KindNotFound, fmt.Sprintf("record %d not found", id))
	} else if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

func (s *Store) Count(ctx context.Context, filter *query.Filter) (int64, error) {
	where, args := filter.SQL(1)

	var total int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE "+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return total, nil
}

func (s *Store) List(ctx context.Context, filter *query.Filter, sort query.Sort, page query.PageSpec) ([]*record.Record, error) {
	if page.Size <= 0 {
		return nil, nil
	}

	where, args := filter.SQL(1)
	q := fmt.Sprintf(
		"SELECT %s FROM records WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		recordColumns, where, sort.Field, sort.Direction, len(args)+1, len(args)+2)
	args = append(args, page.Size, page.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*record.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

// Update persists rec with a compare-and-swap on the lock version. Zero rows
// affected is disambiguated into NotFound or LockConflict with a follow-up
// lookup.
func (s *Store) Update(ctx context.Context, rec *record.Record, expectedVersion int64) error {
	detailJSON, err := json.Marshal(rec.Detail)
	if err != nil {
		return fmt.Errorf("failed to marshal detail: %w", err)
	}

	query := `
		UPDATE records
		SET name = $1, description = $2, status = $3, detail = $4, sync_flag = $5,
		    lock_version = lock_version + 1
		WHERE id = $6 AND lock_version = $7
	`

	result, err := s.db.ExecContext(ctx, query,
		rec.Name, rec.Description, int(rec.Status), detailJSON, rec.SyncFlag,
		rec.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		var stored int64
		err := s.db.QueryRowContext(ctx, "SELECT lock_version FROM records WHERE id = $1", rec.ID).Scan(&stored)
		if err == sql.ErrNoRows {
			return record.NewError(record.KindNotFound, fmt.Sprintf("record %d not found", rec.ID))
		} else if err != nil {
			return fmt.Errorf("failed to check record version: %w", err)
		}
		return record.CheckVersion(stored, expectedVersion)
	}

	rec.LockVersion = expectedVersion + 1
	return nil
}

func (s *Store) SetSyncFlag(ctx context.Context, id int64, flag *int) error {
	_, err := s.db.ExecContext(ctx, "UPDATE records SET sync_flag = $1 WHERE id = $2", flag, id)
	if err != nil {
		return fmt.Errorf("failed to set sync flag: %w", err)
	}
	return nil
}

func (s *Store) ListPendingSync(ctx context.Context, limit int) ([]*record.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE sync_flag = $1 ORDER BY id LIMIT $2",
		record.SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending sync records: %w", err)
	}
	defer rows.Close()

	var records []*record.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

func (s *Store) ReferenceCount(ctx context.Context, id int64) (int64, string, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM record_links WHERE record_id = $1", id).Scan(&count)
	if err != nil {
		return 0, "", fmt.Errorf("failed to count references: %w", err)
	}
	return count, "record_links.record_id", nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unhealthy: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection for health endpoints.
func (s *Store) DB() *sql.DB {
	return s.db
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*record.Record, error) {
	var rec record.Record
	var status int
	var detailJSON []byte
	var syncFlag sql.NullInt64

	err := row.Scan(&rec.ID, &rec.Name, &rec.Description, &status, &rec.LockVersion, &detailJSON, &syncFlag)
	if err != nil {
		return nil, err
	}

	rec.Status = record.Status(status)
	if err := json.Unmarshal(detailJSON, &rec.Detail); err != nil {
		return nil, fmt.Errorf("failed to unmarshal detail: %w", err)
	}
	if syncFlag.Valid {
		flag := int(syncFlag.Int64)
		rec.SyncFlag = &flag
	}
	return &rec, nil
}
