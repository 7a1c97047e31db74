package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver for local development

	"github.com/recordkit/recordkit/pkg/storage"
)

// openDB opens and pings a database connection for the configured driver.
func openDB(config storage.Config) (*sql.DB, error) {
	switch config.Driver {
	case "postgres", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported driver: %s", config.Driver)
	}

	db, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", config.Driver, err)
	}

	db.SetMaxOpenConns(config.MaxConns)
	db.SetMaxIdleConns(config.MinConns)
	db.SetConnMaxLifetime(config.MaxLifetime)
	db.SetConnMaxIdleTime(config.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", config.Driver, err)
	}

	return db, nil
}

// Schema bootstrap. The id column definition is the only driver difference.

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS records (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status INTEGER NOT NULL,
	lock_version BIGINT NOT NULL DEFAULT 1,
	detail JSONB NOT NULL,
	sync_flag INTEGER
)`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status INTEGER NOT NULL,
	lock_version INTEGER NOT NULL DEFAULT 1,
	detail TEXT NOT NULL,
	sync_flag INTEGER
)`

const schemaLinksPostgres = `
CREATE TABLE IF NOT EXISTS record_links (
	id BIGSERIAL PRIMARY KEY,
	record_id BIGINT NOT NULL REFERENCES records(id),
	field TEXT NOT NULL
)`

const schemaLinksSQLite = `
CREATE TABLE IF NOT EXISTS record_links (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	record_id INTEGER NOT NULL REFERENCES records(id),
	field TEXT NOT NULL
)`

const indexSyncFlag = `CREATE INDEX IF NOT EXISTS idx_records_sync_flag ON records (sync_flag) WHERE sync_flag IS NOT NULL`

func bootstrapSchema(db *sql.DB, driver string) error {
	records, links := schemaPostgres, schemaLinksPostgres
	if driver == "sqlite3" {
		records, links = schemaSQLite, schemaLinksSQLite
	}

	if _, err := db.Exec(records); err != nil {
		return fmt.Errorf("failed to create records table: %w", err)
	}
	if _, err := db.Exec(links); err != nil {
		return fmt.Errorf("failed to create record_links table: %w", err)
	}
	if driver == "postgres" {
		if _, err := db.Exec(indexSyncFlag); err != nil {
			return fmt.Errorf("failed to create sync_flag index: %w", err)
		}
	}
	return nil
}
