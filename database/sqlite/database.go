package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/filevault"

	_ "modernc.org/sqlite" // SQLite driver
)

// Database provides SQLite database operations.
type Database struct {
	db     *sql.DB
	tables filevault.Tables
}

// Connect opens a SQLite database.
// Tables should be validated before calling Connect.
func Connect(ctx context.Context, dsn string, tables filevault.Tables) (*Database, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	return &Database{
		db:     db,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate runs database migrations to create required tables.
func (d *Database) Migrate(ctx context.Context) error {
	if err := Migrate(ctx, d.db, d.tables); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *Database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db, d.tables)
}

// Store returns the metadata store backed by the files table.
func (d *Database) Store() filevault.MetadataStore {
	return &Repo{db: d.db, tableName: d.tables.Files}
}

// Ledger returns the orphan ledger backed by the orphans table.
func (d *Database) Ledger() filevault.OrphanLedger {
	return &Ledger{db: d.db, tableName: d.tables.Orphans}
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}
