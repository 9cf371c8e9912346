package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/filevault"
)

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, pool *pgxpool.Pool) error
	Down      func(ctx context.Context, pool *pgxpool.Pool) error
}

func getTableMigrations(tables filevault.Tables) []TableMigration {
	return []TableMigration{
		{
			TableName: tables.Files,
			Up:        createFilesTable(tables.Files),
			Down:      dropTable(tables.Files),
		},
		{
			TableName: tables.Orphans,
			Up:        createOrphansTable(tables.Orphans),
			Down:      dropTable(tables.Orphans),
		},
	}
}

func Migrate(ctx context.Context, pool *pgxpool.Pool, tables filevault.Tables) error {
	for _, migration := range getTableMigrations(tables) {
		if err := migration.Up(ctx, pool); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func DropTables(ctx context.Context, pool *pgxpool.Pool, tables filevault.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if err := migration.Down(ctx, pool); err != nil {
			return fmt.Errorf("migrate down %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func createFilesTable(tableName string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		quotedTable := pgx.Identifier{tableName}.Sanitize()
		indexOwnerList := pgx.Identifier{fmt.Sprintf("idx_%s_owner_list", tableName)}.Sanitize()

		sql := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				owner_id TEXT NOT NULL,
				file_id TEXT COLLATE "C" NOT NULL,
				file_name TEXT NOT NULL,
				content_type TEXT NOT NULL,
				file_size BIGINT NOT NULL CHECK (file_size >= 0),
				storage_key TEXT NOT NULL,
				status TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (owner_id, file_id)
			);

			CREATE INDEX IF NOT EXISTS %s
			ON %s (owner_id, created_at DESC, file_id DESC);
		`,
			quotedTable,
			indexOwnerList, quotedTable,
		)

		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("create files table: %w", err)
		}
		return nil
	}
}

func createOrphansTable(tableName string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		quotedTable := pgx.Identifier{tableName}.Sanitize()
		indexRecordedAt := pgx.Identifier{fmt.Sprintf("idx_%s_recorded_at", tableName)}.Sanitize()

		sql := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				storage_key TEXT COLLATE "C" PRIMARY KEY,
				owner_id TEXT NOT NULL,
				file_id TEXT NOT NULL,
				reason TEXT NOT NULL,
				recorded_at TIMESTAMPTZ NOT NULL
			);

			CREATE INDEX IF NOT EXISTS %s
			ON %s (recorded_at, storage_key);
		`,
			quotedTable,
			indexRecordedAt, quotedTable,
		)

		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("create orphans table: %w", err)
		}
		return nil
	}
}

func dropTable(tableName string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		sql := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", pgx.Identifier{tableName}.Sanitize())
		_, err := pool.Exec(ctx, sql)
		return err
	}
}
