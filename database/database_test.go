package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/database"
)

func newTestConfig() database.Config {
	return database.Config{
		Type: "sqlite",
		DSN:  ":memory:",
		Tables: filevault.Tables{
			Files:   "files",
			Orphans: "orphans",
		},
	}
}

func setupTestDB(t *testing.T, cfg database.Config) database.Database {
	t.Helper()

	db, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestConnect_SQLite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := setupTestDB(t, newTestConfig())

	require.NoError(t, db.Ping(ctx))
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Validate(ctx))
	assert.NotNil(t, db.Store())
	assert.NotNil(t, db.Ledger())
}

func TestConnect_Memory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := setupTestDB(t, database.Config{Type: "memory"})
	require.NoError(t, db.Migrate(ctx))

	record := filevault.FileRecord{OwnerID: "alice", FileID: "f1", Status: filevault.StatusPending}
	require.NoError(t, db.Store().Put(ctx, record))

	got, err := db.Store().Get(ctx, "alice", "f1")
	require.NoError(t, err)
	assert.Equal(t, "f1", got.FileID)

	require.NoError(t, db.Ledger().RecordOrphan(ctx, filevault.Orphan{StorageKey: "alice/f1/a.pdf"}))
	orphans, err := db.Ledger().PendingOrphans(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, orphans, 1)
}

func TestConnect_InvalidType(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig()
	cfg.Type = "invalid"

	_, err := database.Connect(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestConnect_EmptyType(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig()
	cfg.Type = ""

	_, err := database.Connect(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestConnect_InvalidTables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tables  filevault.Tables
		wantErr string
	}{
		{"empty files", filevault.Tables{Orphans: "orphans"}, "files table name cannot be empty"},
		{"empty orphans", filevault.Tables{Files: "files"}, "orphans table name cannot be empty"},
		{"invalid name", filevault.Tables{Files: "Files;", Orphans: "orphans"}, "invalid table name"},
		{"same name", filevault.Tables{Files: "files", Orphans: "files"}, "must differ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := newTestConfig()
			cfg.Tables = tt.tables

			_, err := database.Connect(context.Background(), cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
