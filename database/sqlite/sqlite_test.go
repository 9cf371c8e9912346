package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/database/databasetest"
	"github.com/sagarc03/filevault/database/sqlite"
)

var testTables = filevault.Tables{Files: "files", Orphans: "orphans"}

func setupTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Connect(ctx, ":memory:", testTables)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx))

	return db
}

func TestRepo(t *testing.T) {
	databasetest.RunStoreTests(t, func(t *testing.T) filevault.MetadataStore {
		return setupTestDB(t).Store()
	})
}

func TestLedger(t *testing.T) {
	databasetest.RunLedgerTests(t, func(t *testing.T) filevault.OrphanLedger {
		return setupTestDB(t).Ledger()
	})
}

func TestDatabase_Validate(t *testing.T) {
	ctx := context.Background()

	db, err := sqlite.Connect(ctx, ":memory:", testTables)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	err = db.Validate(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	require.NoError(t, db.Migrate(ctx))
	assert.NoError(t, db.Validate(ctx))
}

func TestDatabase_MigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	assert.NoError(t, db.Migrate(ctx))
	assert.NoError(t, db.Validate(ctx))
}

func TestDatabase_Ping(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.Ping(context.Background()))
}
