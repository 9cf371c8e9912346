// Package databasetest holds behaviour tests every metadata backend must pass.
package databasetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/filevault"
)

var baseTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newRecord(ownerID string, createdAt time.Time) filevault.FileRecord {
	fileID := uuid.NewString()
	return filevault.FileRecord{
		OwnerID:     ownerID,
		FileID:      fileID,
		FileName:    "report.pdf",
		ContentType: "application/pdf",
		FileSize:    2048,
		StorageKey:  filevault.StorageKey(ownerID, fileID, "report.pdf"),
		Status:      filevault.StatusPending,
		CreatedAt:   createdAt,
	}
}

func newOwner() string {
	return "owner-" + uuid.NewString()
}

// RunStoreTests exercises a filevault.MetadataStore. newStore may return the
// same store for every call; each subtest uses its own owner ids.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) filevault.MetadataStore) {
	t.Helper()

	t.Run("put then get", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		record := newRecord(newOwner(), baseTime)

		require.NoError(t, store.Put(ctx, record))

		got, err := store.Get(ctx, record.OwnerID, record.FileID)
		require.NoError(t, err)
		assert.Equal(t, record.FileID, got.FileID)
		assert.Equal(t, record.OwnerID, got.OwnerID)
		assert.Equal(t, "report.pdf", got.FileName)
		assert.Equal(t, "application/pdf", got.ContentType)
		assert.Equal(t, int64(2048), got.FileSize)
		assert.Equal(t, record.StorageKey, got.StorageKey)
		assert.Equal(t, filevault.StatusPending, got.Status)
		assert.True(t, record.CreatedAt.Equal(got.CreatedAt), "created at: want %v, got %v", record.CreatedAt, got.CreatedAt)
	})

	t.Run("put duplicate returns conflict", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		record := newRecord(newOwner(), baseTime)

		require.NoError(t, store.Put(ctx, record))

		dup := record
		dup.FileName = "other.pdf"
		err := store.Put(ctx, dup)
		assert.ErrorIs(t, err, filevault.ErrConflict)

		got, err := store.Get(ctx, record.OwnerID, record.FileID)
		require.NoError(t, err)
		assert.Equal(t, "report.pdf", got.FileName, "existing record must not be overwritten")
	})

	t.Run("same file id under another owner is independent", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		a := newRecord(newOwner(), baseTime)
		b := a
		b.OwnerID = newOwner()

		require.NoError(t, store.Put(ctx, a))
		require.NoError(t, store.Put(ctx, b))
	})

	t.Run("get missing returns not found", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Get(context.Background(), newOwner(), uuid.NewString())
		assert.ErrorIs(t, err, filevault.ErrNotFound)
	})

	t.Run("get is scoped by owner", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		record := newRecord(newOwner(), baseTime)
		require.NoError(t, store.Put(ctx, record))

		_, err := store.Get(ctx, newOwner(), record.FileID)
		assert.ErrorIs(t, err, filevault.ErrNotFound)
	})

	t.Run("query orders newest first", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		ownerID := newOwner()

		var want []string
		for i := range 5 {
			r := newRecord(ownerID, baseTime.Add(time.Duration(i)*time.Second))
			require.NoError(t, store.Put(ctx, r))
			want = append([]string{r.FileID}, want...)
		}
		require.NoError(t, store.Put(ctx, newRecord(newOwner(), baseTime)))

		result, err := store.QueryByOwner(ctx, ownerID, filevault.ListQuery{})
		require.NoError(t, err)
		assert.Empty(t, result.NextCursor)
		assert.Equal(t, want, fileIDs(result.Items))
	})

	t.Run("query for owner without files is empty", func(t *testing.T) {
		store := newStore(t)

		result, err := store.QueryByOwner(context.Background(), newOwner(), filevault.ListQuery{})
		require.NoError(t, err)
		assert.Empty(t, result.Items)
		assert.Empty(t, result.NextCursor)
	})

	t.Run("query paginates with cursor", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		ownerID := newOwner()

		for i := range 7 {
			require.NoError(t, store.Put(ctx, newRecord(ownerID, baseTime.Add(time.Duration(i)*time.Minute))))
		}

		all, err := store.QueryByOwner(ctx, ownerID, filevault.ListQuery{})
		require.NoError(t, err)
		require.Len(t, all.Items, 7)

		var paged []string
		cursor := ""
		pages := 0
		for {
			result, err := store.QueryByOwner(ctx, ownerID, filevault.ListQuery{Limit: 3, Cursor: cursor})
			require.NoError(t, err)
			assert.LessOrEqual(t, len(result.Items), 3)
			paged = append(paged, fileIDs(result.Items)...)
			pages++
			if result.NextCursor == "" {
				break
			}
			cursor = result.NextCursor
		}

		assert.Equal(t, 3, pages)
		assert.Equal(t, fileIDs(all.Items), paged)
	})

	t.Run("query breaks timestamp ties by file id", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		ownerID := newOwner()

		for range 4 {
			require.NoError(t, store.Put(ctx, newRecord(ownerID, baseTime)))
		}

		all, err := store.QueryByOwner(ctx, ownerID, filevault.ListQuery{})
		require.NoError(t, err)
		ids := fileIDs(all.Items)
		require.Len(t, ids, 4)
		for i := 1; i < len(ids); i++ {
			assert.Greater(t, ids[i-1], ids[i])
		}

		first, err := store.QueryByOwner(ctx, ownerID, filevault.ListQuery{Limit: 2})
		require.NoError(t, err)
		require.NotEmpty(t, first.NextCursor)

		second, err := store.QueryByOwner(ctx, ownerID, filevault.ListQuery{Limit: 2, Cursor: first.NextCursor})
		require.NoError(t, err)
		assert.Empty(t, second.NextCursor)
		assert.Equal(t, ids, append(fileIDs(first.Items), fileIDs(second.Items)...))
	})

	t.Run("query rejects malformed cursor", func(t *testing.T) {
		store := newStore(t)

		_, err := store.QueryByOwner(context.Background(), newOwner(), filevault.ListQuery{Cursor: "!!not-a-cursor!!"})
		assert.ErrorIs(t, err, filevault.ErrInvalidInput)
	})

	t.Run("delete removes record and is idempotent", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		record := newRecord(newOwner(), baseTime)
		require.NoError(t, store.Put(ctx, record))

		require.NoError(t, store.Delete(ctx, record.OwnerID, record.FileID))
		require.NoError(t, store.Delete(ctx, record.OwnerID, record.FileID))

		_, err := store.Get(ctx, record.OwnerID, record.FileID)
		assert.ErrorIs(t, err, filevault.ErrNotFound)

		result, err := store.QueryByOwner(ctx, record.OwnerID, filevault.ListQuery{})
		require.NoError(t, err)
		assert.Empty(t, result.Items)
	})

	t.Run("delete under another owner leaves record", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		record := newRecord(newOwner(), baseTime)
		require.NoError(t, store.Put(ctx, record))

		require.NoError(t, store.Delete(ctx, newOwner(), record.FileID))

		_, err := store.Get(ctx, record.OwnerID, record.FileID)
		assert.NoError(t, err)
	})

	t.Run("set status", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		record := newRecord(newOwner(), baseTime)
		require.NoError(t, store.Put(ctx, record))

		updated, err := store.SetStatus(ctx, record.OwnerID, record.FileID, filevault.StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, filevault.StatusConfirmed, updated.Status)
		assert.Equal(t, record.FileID, updated.FileID)

		got, err := store.Get(ctx, record.OwnerID, record.FileID)
		require.NoError(t, err)
		assert.Equal(t, filevault.StatusConfirmed, got.Status)

		_, err = store.SetStatus(ctx, record.OwnerID, uuid.NewString(), filevault.StatusConfirmed)
		assert.ErrorIs(t, err, filevault.ErrNotFound)
	})

	t.Run("concurrent puts of same id yield one winner", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		record := newRecord(newOwner(), baseTime)

		const n = 8
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := range n {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				r := record
				r.FileName = fmt.Sprintf("file-%d.pdf", i)
				errs[i] = store.Put(ctx, r)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, filevault.ErrConflict)
		}
		assert.Equal(t, 1, succeeded)
	})
}

// RunLedgerTests exercises a filevault.OrphanLedger. newLedger must return an
// empty ledger.
func RunLedgerTests(t *testing.T, newLedger func(t *testing.T) filevault.OrphanLedger) {
	t.Helper()

	t.Run("record and list oldest first", func(t *testing.T) {
		ledger := newLedger(t)
		ctx := context.Background()

		keys := []string{"o/2/b.pdf", "o/1/a.pdf", "o/3/c.pdf"}
		offsets := []time.Duration{2 * time.Second, time.Second, 3 * time.Second}
		for i, key := range keys {
			require.NoError(t, ledger.RecordOrphan(ctx, filevault.Orphan{
				StorageKey: key,
				OwnerID:    "o",
				FileID:     fmt.Sprint(i),
				Reason:     "connection refused",
				RecordedAt: baseTime.Add(offsets[i]),
			}))
		}

		orphans, err := ledger.PendingOrphans(ctx, 10)
		require.NoError(t, err)
		require.Len(t, orphans, 3)
		assert.Equal(t, "o/1/a.pdf", orphans[0].StorageKey)
		assert.Equal(t, "o/2/b.pdf", orphans[1].StorageKey)
		assert.Equal(t, "o/3/c.pdf", orphans[2].StorageKey)
		assert.Equal(t, "connection refused", orphans[0].Reason)
		assert.True(t, baseTime.Add(time.Second).Equal(orphans[0].RecordedAt))

		limited, err := ledger.PendingOrphans(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)
	})

	t.Run("record same key replaces entry", func(t *testing.T) {
		ledger := newLedger(t)
		ctx := context.Background()

		o := filevault.Orphan{StorageKey: "o/1/a.pdf", OwnerID: "o", FileID: "1", Reason: "first", RecordedAt: baseTime}
		require.NoError(t, ledger.RecordOrphan(ctx, o))

		o.Reason = "second"
		o.RecordedAt = baseTime.Add(time.Minute)
		require.NoError(t, ledger.RecordOrphan(ctx, o))

		orphans, err := ledger.PendingOrphans(ctx, 10)
		require.NoError(t, err)
		require.Len(t, orphans, 1)
		assert.Equal(t, "second", orphans[0].Reason)
	})

	t.Run("resolve removes entry and is idempotent", func(t *testing.T) {
		ledger := newLedger(t)
		ctx := context.Background()

		require.NoError(t, ledger.RecordOrphan(ctx, filevault.Orphan{
			StorageKey: "o/1/a.pdf", OwnerID: "o", FileID: "1", Reason: "timeout", RecordedAt: baseTime,
		}))

		require.NoError(t, ledger.ResolveOrphan(ctx, "o/1/a.pdf"))
		require.NoError(t, ledger.ResolveOrphan(ctx, "o/1/a.pdf"))

		orphans, err := ledger.PendingOrphans(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, orphans)
	})
}

func fileIDs(records []filevault.FileRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.FileID)
	}
	return ids
}
