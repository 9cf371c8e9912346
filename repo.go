package filevault

import (
	"context"
	"time"
)

// MetadataStore persists FileRecords partitioned by owner.
// Every method is scoped by owner id; there is no lookup by file id alone.
//
// Implementations translate driver errors into ErrNotFound, ErrConflict and
// ErrStorage and perform no retries.
type MetadataStore interface {
	// Put inserts the record if (OwnerID, FileID) is absent.
	//
	// Returns:
	//   - error: ErrConflict if a record with the same owner and file id exists,
	//     or ErrStorage on backend failure
	Put(ctx context.Context, record FileRecord) error

	// Get retrieves a record by owner and file id.
	//
	// Returns:
	//   - FileRecord: the stored record
	//   - error: ErrNotFound if absent, or ErrStorage on backend failure
	Get(ctx context.Context, ownerID, fileID string) (FileRecord, error)

	// QueryByOwner lists an owner's records, newest first (CreatedAt descending,
	// FileID descending on ties).
	//
	// Parameters:
	//   - q: page size and the opaque cursor returned by the previous page
	//
	// Returns:
	//   - ListResult: the page and a NextCursor, empty on the last page
	//   - error: ErrInvalidInput for a malformed cursor, or ErrStorage
	QueryByOwner(ctx context.Context, ownerID string, q ListQuery) (ListResult, error)

	// Delete removes a record. Deleting an absent record is not an error.
	Delete(ctx context.Context, ownerID, fileID string) error

	// SetStatus changes the status of an existing record and returns it.
	//
	// Returns:
	//   - error: ErrNotFound if absent, or ErrStorage
	SetStatus(ctx context.Context, ownerID, fileID string, status FileStatus) (FileRecord, error)
}

// ObjectGateway issues scoped URLs against storage keys and deletes objects.
//
// URL issuance is a local signing operation: it does not contact the object
// store and cannot fail because an object is absent.
type ObjectGateway interface {
	// IssueUploadTarget returns a URL that authorizes one PUT of contentType
	// to key until ttl elapses.
	IssueUploadTarget(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)

	// IssueDownloadTarget returns a URL that authorizes one GET of key until
	// ttl elapses.
	IssueDownloadTarget(ctx context.Context, key string, ttl time.Duration) (string, error)

	// DeleteObject removes the object at key. A missing key is not an error;
	// transport or permission failures return ErrStorage.
	DeleteObject(ctx context.Context, key string) error
}

// OrphanLedger records objects left behind by DeleteFile so they can be
// swept later.
type OrphanLedger interface {
	// RecordOrphan stores o, replacing any entry with the same StorageKey.
	RecordOrphan(ctx context.Context, o Orphan) error

	// PendingOrphans returns up to limit entries, oldest first.
	PendingOrphans(ctx context.Context, limit int) ([]Orphan, error)

	// ResolveOrphan removes the entry for storageKey. Resolving an absent
	// entry is not an error.
	ResolveOrphan(ctx context.Context, storageKey string) error
}
