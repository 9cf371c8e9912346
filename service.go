package filevault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultURLTTL is the validity window of every issued upload and download URL.
const DefaultURLTTL = 300 * time.Second

// Service is the file lifecycle controller. It holds no mutable state; all
// consistency lives in the injected stores.
type Service struct {
	store          MetadataStore
	gateway        ObjectGateway
	ledger         OrphanLedger
	policy         Policy
	urlTTL         time.Duration
	cleanupTimeout time.Duration
	confirmUploads bool
	newID          func() string
	now            func() time.Time
}

// ServiceConfig holds configuration options for Service.
type ServiceConfig struct {
	Ledger         OrphanLedger  // Receives objects whose delete failed (optional)
	Policy         Policy        // Upload intent limits
	URLTTL         time.Duration // Validity of issued URLs (default: 300s)
	CleanupTimeout time.Duration // Timeout for the object delete after metadata removal (default: 30s)
	ConfirmUploads bool          // Enables ConfirmUpload
	NewID          func() string // File id generator (default: NewFileID)
	Now            func() time.Time
}

func NewService(store MetadataStore, gateway ObjectGateway, cfg ServiceConfig) (*Service, error) {
	if store == nil {
		return nil, errors.New("new service: metadata store is required")
	}
	if gateway == nil {
		return nil, errors.New("new service: object gateway is required")
	}

	urlTTL := cfg.URLTTL
	if urlTTL <= 0 {
		urlTTL = DefaultURLTTL
	}
	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}
	newID := cfg.NewID
	if newID == nil {
		newID = NewFileID
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		store:          store,
		gateway:        gateway,
		ledger:         cfg.Ledger,
		policy:         cfg.Policy,
		urlTTL:         urlTTL,
		cleanupTimeout: cleanupTimeout,
		confirmUploads: cfg.ConfirmUploads,
		newID:          newID,
		now:            now,
	}, nil
}

// UploadIntent registers a pending file for the caller and returns a URL the
// caller uses to PUT the bytes directly to the object store.
//
// The method performs the following steps:
//  1. Resolves the owner from ctx (ErrAuthentication if absent)
//  2. Applies request defaults and checks them against the policy
//  3. Generates a random file id and derives the storage key
//  4. Issues the upload URL, scoped to the key and content type
//  5. Inserts the record with status pending
//
// If step 5 fails the URL stays valid but unreferenced; the caller receives the
// error and has no file id to use it with.
//
// Error types returned:
//   - ErrAuthentication: no trusted owner on ctx
//   - ErrInvalidInput: request violates the policy
//   - ErrConflict: the generated id already exists for the owner
//   - ErrStorage: either store failed
func (s *Service) UploadIntent(ctx context.Context, req UploadRequest) (UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return UploadResult{}, fmt.Errorf("upload intent: %w", err)
	}

	ownerID, err := OwnerFromContext(ctx)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload intent: %w", err)
	}

	req = req.WithDefaults()
	if err := s.policy.Check(req); err != nil {
		return UploadResult{}, fmt.Errorf("upload intent: %w", err)
	}

	fileID := s.newID()
	key := StorageKey(ownerID, fileID, req.FileName)
	issuedAt := s.now().UTC()

	uploadURL, err := s.gateway.IssueUploadTarget(ctx, key, req.ContentType, s.urlTTL)
	if err != nil {
		return UploadResult{}, classify("upload intent: issue upload target", err)
	}

	record := FileRecord{
		OwnerID:     ownerID,
		FileID:      fileID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		FileSize:    req.FileSize,
		StorageKey:  key,
		Status:      StatusPending,
		CreatedAt:   issuedAt,
	}

	if err := s.store.Put(ctx, record); err != nil {
		return UploadResult{}, classify("upload intent: put record", err)
	}

	return UploadResult{
		FileID:    fileID,
		UploadURL: uploadURL,
		ExpiresAt: s.expiresAt(issuedAt),
	}, nil
}

// ListFiles returns one page of the caller's files, newest first.
// Summaries never include the storage key.
func (s *Service) ListFiles(ctx context.Context, q ListQuery) (FileList, error) {
	if err := ctx.Err(); err != nil {
		return FileList{}, fmt.Errorf("list files: %w", err)
	}

	ownerID, err := OwnerFromContext(ctx)
	if err != nil {
		return FileList{}, fmt.Errorf("list files: %w", err)
	}

	result, err := s.store.QueryByOwner(ctx, ownerID, q.Normalized())
	if err != nil {
		return FileList{}, classify("list files", err)
	}

	files := make([]FileSummary, 0, len(result.Items))
	for _, record := range result.Items {
		files = append(files, record.Summary())
	}

	return FileList{Files: files, NextCursor: result.NextCursor}, nil
}

// DownloadTarget returns a GET URL for one of the caller's files.
// A file owned by someone else is reported as ErrNotFound. The object itself
// is not checked; a URL for a never-uploaded file fails at GET time.
func (s *Service) DownloadTarget(ctx context.Context, fileID string) (DownloadResult, error) {
	if err := ctx.Err(); err != nil {
		return DownloadResult{}, fmt.Errorf("download target: %w", err)
	}

	record, err := s.lookup(ctx, fileID)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("download target: %w", err)
	}

	issuedAt := s.now().UTC()
	downloadURL, err := s.gateway.IssueDownloadTarget(ctx, record.StorageKey, s.urlTTL)
	if err != nil {
		return DownloadResult{}, classify("download target: issue download target", err)
	}

	return DownloadResult{
		DownloadURL: downloadURL,
		FileName:    record.FileName,
		FileSize:    record.FileSize,
		ExpiresAt:   s.expiresAt(issuedAt),
	}, nil
}

// DeleteFile removes one of the caller's files: the metadata record first,
// then the object.
//
// Once the record is gone the file is invisible to every later call, so a
// failed object delete does not fail the operation. It is logged and handed
// to the OrphanLedger for Sweep. The object delete runs on a context detached
// from ctx so a disconnecting caller does not abort it.
//
// Error types returned:
//   - ErrAuthentication: no trusted owner on ctx
//   - ErrNotFound: the file does not exist for the caller, including a second delete
//   - ErrStorage: the metadata store failed
func (s *Service) DeleteFile(ctx context.Context, fileID string) (FileSummary, error) {
	if err := ctx.Err(); err != nil {
		return FileSummary{}, fmt.Errorf("delete file: %w", err)
	}

	record, err := s.lookup(ctx, fileID)
	if err != nil {
		return FileSummary{}, fmt.Errorf("delete file: %w", err)
	}

	if err := s.store.Delete(ctx, record.OwnerID, record.FileID); err != nil {
		return FileSummary{}, classify("delete file: delete record", err)
	}

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cleanupTimeout)
	defer cancel()

	if delErr := s.gateway.DeleteObject(cleanupCtx, record.StorageKey); delErr != nil {
		slog.WarnContext(ctx, "object delete failed after metadata removal",
			"owner_id", record.OwnerID,
			"file_id", record.FileID,
			"storage_key", record.StorageKey,
			"err", delErr,
		)
		s.recordOrphan(cleanupCtx, record, delErr)
	}

	return record.Summary(), nil
}

// ConfirmUpload marks a pending file as confirmed. Confirming a confirmed
// file is a no-op. When confirmation is disabled every call returns ErrNotFound.
func (s *Service) ConfirmUpload(ctx context.Context, fileID string) (FileSummary, error) {
	if err := ctx.Err(); err != nil {
		return FileSummary{}, fmt.Errorf("confirm upload: %w", err)
	}

	if !s.confirmUploads {
		return FileSummary{}, fmt.Errorf("confirm upload: %w: confirmation disabled", ErrNotFound)
	}

	record, err := s.lookup(ctx, fileID)
	if err != nil {
		return FileSummary{}, fmt.Errorf("confirm upload: %w", err)
	}

	if record.Status == StatusConfirmed {
		return record.Summary(), nil
	}

	updated, err := s.store.SetStatus(ctx, record.OwnerID, record.FileID, StatusConfirmed)
	if err != nil {
		return FileSummary{}, classify("confirm upload", err)
	}

	return updated.Summary(), nil
}

// Sweep deletes the objects recorded in the OrphanLedger and resolves their
// entries, batchSize at a time, until the ledger is empty.
//
// It stops at the first object delete or ledger error and returns the number
// of orphans removed so far.
func (s *Service) Sweep(ctx context.Context, batchSize int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}

	if s.ledger == nil {
		return 0, fmt.Errorf("sweep: %w: no orphan ledger configured", ErrInvalidInput)
	}

	if batchSize <= 0 {
		batchSize = DefaultListLimit
	}

	swept := 0
	for {
		if err := ctx.Err(); err != nil {
			return swept, fmt.Errorf("sweep: %w", err)
		}

		orphans, err := s.ledger.PendingOrphans(ctx, batchSize)
		if err != nil {
			return swept, classify("sweep: pending orphans", err)
		}

		if len(orphans) == 0 {
			break
		}

		for _, o := range orphans {
			if err := s.gateway.DeleteObject(ctx, o.StorageKey); err != nil {
				return swept, classify(fmt.Sprintf("sweep '%s'", o.StorageKey), err)
			}

			if err := s.ledger.ResolveOrphan(ctx, o.StorageKey); err != nil {
				return swept, classify(fmt.Sprintf("sweep '%s': resolve", o.StorageKey), err)
			}

			swept++
		}

		if len(orphans) < batchSize {
			break
		}
	}

	return swept, nil
}

// lookup resolves the owner from ctx and fetches the owner's record.
// Ids that NewFileID could not have produced are reported as ErrNotFound
// without touching the store.
func (s *Service) lookup(ctx context.Context, fileID string) (FileRecord, error) {
	ownerID, err := OwnerFromContext(ctx)
	if err != nil {
		return FileRecord{}, err
	}

	if !IsValidFileID(fileID) {
		return FileRecord{}, ErrNotFound
	}

	record, err := s.store.Get(ctx, ownerID, fileID)
	if err != nil {
		return FileRecord{}, classify("get record", err)
	}

	return record, nil
}

// expiresAt reports when a URL issued after issuedAt stops working. Signers
// stamp URLs with second precision from their own clock, read after issuedAt,
// so truncating keeps the reported expiry at or before the real one.
func (s *Service) expiresAt(issuedAt time.Time) time.Time {
	return issuedAt.Truncate(time.Second).Add(s.urlTTL)
}

func (s *Service) recordOrphan(ctx context.Context, record FileRecord, cause error) {
	if s.ledger == nil {
		return
	}

	o := Orphan{
		StorageKey: record.StorageKey,
		OwnerID:    record.OwnerID,
		FileID:     record.FileID,
		Reason:     cause.Error(),
		RecordedAt: s.now().UTC(),
	}

	if err := s.ledger.RecordOrphan(ctx, o); err != nil {
		slog.ErrorContext(ctx, "record orphan failed",
			"storage_key", record.StorageKey,
			"err", err,
		)
	}
}

// classify wraps err with op and marks it as ErrStorage unless it already
// carries one of the package error kinds or a context error.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrAuthentication),
		errors.Is(err, ErrStorage),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
}
