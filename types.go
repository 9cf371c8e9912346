package filevault

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// FileStatus is the lifecycle state of a FileRecord.
type FileStatus string

const (
	StatusPending   FileStatus = "pending"
	StatusConfirmed FileStatus = "confirmed"
)

func (s FileStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed:
		return true
	default:
		return false
	}
}

func ParseFileStatus(s string) (FileStatus, error) {
	status := FileStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid file status: %s (valid: pending, confirmed)", s)
	}
	return status, nil
}

// FileRecord is the metadata kept for one file of one owner.
// StorageKey is internal and must not be returned to callers.
type FileRecord struct {
	OwnerID     string     `json:"ownerId"`
	FileID      string     `json:"fileId"`
	FileName    string     `json:"fileName"`
	ContentType string     `json:"contentType"`
	FileSize    int64      `json:"fileSize"`
	StorageKey  string     `json:"storageKey"`
	Status      FileStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Summary projects the record to the fields a caller may see.
func (r FileRecord) Summary() FileSummary {
	return FileSummary{
		FileID:      r.FileID,
		FileName:    r.FileName,
		ContentType: r.ContentType,
		FileSize:    r.FileSize,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
	}
}

// FileSummary is the client-safe view of a FileRecord.
type FileSummary struct {
	FileID      string     `json:"fileId"`
	FileName    string     `json:"fileName"`
	ContentType string     `json:"contentType"`
	FileSize    int64      `json:"fileSize"`
	Status      FileStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// UploadRequest is the caller-supplied part of an upload intent.
// Zero values are replaced by defaults before validation.
type UploadRequest struct {
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	ContentType string `json:"contentType"`
}

const (
	DefaultFileName    = "test.pdf"
	DefaultFileSize    = 1024
	DefaultContentType = "application/pdf"
)

// WithDefaults returns a copy with empty fields set to the defaults.
func (r UploadRequest) WithDefaults() UploadRequest {
	if r.FileName == "" {
		r.FileName = DefaultFileName
	}
	if r.FileSize == 0 {
		r.FileSize = DefaultFileSize
	}
	if r.ContentType == "" {
		r.ContentType = DefaultContentType
	}
	return r
}

type UploadResult struct {
	FileID    string `json:"fileId"`
	UploadURL string `json:"uploadUrl"`
	// ExpiresAt is never later than the moment the URL stops being accepted.
	// It may be up to a second earlier.
	ExpiresAt time.Time `json:"expiresAt"`
}

type DownloadResult struct {
	DownloadURL string    `json:"downloadUrl"`
	FileName    string    `json:"fileName"`
	FileSize    int64     `json:"fileSize"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type ListQuery struct {
	Limit  int
	Cursor string
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Normalized returns the query with Limit clamped to [1, MaxListLimit].
// A zero or negative limit becomes DefaultListLimit.
func (q ListQuery) Normalized() ListQuery {
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultListLimit
	case q.Limit > MaxListLimit:
		q.Limit = MaxListLimit
	}
	return q
}

type ListResult struct {
	Items      []FileRecord
	NextCursor string
}

type FileList struct {
	Files      []FileSummary `json:"files"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// Orphan is an object whose metadata record was deleted but whose own
// delete failed.
type Orphan struct {
	StorageKey string    `json:"storageKey"`
	OwnerID    string    `json:"ownerId"`
	FileID     string    `json:"fileId"`
	Reason     string    `json:"reason"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Tables holds configurable table names for metadata storage.
type Tables struct {
	Files   string `mapstructure:"files"`
	Orphans string `mapstructure:"orphans"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Files == "" {
		return errors.New("validate tables: files table name cannot be empty")
	}
	if t.Orphans == "" {
		return errors.New("validate tables: orphans table name cannot be empty")
	}

	for _, name := range []string{t.Files, t.Orphans} {
		if !IsValidTableName(name) {
			return fmt.Errorf("validate tables: invalid table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", name)
		}
	}

	if t.Files == t.Orphans {
		return errors.New("validate tables: files and orphans tables must differ")
	}

	return nil
}
