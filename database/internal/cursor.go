// Package internal holds helpers shared by the metadata backends.
package internal

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/sagarc03/filevault"
)

// Cursor is the position after which the next page starts, in
// (CreatedAt, FileID) descending order.
type Cursor struct {
	CreatedAt time.Time
	FileID    string
}

// IsZero reports whether the cursor points at the first page.
func (c Cursor) IsZero() bool {
	return c.FileID == ""
}

// EncodeCursor encodes cursor data to a base64 string for pagination.
func EncodeCursor(createdAt time.Time, fileID string) string {
	data := createdAt.UTC().Format(time.RFC3339Nano) + "|" + fileID
	return base64.URLEncoding.EncodeToString([]byte(data))
}

// DecodeCursor decodes a pagination cursor string back to cursor data.
// Errors wrap filevault.ErrInvalidInput.
func DecodeCursor(cursor string) (Cursor, error) {
	if cursor == "" {
		return Cursor{}, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: %w: invalid encoding: %w", filevault.ErrInvalidInput, err)
	}

	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return Cursor{}, fmt.Errorf("decode cursor: %w: invalid format", filevault.ErrInvalidInput)
	}

	if parts[1] == "" {
		return Cursor{}, fmt.Errorf("decode cursor: %w: empty file id", filevault.ErrInvalidInput)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: %w: invalid timestamp: %w", filevault.ErrInvalidInput, err)
	}

	return Cursor{CreatedAt: createdAt, FileID: parts[1]}, nil
}

// Before reports whether a record at (createdAt, fileID) sorts after the
// cursor in descending order, i.e. belongs to the next page.
func (c Cursor) Before(createdAt time.Time, fileID string) bool {
	if c.IsZero() {
		return true
	}
	if !createdAt.Equal(c.CreatedAt) {
		return createdAt.Before(c.CreatedAt)
	}
	return fileID < c.FileID
}

// Page trims items fetched with limit+1 to limit and returns the cursor for
// the following page, or "" when items fit.
func Page(items []filevault.FileRecord, limit int) ([]filevault.FileRecord, string) {
	if len(items) <= limit {
		return items, ""
	}
	last := items[limit-1]
	return items[:limit], EncodeCursor(last.CreatedAt, last.FileID)
}
