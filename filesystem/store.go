// Package filesystem stores blob bytes for the local object gateway under a
// sandboxed root directory. Writes are atomic through a temp file and rename.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/filevault"
)

// Store provides file system storage operations.
type Store struct {
	root *os.Root
}

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Size        int64
	ETag        string
	ContentType string
	ModTime     time.Time
}

// NewStore creates a new Store with the given root directory.
// The root provides sandboxed file operations preventing path traversal.
func NewStore(root *os.Root) *Store {
	return &Store{root: root}
}

// Open opens a blob for reading. Returns filevault.ErrNotFound if it does not exist.
func (s *Store) Open(ctx context.Context, key string) (*os.File, BlobInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, BlobInfo{}, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, BlobInfo{}, filevault.ErrNotFound
		}
		return nil, BlobInfo{}, fmt.Errorf("open blob: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, BlobInfo{}, fmt.Errorf("stat blob: %w", err)
	}

	if info.IsDir() {
		_ = f.Close()
		return nil, BlobInfo{}, filevault.ErrNotFound
	}

	return f, BlobInfo{
		Size:        info.Size(),
		ContentType: DetectContentType(key),
		ModTime:     info.ModTime(),
	}, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Write atomically writes content to key using a temp file and rename,
// creating intermediate directories as needed. It returns the bytes written
// and a SHA256-based etag. The operation respects context cancellation.
func (s *Store) Write(ctx context.Context, key string, content io.Reader) (BlobInfo, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return BlobInfo{}, ctxErr
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return BlobInfo{}, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(h, t)

	size, err := io.Copy(w, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return BlobInfo{}, fmt.Errorf("could not copy blob contents: %w", err)
	}

	if err := t.Sync(); err != nil {
		return BlobInfo{}, fmt.Errorf("could not sync written blob: %w", err)
	}

	destDir := filepath.Dir(key)
	if destDir != "." {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			return BlobInfo{}, fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	if renameErr := s.root.Rename(tmpFile, key); renameErr != nil {
		return BlobInfo{}, fmt.Errorf("failed to rename blob: %w", renameErr)
	}

	success = true

	return BlobInfo{
		Size:        size,
		ETag:        hex.EncodeToString(h.Sum(nil)),
		ContentType: DetectContentType(key),
		ModTime:     time.Now(),
	}, nil
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.root.Remove(key); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not delete blob: %w", err)
	}
	return nil
}

// DetectContentType guesses a media type from the key's extension.
func DetectContentType(key string) string {
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
