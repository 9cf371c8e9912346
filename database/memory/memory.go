// Package memory implements the metadata store and orphan ledger in process
// memory. State is lost on exit; it serves tests and single-process development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/database/internal"
)

type Store struct {
	mu      sync.RWMutex
	files   map[string]map[string]filevault.FileRecord
	orphans map[string]filevault.Orphan
}

func NewStore() *Store {
	return &Store{
		files:   make(map[string]map[string]filevault.FileRecord),
		orphans: make(map[string]filevault.Orphan),
	}
}

func (s *Store) Put(ctx context.Context, record filevault.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("put: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owned, ok := s.files[record.OwnerID]
	if !ok {
		owned = make(map[string]filevault.FileRecord)
		s.files[record.OwnerID] = owned
	}

	if _, exists := owned[record.FileID]; exists {
		return fmt.Errorf("put: %w", filevault.ErrConflict)
	}

	owned[record.FileID] = record
	return nil
}

func (s *Store) Get(ctx context.Context, ownerID, fileID string) (filevault.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return filevault.FileRecord{}, fmt.Errorf("get: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.files[ownerID][fileID]
	if !ok {
		return filevault.FileRecord{}, filevault.ErrNotFound
	}
	return record, nil
}

func (s *Store) QueryByOwner(ctx context.Context, ownerID string, q filevault.ListQuery) (filevault.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return filevault.ListResult{}, fmt.Errorf("query by owner: %w", err)
	}

	cursor, err := internal.DecodeCursor(q.Cursor)
	if err != nil {
		return filevault.ListResult{}, fmt.Errorf("query by owner: %w", err)
	}

	q = q.Normalized()

	s.mu.RLock()
	items := make([]filevault.FileRecord, 0, len(s.files[ownerID]))
	for _, record := range s.files[ownerID] {
		if cursor.Before(record.CreatedAt, record.FileID) {
			items = append(items, record)
		}
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].FileID > items[j].FileID
	})

	if len(items) > q.Limit+1 {
		items = items[:q.Limit+1]
	}

	page, next := internal.Page(items, q.Limit)
	return filevault.ListResult{Items: page, NextCursor: next}, nil
}

func (s *Store) Delete(ctx context.Context, ownerID, fileID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.files[ownerID], fileID)
	if len(s.files[ownerID]) == 0 {
		delete(s.files, ownerID)
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, ownerID, fileID string, status filevault.FileStatus) (filevault.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return filevault.FileRecord{}, fmt.Errorf("set status: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.files[ownerID][fileID]
	if !ok {
		return filevault.FileRecord{}, fmt.Errorf("set status: %w", filevault.ErrNotFound)
	}

	record.Status = status
	s.files[ownerID][fileID] = record
	return record, nil
}

func (s *Store) RecordOrphan(ctx context.Context, o filevault.Orphan) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("record orphan: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.orphans[o.StorageKey] = o
	return nil
}

func (s *Store) PendingOrphans(ctx context.Context, limit int) ([]filevault.Orphan, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pending orphans: %w", err)
	}

	s.mu.RLock()
	orphans := make([]filevault.Orphan, 0, len(s.orphans))
	for _, o := range s.orphans {
		orphans = append(orphans, o)
	}
	s.mu.RUnlock()

	sort.Slice(orphans, func(i, j int) bool {
		if !orphans[i].RecordedAt.Equal(orphans[j].RecordedAt) {
			return orphans[i].RecordedAt.Before(orphans[j].RecordedAt)
		}
		return orphans[i].StorageKey < orphans[j].StorageKey
	})

	if limit <= 0 {
		limit = filevault.DefaultListLimit
	}
	if len(orphans) > limit {
		orphans = orphans[:limit]
	}
	return orphans, nil
}

func (s *Store) ResolveOrphan(ctx context.Context, storageKey string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("resolve orphan: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.orphans, storageKey)
	return nil
}
