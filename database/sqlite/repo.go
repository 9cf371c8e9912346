// Package sqlite implements the metadata store and orphan ledger using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/database/internal"
)

// timeFormat is fixed-width so that text ordering matches time ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

// Repo implements filevault.MetadataStore.
type Repo struct {
	db        *sql.DB
	tableName string
}

func (r *Repo) Put(ctx context.Context, record filevault.FileRecord) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (owner_id, file_id, file_name, content_type, file_size, storage_key, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, file_id) DO NOTHING`, r.tableName)

	result, err := r.db.ExecContext(ctx, query,
		record.OwnerID, record.FileID, record.FileName, record.ContentType,
		record.FileSize, record.StorageKey, string(record.Status), formatTime(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("put: %w: %w", filevault.ErrStorage, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("put: rows affected: %w: %w", filevault.ErrStorage, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("put: %w", filevault.ErrConflict)
	}

	return nil
}

func (r *Repo) Get(ctx context.Context, ownerID, fileID string) (filevault.FileRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT owner_id, file_id, file_name, content_type, file_size, storage_key, status, created_at
		FROM %s
		WHERE owner_id = ? AND file_id = ?`, r.tableName)

	m, err := scanRecord(r.db.QueryRowContext(ctx, query, ownerID, fileID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return filevault.FileRecord{}, filevault.ErrNotFound
		}
		return filevault.FileRecord{}, fmt.Errorf("get: %w: %w", filevault.ErrStorage, err)
	}

	return m, nil
}

func (r *Repo) QueryByOwner(ctx context.Context, ownerID string, q filevault.ListQuery) (filevault.ListResult, error) {
	cursor, err := internal.DecodeCursor(q.Cursor)
	if err != nil {
		return filevault.ListResult{}, fmt.Errorf("query by owner: %w", err)
	}

	q = q.Normalized()

	var query string
	var args []any

	if cursor.IsZero() {
		query = fmt.Sprintf(`
			SELECT owner_id, file_id, file_name, content_type, file_size, storage_key, status, created_at
			FROM %s
			WHERE owner_id = ?
			ORDER BY created_at DESC, file_id DESC
			LIMIT ?
		`, r.tableName)
		args = []any{ownerID, q.Limit + 1}
	} else {
		query = fmt.Sprintf(`
			SELECT owner_id, file_id, file_name, content_type, file_size, storage_key, status, created_at
			FROM %s
			WHERE owner_id = ? AND (created_at, file_id) < (?, ?)
			ORDER BY created_at DESC, file_id DESC
			LIMIT ?
		`, r.tableName)
		args = []any{ownerID, formatTime(cursor.CreatedAt), cursor.FileID, q.Limit + 1}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return filevault.ListResult{}, fmt.Errorf("query by owner: %w: %w", filevault.ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]filevault.FileRecord, 0, q.Limit+1)
	for rows.Next() {
		m, scanErr := scanRecord(rows)
		if scanErr != nil {
			return filevault.ListResult{}, fmt.Errorf("query by owner: scan: %w: %w", filevault.ErrStorage, scanErr)
		}
		items = append(items, m)
	}

	if err := rows.Err(); err != nil {
		return filevault.ListResult{}, fmt.Errorf("query by owner: rows: %w: %w", filevault.ErrStorage, err)
	}

	page, next := internal.Page(items, q.Limit)
	return filevault.ListResult{Items: page, NextCursor: next}, nil
}

func (r *Repo) Delete(ctx context.Context, ownerID, fileID string) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE owner_id = ? AND file_id = ?`, r.tableName)

	if _, err := r.db.ExecContext(ctx, query, ownerID, fileID); err != nil {
		return fmt.Errorf("delete: %w: %w", filevault.ErrStorage, err)
	}

	return nil
}

func (r *Repo) SetStatus(ctx context.Context, ownerID, fileID string, status filevault.FileStatus) (filevault.FileRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s SET status = ? WHERE owner_id = ? AND file_id = ?`, r.tableName)

	result, err := r.db.ExecContext(ctx, query, string(status), ownerID, fileID)
	if err != nil {
		return filevault.FileRecord{}, fmt.Errorf("set status: %w: %w", filevault.ErrStorage, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return filevault.FileRecord{}, fmt.Errorf("set status: rows affected: %w: %w", filevault.ErrStorage, err)
	}

	if rowsAffected == 0 {
		return filevault.FileRecord{}, fmt.Errorf("set status: %w", filevault.ErrNotFound)
	}

	return r.Get(ctx, ownerID, fileID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (filevault.FileRecord, error) {
	var m filevault.FileRecord
	var status, createdAt string

	if err := row.Scan(
		&m.OwnerID, &m.FileID, &m.FileName, &m.ContentType,
		&m.FileSize, &m.StorageKey, &status, &createdAt,
	); err != nil {
		return filevault.FileRecord{}, err
	}

	m.Status = filevault.FileStatus(status)

	var err error
	m.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return filevault.FileRecord{}, fmt.Errorf("parse created_at: %w", err)
	}

	return m, nil
}

// Ledger implements filevault.OrphanLedger.
type Ledger struct {
	db        *sql.DB
	tableName string
}

func (l *Ledger) RecordOrphan(ctx context.Context, o filevault.Orphan) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (storage_key, owner_id, file_id, reason, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (storage_key) DO UPDATE
		SET reason = excluded.reason, recorded_at = excluded.recorded_at`, l.tableName)

	_, err := l.db.ExecContext(ctx, query, o.StorageKey, o.OwnerID, o.FileID, o.Reason, formatTime(o.RecordedAt))
	if err != nil {
		return fmt.Errorf("record orphan: %w: %w", filevault.ErrStorage, err)
	}

	return nil
}

func (l *Ledger) PendingOrphans(ctx context.Context, limit int) ([]filevault.Orphan, error) {
	if limit <= 0 {
		limit = filevault.DefaultListLimit
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT storage_key, owner_id, file_id, reason, recorded_at
		FROM %s
		ORDER BY recorded_at, storage_key
		LIMIT ?`, l.tableName)

	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pending orphans: %w: %w", filevault.ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	orphans := make([]filevault.Orphan, 0, limit)
	for rows.Next() {
		var o filevault.Orphan
		var recordedAt string

		if err := rows.Scan(&o.StorageKey, &o.OwnerID, &o.FileID, &o.Reason, &recordedAt); err != nil {
			return nil, fmt.Errorf("pending orphans: scan: %w: %w", filevault.ErrStorage, err)
		}

		o.RecordedAt, err = parseTime(recordedAt)
		if err != nil {
			return nil, fmt.Errorf("pending orphans: parse recorded_at: %w: %w", filevault.ErrStorage, err)
		}

		orphans = append(orphans, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending orphans: rows: %w: %w", filevault.ErrStorage, err)
	}

	return orphans, nil
}

func (l *Ledger) ResolveOrphan(ctx context.Context, storageKey string) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE storage_key = ?`, l.tableName)

	if _, err := l.db.ExecContext(ctx, query, storageKey); err != nil {
		return fmt.Errorf("resolve orphan: %w: %w", filevault.ErrStorage, err)
	}

	return nil
}
