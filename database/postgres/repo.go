// Package postgres implements the metadata store and orphan ledger using PostgreSQL
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/database/internal"
)

const recordColumns = `owner_id, file_id, file_name, content_type, file_size, storage_key, status, created_at`

// Repo implements filevault.MetadataStore.
type Repo struct {
	pool      *pgxpool.Pool
	tableName string
}

func (r *Repo) Put(ctx context.Context, record filevault.FileRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner_id, file_id) DO NOTHING
	`, pgx.Identifier{r.tableName}.Sanitize())

	tag, err := r.pool.Exec(ctx, query,
		record.OwnerID, record.FileID, record.FileName, record.ContentType,
		record.FileSize, record.StorageKey, string(record.Status), record.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("put: %w: %w", filevault.ErrStorage, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("put: %w", filevault.ErrConflict)
	}

	return nil
}

func (r *Repo) Get(ctx context.Context, ownerID, fileID string) (filevault.FileRecord, error) {
	query := fmt.Sprintf(`
		SELECT `+recordColumns+`
		FROM %s
		WHERE owner_id = $1 AND file_id = $2
	`, pgx.Identifier{r.tableName}.Sanitize())

	m, err := scanRecord(r.pool.QueryRow(ctx, query, ownerID, fileID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	table := pgx.Identifier{r.tableName}.Sanitize()

	var query string
	var args []any

	if cursor.IsZero() {
		query = fmt.Sprintf(`
			SELECT `+recordColumns+`
			FROM %s
			WHERE owner_id = $1
			ORDER BY created_at DESC, file_id DESC
			LIMIT $2
		`, table)
		args = []any{ownerID, q.Limit + 1}
	} else {
		query = fmt.Sprintf(`
			SELECT `+recordColumns+`
			FROM %s
			WHERE owner_id = $1 AND (created_at, file_id) < ($2, $3)
			ORDER BY created_at DESC, file_id DESC
			LIMIT $4
		`, table)
		args = []any{ownerID, cursor.CreatedAt, cursor.FileID, q.Limit + 1}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return filevault.ListResult{}, fmt.Errorf("query by owner: %w: %w", filevault.ErrStorage, err)
	}
	defer rows.Close()

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
	query := fmt.Sprintf(`DELETE FROM %s WHERE owner_id = $1 AND file_id = $2`,
		pgx.Identifier{r.tableName}.Sanitize())

	if _, err := r.pool.Exec(ctx, query, ownerID, fileID); err != nil {
		return fmt.Errorf("delete: %w: %w", filevault.ErrStorage, err)
	}

	return nil
}

func (r *Repo) SetStatus(ctx context.Context, ownerID, fileID string, status filevault.FileStatus) (filevault.FileRecord, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET status = $3
		WHERE owner_id = $1 AND file_id = $2
		RETURNING `+recordColumns,
		pgx.Identifier{r.tableName}.Sanitize())

	m, err := scanRecord(r.pool.QueryRow(ctx, query, ownerID, fileID, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return filevault.FileRecord{}, fmt.Errorf("set status: %w", filevault.ErrNotFound)
		}
		return filevault.FileRecord{}, fmt.Errorf("set status: %w: %w", filevault.ErrStorage, err)
	}

	return m, nil
}

func scanRecord(row pgx.Row) (filevault.FileRecord, error) {
	var m filevault.FileRecord
	var status string

	if err := row.Scan(
		&m.OwnerID, &m.FileID, &m.FileName, &m.ContentType,
		&m.FileSize, &m.StorageKey, &status, &m.CreatedAt,
	); err != nil {
		return filevault.FileRecord{}, err
	}

	m.Status = filevault.FileStatus(status)
	m.CreatedAt = m.CreatedAt.UTC()

	return m, nil
}

// Ledger implements filevault.OrphanLedger.
type Ledger struct {
	pool      *pgxpool.Pool
	tableName string
}

func (l *Ledger) RecordOrphan(ctx context.Context, o filevault.Orphan) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (storage_key, owner_id, file_id, reason, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (storage_key) DO UPDATE
		SET reason = EXCLUDED.reason, recorded_at = EXCLUDED.recorded_at
	`, pgx.Identifier{l.tableName}.Sanitize())

	_, err := l.pool.Exec(ctx, query, o.StorageKey, o.OwnerID, o.FileID, o.Reason, o.RecordedAt.UTC())
	if err != nil {
		return fmt.Errorf("record orphan: %w: %w", filevault.ErrStorage, err)
	}

	return nil
}

func (l *Ledger) PendingOrphans(ctx context.Context, limit int) ([]filevault.Orphan, error) {
	if limit <= 0 {
		limit = filevault.DefaultListLimit
	}

	query := fmt.Sprintf(`
		SELECT storage_key, owner_id, file_id, reason, recorded_at
		FROM %s
		ORDER BY recorded_at, storage_key
		LIMIT $1
	`, pgx.Identifier{l.tableName}.Sanitize())

	rows, err := l.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pending orphans: %w: %w", filevault.ErrStorage, err)
	}
	defer rows.Close()

	orphans := make([]filevault.Orphan, 0, limit)
	for rows.Next() {
		var o filevault.Orphan
		if err := rows.Scan(&o.StorageKey, &o.OwnerID, &o.FileID, &o.Reason, &o.RecordedAt); err != nil {
			return nil, fmt.Errorf("pending orphans: scan: %w: %w", filevault.ErrStorage, err)
		}
		o.RecordedAt = o.RecordedAt.UTC()
		orphans = append(orphans, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending orphans: rows: %w: %w", filevault.ErrStorage, err)
	}

	return orphans, nil
}

func (l *Ledger) ResolveOrphan(ctx context.Context, storageKey string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE storage_key = $1`, pgx.Identifier{l.tableName}.Sanitize())

	if _, err := l.pool.Exec(ctx, query, storageKey); err != nil {
		return fmt.Errorf("resolve orphan: %w: %w", filevault.ErrStorage, err)
	}

	return nil
}
