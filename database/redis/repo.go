// Package redis implements the metadata store and orphan ledger on Redis.
//
// Each record is a JSON string at {prefix}:file:{owner}:{fileId}. A sorted
// set {prefix}:owner:{owner} indexes the owner's file ids scored by creation
// time in microseconds; equal scores order by file id, which gives the
// (createdAt, fileId) descending order through ZREVRANGE. Orphans live in the
// hash {prefix}:orphans with a sorted set {prefix}:orphans:queue ordering
// them by recording time.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/database/internal"
)

// Repo implements filevault.MetadataStore.
type Repo struct {
	client *goredis.Client
	keys   keys
}

func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}

func (r *Repo) Put(ctx context.Context, record filevault.FileRecord) error {
	record.CreatedAt = record.CreatedAt.UTC().Truncate(time.Microsecond)

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("put: marshal: %w: %w", filevault.ErrStorage, err)
	}

	fileKey := r.keys.file(record.OwnerID, record.FileID)
	ownerKey := r.keys.owner(record.OwnerID)

	err = r.client.Watch(ctx, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, fileKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return filevault.ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, fileKey, payload, 0)
			pipe.ZAdd(ctx, ownerKey, goredis.Z{Score: score(record.CreatedAt), Member: record.FileID})
			return nil
		})
		return err
	}, fileKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, filevault.ErrConflict), errors.Is(err, goredis.TxFailedErr):
		return fmt.Errorf("put: %w", filevault.ErrConflict)
	default:
		return fmt.Errorf("put: %w: %w", filevault.ErrStorage, err)
	}
}

func (r *Repo) Get(ctx context.Context, ownerID, fileID string) (filevault.FileRecord, error) {
	payload, err := r.client.Get(ctx, r.keys.file(ownerID, fileID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return filevault.FileRecord{}, filevault.ErrNotFound
		}
		return filevault.FileRecord{}, fmt.Errorf("get: %w: %w", filevault.ErrStorage, err)
	}

	var record filevault.FileRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return filevault.FileRecord{}, fmt.Errorf("get: unmarshal: %w: %w", filevault.ErrStorage, err)
	}

	return record, nil
}

func (r *Repo) QueryByOwner(ctx context.Context, ownerID string, q filevault.ListQuery) (filevault.ListResult, error) {
	cursor, err := internal.DecodeCursor(q.Cursor)
	if err != nil {
		return filevault.ListResult{}, fmt.Errorf("query by owner: %w", err)
	}

	q = q.Normalized()
	ownerKey := r.keys.owner(ownerID)
	want := int64(q.Limit + 1)

	var ids []string
	maxScore := "+inf"

	if !cursor.IsZero() {
		cursorScore := strconv.FormatFloat(score(cursor.CreatedAt), 'f', 0, 64)

		// Entries sharing the cursor's timestamp, still descending by id.
		ties, err := r.client.ZRevRangeByScore(ctx, ownerKey, &goredis.ZRangeBy{
			Min: cursorScore,
			Max: cursorScore,
		}).Result()
		if err != nil {
			return filevault.ListResult{}, fmt.Errorf("query by owner: %w: %w", filevault.ErrStorage, err)
		}
		for _, id := range ties {
			if id < cursor.FileID && int64(len(ids)) < want {
				ids = append(ids, id)
			}
		}

		maxScore = "(" + cursorScore
	}

	if remaining := want - int64(len(ids)); remaining > 0 {
		rest, err := r.client.ZRevRangeByScore(ctx, ownerKey, &goredis.ZRangeBy{
			Min:   "-inf",
			Max:   maxScore,
			Count: remaining,
		}).Result()
		if err != nil {
			return filevault.ListResult{}, fmt.Errorf("query by owner: %w: %w", filevault.ErrStorage, err)
		}
		ids = append(ids, rest...)
	}

	items, err := r.load(ctx, ownerID, ids)
	if err != nil {
		return filevault.ListResult{}, fmt.Errorf("query by owner: %w", err)
	}

	page, next := internal.Page(items, q.Limit)
	return filevault.ListResult{Items: page, NextCursor: next}, nil
}

// load fetches records for ids in order, skipping index entries whose record
// is gone.
func (r *Repo) load(ctx context.Context, ownerID string, ids []string) ([]filevault.FileRecord, error) {
	if len(ids) == 0 {
		return []filevault.FileRecord{}, nil
	}

	fileKeys := make([]string, len(ids))
	for i, id := range ids {
		fileKeys[i] = r.keys.file(ownerID, id)
	}

	values, err := r.client.MGet(ctx, fileKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load: %w: %w", filevault.ErrStorage, err)
	}

	items := make([]filevault.FileRecord, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}

		var record filevault.FileRecord
		if err := json.Unmarshal([]byte(s), &record); err != nil {
			return nil, fmt.Errorf("load: unmarshal: %w: %w", filevault.ErrStorage, err)
		}
		items = append(items, record)
	}

	return items, nil
}

func (r *Repo) Delete(ctx context.Context, ownerID, fileID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, r.keys.file(ownerID, fileID))
		pipe.ZRem(ctx, r.keys.owner(ownerID), fileID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete: %w: %w", filevault.ErrStorage, err)
	}

	return nil
}

func (r *Repo) SetStatus(ctx context.Context, ownerID, fileID string, status filevault.FileStatus) (filevault.FileRecord, error) {
	fileKey := r.keys.file(ownerID, fileID)
	var updated filevault.FileRecord

	err := r.client.Watch(ctx, func(tx *goredis.Tx) error {
		payload, err := tx.Get(ctx, fileKey).Bytes()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return filevault.ErrNotFound
			}
			return err
		}

		if err := json.Unmarshal(payload, &updated); err != nil {
			return err
		}
		updated.Status = status

		next, err := json.Marshal(updated)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, fileKey, next, 0)
			return nil
		})
		return err
	}, fileKey)

	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, filevault.ErrNotFound):
		return filevault.FileRecord{}, fmt.Errorf("set status: %w", filevault.ErrNotFound)
	default:
		return filevault.FileRecord{}, fmt.Errorf("set status: %w: %w", filevault.ErrStorage, err)
	}
}

// Ledger implements filevault.OrphanLedger.
type Ledger struct {
	client *goredis.Client
	keys   keys
}

func (l *Ledger) RecordOrphan(ctx context.Context, o filevault.Orphan) error {
	o.RecordedAt = o.RecordedAt.UTC().Truncate(time.Microsecond)

	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("record orphan: marshal: %w: %w", filevault.ErrStorage, err)
	}

	_, err = l.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, l.keys.orphans(), o.StorageKey, payload)
		pipe.ZAdd(ctx, l.keys.orphanQueue(), goredis.Z{Score: score(o.RecordedAt), Member: o.StorageKey})
		return nil
	})
	if err != nil {
		return fmt.Errorf("record orphan: %w: %w", filevault.ErrStorage, err)
	}

	return nil
}

func (l *Ledger) PendingOrphans(ctx context.Context, limit int) ([]filevault.Orphan, error) {
	if limit <= 0 {
		limit = filevault.DefaultListLimit
	}

	storageKeys, err := l.client.ZRange(ctx, l.keys.orphanQueue(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("pending orphans: %w: %w", filevault.ErrStorage, err)
	}

	if len(storageKeys) == 0 {
		return []filevault.Orphan{}, nil
	}

	values, err := l.client.HMGet(ctx, l.keys.orphans(), storageKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("pending orphans: %w: %w", filevault.ErrStorage, err)
	}

	orphans := make([]filevault.Orphan, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}

		var o filevault.Orphan
		if err := json.Unmarshal([]byte(s), &o); err != nil {
			return nil, fmt.Errorf("pending orphans: unmarshal: %w: %w", filevault.ErrStorage, err)
		}
		orphans = append(orphans, o)
	}

	return orphans, nil
}

func (l *Ledger) ResolveOrphan(ctx context.Context, storageKey string) error {
	_, err := l.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HDel(ctx, l.keys.orphans(), storageKey)
		pipe.ZRem(ctx, l.keys.orphanQueue(), storageKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("resolve orphan: %w: %w", filevault.ErrStorage, err)
	}

	return nil
}
