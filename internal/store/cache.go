package store

import (
	"context"
	"fmt"

	"github.com/kassir-pos/possync/internal/sale"
)

// Cache names a replace-all reference-data snapshot.
type Cache string

const (
	CacheProducts       Cache = "products"
	CachePaymentMethods Cache = "payment_methods"
)

// Record is one entry of a cache snapshot. Data is an opaque JSON document.
type Record struct {
	Key  string
	Data []byte
}

// Snapshot is the full new content of one cache.
type Snapshot struct {
	Cache   Cache
	Records []Record
}

// ReplaceSnapshots swaps the contents of each named cache for its records
// in one transaction. Readers see either the old snapshots or the new ones,
// never a mix. Record order is preserved by GetAll.
func (s *Store) ReplaceSnapshots(ctx context.Context, snaps ...Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sale.StorageError("replace caches", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cache_records (cache, key, pos, data)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return sale.StorageError("replace caches", err)
	}
	defer stmt.Close()

	for _, snap := range snaps {
		op := fmt.Sprintf("replace %s cache", snap.Cache)
		if _, err := tx.ExecContext(ctx, `DELETE FROM cache_records WHERE cache = ?`, string(snap.Cache)); err != nil {
			return sale.StorageError(op, err)
		}
		for i, rec := range snap.Records {
			if _, err := stmt.ExecContext(ctx, string(snap.Cache), rec.Key, i, string(rec.Data)); err != nil {
				return sale.StorageError(op, fmt.Errorf("record %q: %w", rec.Key, err))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return sale.StorageError("replace caches", fmt.Errorf("commit: %w", err))
	}
	return nil
}

// GetAll returns the current snapshot of a cache in the order it was written.
// Returns an empty slice (not nil) for an empty cache.
func (s *Store) GetAll(ctx context.Context, cache Cache) ([]Record, error) {
	op := fmt.Sprintf("read %s cache", cache)

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, data
		FROM cache_records
		WHERE cache = ?
		ORDER BY pos ASC, key COLLATE BINARY ASC
	`, string(cache))
	if err != nil {
		return nil, sale.StorageError(op, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			rec  Record
			data string
		)
		if err := rows.Scan(&rec.Key, &data); err != nil {
			return nil, sale.StorageError(op, err)
		}
		rec.Data = []byte(data)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, sale.StorageError(op, err)
	}
	return records, nil
}
