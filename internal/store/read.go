package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kassir-pos/possync/internal/sale"
)

// ListAll returns every intent regardless of status.
// Results are ordered by insertion: ORDER BY seq ASC, local_id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the store holds no intents.
func (s *Store) ListAll(ctx context.Context) ([]sale.Intent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+intentColumns+`
		FROM intents
		ORDER BY seq ASC, local_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, sale.StorageError("list intents", err)
	}
	defer rows.Close()

	intents := []sale.Intent{}
	for rows.Next() {
		in, err := scanIntent(rows)
		if err != nil {
			return nil, sale.StorageError("list intents", err)
		}
		intents = append(intents, in)
	}

	if err := rows.Err(); err != nil {
		return nil, sale.StorageError("list intents", fmt.Errorf("iterate: %w", err))
	}

	return intents, nil
}

// Get returns a single intent by local id.
// Returns found=false (and no error) if it does not exist.
func (s *Store) Get(ctx context.Context, localID string) (sale.Intent, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+intentColumns+`
		FROM intents
		WHERE local_id = ?
	`, localID)

	in, err := scanIntent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return sale.Intent{}, false, nil
	}
	if err != nil {
		return sale.Intent{}, false, sale.StorageError("get intent", err)
	}
	return in, true, nil
}

// CountByStatus returns the number of intents per status.
// Every known status is present in the result, with zero if absent.
func (s *Store) CountByStatus(ctx context.Context) (map[sale.Status]int, error) {
	counts := map[sale.Status]int{
		sale.StatusPending: 0,
		sale.StatusSynced:  0,
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM intents
		GROUP BY status
		ORDER BY status
	`)
	if err != nil {
		return nil, sale.StorageError("count intents", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, sale.StorageError("count intents", err)
		}
		counts[sale.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, sale.StorageError("count intents", err)
	}

	return counts, nil
}

// DuplicateFingerprints returns local ids of intents that share their sale
// payload with an earlier intent, keyed by the earlier intent's local id.
func (s *Store) DuplicateFingerprints(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT first.local_id, dup.local_id
		FROM intents dup
		JOIN intents first
		  ON first.fingerprint = dup.fingerprint AND first.seq < dup.seq
		WHERE NOT EXISTS (
			SELECT 1 FROM intents earlier
			WHERE earlier.fingerprint = first.fingerprint AND earlier.seq < first.seq
		)
		ORDER BY first.seq ASC, dup.seq ASC
	`)
	if err != nil {
		return nil, sale.StorageError("find duplicate intents", err)
	}
	defer rows.Close()

	dups := map[string][]string{}
	for rows.Next() {
		var first, dup string
		if err := rows.Scan(&first, &dup); err != nil {
			return nil, sale.StorageError("find duplicate intents", err)
		}
		dups[first] = append(dups[first], dup)
	}
	if err := rows.Err(); err != nil {
		return nil, sale.StorageError("find duplicate intents", err)
	}
	return dups, nil
}
