package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kassir-pos/possync/internal/sale"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrDuplicateLocalID is returned by Append when the local id is
	// already present. The existing row is left untouched.
	ErrDuplicateLocalID = errors.New("local_id already exists")

	// ErrRemoteIDConflict is returned by MarkSynced when the intent was
	// already confirmed under a different remote id.
	ErrRemoteIDConflict = errors.New("intent already synced with a different remote_id")
)

// Append persists a new intent with status pending in a single statement.
//
// The local id must be unique: a conflicting Append fails with
// ErrDuplicateLocalID rather than overwriting. Status and RemoteID on the
// argument are ignored. Fingerprint is computed when empty.
//
// Returns the local id of the stored intent.
func (s *Store) Append(ctx context.Context, in sale.Intent) (string, error) {
	if in.LocalID == "" {
		return "", sale.StorageError("append intent", errors.New("local_id is required"))
	}

	fingerprint := in.Fingerprint
	if fingerprint == "" {
		var err error
		fingerprint, err = sale.Fingerprint(in)
		if err != nil {
			return "", sale.StorageError("append intent", err)
		}
	}

	items, err := sale.EncodeItems(in.Items)
	if err != nil {
		return "", sale.StorageError("append intent", err)
	}

	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO intents
		(local_id, company_id, store_location_id, payment_method, customer_id, comment,
		 total_amount, items, operation_at, created_at, status, remote_id, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', NULL, ?)
	`,
		in.LocalID,
		in.CompanyID,
		in.StoreLocationID,
		in.PaymentMethod,
		in.CustomerID,
		in.Comment,
		in.TotalAmount.String(),
		string(items),
		timeToColumn(in.OperationAt),
		createdAt.UnixNano(),
		fingerprint,
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("%w: %s", ErrDuplicateLocalID, in.LocalID)
		}
		return "", sale.StorageError("append intent", err)
	}

	return in.LocalID, nil
}

// MarkSynced records the remote confirmation of an intent.
//
// It is a no-op if the intent no longer exists, and a no-op if the intent is
// already synced with the same remote id. Once an intent is synced its
// remote id never changes.
func (s *Store) MarkSynced(ctx context.Context, localID, remoteID string) error {
	if remoteID == "" {
		return sale.StorageError("mark synced", errors.New("remote_id is required"))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sale.StorageError("mark synced", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		UPDATE intents
		SET status = 'synced', remote_id = ?
		WHERE local_id = ? AND (status = 'pending' OR remote_id = ?)
	`, remoteID, localID, remoteID)
	if err != nil {
		return sale.StorageError("mark synced", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return sale.StorageError("mark synced", err)
	}

	if n == 0 {
		var existing sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT remote_id FROM intents WHERE local_id = ?`, localID,
		).Scan(&existing)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return sale.StorageError("mark synced", err)
		}
		return sale.StorageError("mark synced",
			fmt.Errorf("%w: %s is %s", ErrRemoteIDConflict, localID, existing.String))
	}

	if err := tx.Commit(); err != nil {
		return sale.StorageError("mark synced", fmt.Errorf("commit: %w", err))
	}
	return nil
}

// Remove deletes an intent. It is a no-op if the intent does not exist.
func (s *Store) Remove(ctx context.Context, localID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM intents WHERE local_id = ?`, localID); err != nil {
		return sale.StorageError("remove intent", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
