package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kassir-pos/possync/internal/sale"
	"github.com/shopspring/decimal"
)

// intentColumns is the column list shared by every intent SELECT.
const intentColumns = `seq, local_id, company_id, store_location_id, payment_method,
	customer_id, comment, total_amount, items, operation_at, created_at,
	status, remote_id, fingerprint`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanIntent reads one intent row selected with intentColumns.
func scanIntent(row rowScanner) (sale.Intent, error) {
	var (
		in          sale.Intent
		total       string
		items       string
		operationAt sql.NullInt64
		createdAt   int64
		status      string
		remoteID    sql.NullString
	)

	err := row.Scan(
		&in.Seq,
		&in.LocalID,
		&in.CompanyID,
		&in.StoreLocationID,
		&in.PaymentMethod,
		&in.CustomerID,
		&in.Comment,
		&total,
		&items,
		&operationAt,
		&createdAt,
		&status,
		&remoteID,
		&in.Fingerprint,
	)
	if err != nil {
		return sale.Intent{}, err
	}

	in.TotalAmount, err = decimal.NewFromString(total)
	if err != nil {
		return sale.Intent{}, fmt.Errorf("parse total_amount of %s: %w", in.LocalID, err)
	}

	in.Items, err = sale.DecodeItems([]byte(items))
	if err != nil {
		return sale.Intent{}, fmt.Errorf("intent %s: %w", in.LocalID, err)
	}

	in.Status = sale.Status(status)
	if !in.Status.Valid() {
		return sale.Intent{}, fmt.Errorf("intent %s: unknown status %q", in.LocalID, status)
	}

	in.OperationAt = timeFromColumn(operationAt)
	in.CreatedAt = time.Unix(0, createdAt).UTC()
	in.RemoteID = remoteID.String

	return in, nil
}

// timeToColumn stores a time as unix nanoseconds. The zero time is NULL.
func timeToColumn(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func timeFromColumn(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.Unix(0, v.Int64).UTC()
}
