package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kassir-pos/possync/internal/sale"
	"github.com/shopspring/decimal"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestIntent creates a pending intent with one line item.
func createTestIntent(localID string, total int64) sale.Intent {
	return sale.NewIntent(localID, sale.SaleData{
		CompanyID:       "company-1",
		StoreLocationID: "store-1",
		PaymentMethod:   "cash",
		TotalAmount:     decimal.NewFromInt(total),
		Items: []sale.Item{{
			ProductID: "product-1",
			Quantity:  decimal.NewFromInt(1),
			Price:     decimal.NewFromInt(total),
			CostPrice: decimal.NewFromInt(total / 2),
		}},
	}, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
}
