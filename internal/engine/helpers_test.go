package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kassir-pos/possync/internal/sale"
	"github.com/kassir-pos/possync/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// testIntent builds a pending intent tagged with its own id as comment, so
// the stub remote can address it.
func testIntent(localID string, total int64) sale.Intent {
	return sale.NewIntent(localID, sale.SaleData{
		CompanyID:       "company-1",
		StoreLocationID: "store-1",
		PaymentMethod:   "cash",
		Comment:         localID,
		TotalAmount:     decimal.NewFromInt(total),
		Items: []sale.Item{{
			ProductID: "product-1",
			Quantity:  decimal.NewFromInt(1),
			Price:     decimal.NewFromInt(total),
		}},
	}, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
}

func appendIntents(t *testing.T, s *store.Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := s.Append(context.Background(), testIntent(id, 1000))
		require.NoError(t, err)
	}
}

func listIDs(t *testing.T, s *store.Store) []string {
	t.Helper()
	intents, err := s.ListAll(context.Background())
	require.NoError(t, err)
	ids := []string{}
	for _, in := range intents {
		ids = append(ids, in.LocalID)
	}
	return ids
}

// switchStatus is a StatusSource toggled by tests.
type switchStatus struct {
	mu     sync.Mutex
	online bool
}

func (s *switchStatus) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *switchStatus) Set(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = online
}

// faultyStore injects storage failures around a real store.
type faultyStore struct {
	*store.Store
	listErr   error
	markErr   map[string]error
	removeErr map[string]error
}

func (f *faultyStore) ListAll(ctx context.Context) ([]sale.Intent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Store.ListAll(ctx)
}

func (f *faultyStore) MarkSynced(ctx context.Context, localID, remoteID string) error {
	if err := f.markErr[localID]; err != nil {
		return err
	}
	return f.Store.MarkSynced(ctx, localID, remoteID)
}

func (f *faultyStore) Remove(ctx context.Context, localID string) error {
	if err := f.removeErr[localID]; err != nil {
		return err
	}
	return f.Store.Remove(ctx, localID)
}

// recordingStep is a best-effort step that records its invocations.
type recordingStep struct {
	mu   sync.Mutex
	name string
	err  error
	runs []string
}

func (r *recordingStep) Name() string { return r.name }

func (r *recordingStep) Run(ctx context.Context, in sale.Intent, remoteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, in.LocalID+"->"+remoteID)
	return r.err
}

func (r *recordingStep) Runs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}
