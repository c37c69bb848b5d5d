package refdata

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassir-pos/possync/internal/sale"
	"github.com/kassir-pos/possync/internal/store"
	"github.com/kassir-pos/possync/internal/testutil"
)

type onlineFlag bool

func (o onlineFlag) IsOnline() bool { return bool(o) }

func setup(t *testing.T) (*store.Store, *testutil.StubRemote) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "refdata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	stub := testutil.NewStubRemote()
	stub.SetCatalog(
		[]sale.Product{
			{ID: "p1", CompanyID: "c1", Name: "Bread", SalePrice: decimal.NewFromInt(40)},
			{ID: "p2", CompanyID: "c1", Name: "Milk", SalePrice: decimal.NewFromInt(90), StockQuantity: decimal.NewFromInt(7)},
		},
		[]sale.Balance{
			{ProductID: "p1", StoreLocationID: "s1", Quantity: decimal.NewFromInt(3)},
			{ProductID: "p1", StoreLocationID: "s1", Quantity: decimal.NewFromInt(2)},
		},
		[]sale.PaymentMethod{{ID: "cash", Name: "Cash"}, {ID: "card", Name: "Card"}},
	)
	return s, stub
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRefresh_ReplacesCaches(t *testing.T) {
	ctx := context.Background()
	s, stub := setup(t)
	r := New(stub, s, "c1", "s1", quiet())

	sum, err := r.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Products: 2, PaymentMethods: 2}, sum)

	products, err := r.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Bread", products[0].Name)
	assert.Equal(t, "5", products[0].StockQuantity.String(), "stock is the sum of balances")
	assert.Equal(t, "7", products[1].StockQuantity.String(), "no balances keeps stored stock")

	methods, err := r.PaymentMethods(ctx)
	require.NoError(t, err)
	assert.Equal(t, []sale.PaymentMethod{{ID: "cash", Name: "Cash"}, {ID: "card", Name: "Card"}}, methods)
}

func TestRefresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	s, stub := setup(t)
	r := New(stub, s, "c1", "s1", quiet())

	_, err := r.Refresh(ctx)
	require.NoError(t, err)

	stub.SetCatalog(nil, nil, nil)
	stub.SetOffline(true)

	_, err = r.Refresh(ctx)
	require.Error(t, err)
	assert.True(t, sale.IsNetworkError(err))

	products, err := r.Products(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestRefresh_OfflineSkipsFetch(t *testing.T) {
	s, stub := setup(t)
	r := New(stub, s, "c1", "", WithStatusSource(onlineFlag(false)), quiet())

	_, err := r.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOffline)
}

func TestProducts_EmptyCache(t *testing.T) {
	s, stub := setup(t)
	r := New(stub, s, "c1", "", quiet())

	products, err := r.Products(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestRefresh_WithoutStoreLocation(t *testing.T) {
	ctx := context.Background()
	s, stub := setup(t)
	r := New(stub, s, "c1", "", WithStatusSource(onlineFlag(true)), quiet())

	_, err := r.Refresh(ctx)
	require.NoError(t, err)

	products, err := r.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.True(t, products[0].StockQuantity.IsZero())
	assert.Empty(t, products[0].Balances)
}

func TestProducts_SortedByName(t *testing.T) {
	ctx := context.Background()
	s, stub := setup(t)
	stub.SetCatalog([]sale.Product{
		{ID: "p1", CompanyID: "c1", Name: "milk"},
		{ID: "p2", CompanyID: "c1", Name: "Яблоко"},
		{ID: "p3", CompanyID: "c1", Name: "Bread"},
		{ID: "p4", CompanyID: "c1", Name: "Éclair"},
		{ID: "p5", CompanyID: "c1", Name: "Апельсин"},
	}, nil, nil)
	r := New(stub, s, "c1", "", quiet())

	_, err := r.Refresh(ctx)
	require.NoError(t, err)

	products, err := r.Products(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Bread", "Éclair", "milk", "Апельсин", "Яблоко"}, names)
}

func TestRefresh_WriteFailureKeepsBothCaches(t *testing.T) {
	ctx := context.Background()
	s, stub := setup(t)
	r := New(stub, s, "c1", "s1", quiet())

	_, err := r.Refresh(ctx)
	require.NoError(t, err)

	// A repeated payment-method id fails the write after the catalog part
	stub.SetCatalog(
		[]sale.Product{{ID: "p9", CompanyID: "c1", Name: "Cheese"}},
		nil,
		[]sale.PaymentMethod{{ID: "qr", Name: "QR"}, {ID: "qr", Name: "QR"}},
	)
	_, err = r.Refresh(ctx)
	require.Error(t, err)
	assert.True(t, sale.IsStorageError(err))

	products, err := r.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Bread", products[0].Name)

	methods, err := r.PaymentMethods(ctx)
	require.NoError(t, err)
	assert.Equal(t, []sale.PaymentMethod{{ID: "cash", Name: "Cash"}, {ID: "card", Name: "Card"}}, methods)
}
