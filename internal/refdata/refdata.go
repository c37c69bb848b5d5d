// Package refdata keeps the local catalog and payment-method caches.
//
// The caches are refreshed wholesale from the backend while online and read
// locally at all times, so the register can sell from the last snapshot when
// the network is down.
package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/kassir-pos/possync/internal/sale"
	"github.com/kassir-pos/possync/internal/store"
)

// ErrOffline is returned by Refresh when the status source reports offline.
var ErrOffline = errors.New("offline")

// Fetcher loads reference data from the backend.
// Implemented by *remote.Client.
type Fetcher interface {
	Products(ctx context.Context, companyID string) ([]sale.Product, error)
	ProductBalances(ctx context.Context, storeLocationID string) ([]sale.Balance, error)
	PaymentMethods(ctx context.Context, companyID string) ([]sale.PaymentMethod, error)
}

// Cache is the local snapshot storage. Implemented by *store.Store.
type Cache interface {
	ReplaceSnapshots(ctx context.Context, snaps ...store.Snapshot) error
	GetAll(ctx context.Context, cache store.Cache) ([]store.Record, error)
}

// StatusSource reports connectivity. Implemented by *netmon.Monitor.
type StatusSource interface {
	IsOnline() bool
}

// Summary reports what a refresh wrote.
type Summary struct {
	Products       int `json:"products"`
	PaymentMethods int `json:"payment_methods"`
}

// Refresher refreshes and reads the reference-data caches of one register.
type Refresher struct {
	fetcher         Fetcher
	cache           Cache
	status          StatusSource
	companyID       string
	storeLocationID string
	logger          *slog.Logger
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithStatusSource makes Refresh fail fast with ErrOffline while offline.
func WithStatusSource(s StatusSource) Option {
	return func(r *Refresher) { r.status = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Refresher) { r.logger = l }
}

// New creates a Refresher for the given company and store location.
// An empty storeLocationID skips stock balances.
func New(f Fetcher, c Cache, companyID, storeLocationID string, opts ...Option) *Refresher {
	r := &Refresher{
		fetcher:         f,
		cache:           c,
		companyID:       companyID,
		storeLocationID: storeLocationID,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh downloads the catalog and payment methods and replaces both
// caches in one transaction. Nothing is written unless every fetch and the
// write succeeded, so a failed refresh leaves the previous snapshots in place.
func (r *Refresher) Refresh(ctx context.Context) (Summary, error) {
	if r.status != nil && !r.status.IsOnline() {
		return Summary{}, sale.NetworkError("refresh reference data", ErrOffline)
	}

	products, err := r.fetcher.Products(ctx, r.companyID)
	if err != nil {
		return Summary{}, err
	}
	if r.storeLocationID != "" {
		balances, err := r.fetcher.ProductBalances(ctx, r.storeLocationID)
		if err != nil {
			return Summary{}, err
		}
		attachBalances(products, balances)
	}
	methods, err := r.fetcher.PaymentMethods(ctx, r.companyID)
	if err != nil {
		return Summary{}, err
	}

	productRecords, err := toRecords(products, func(p sale.Product) string { return p.ID })
	if err != nil {
		return Summary{}, err
	}
	methodRecords, err := toRecords(methods, func(m sale.PaymentMethod) string { return m.ID })
	if err != nil {
		return Summary{}, err
	}

	err = r.cache.ReplaceSnapshots(ctx,
		store.Snapshot{Cache: store.CacheProducts, Records: productRecords},
		store.Snapshot{Cache: store.CachePaymentMethods, Records: methodRecords},
	)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Products: len(products), PaymentMethods: len(methods)}
	r.logger.Info("reference data refreshed",
		"products", sum.Products,
		"payment_methods", sum.PaymentMethods,
	)
	return sum, nil
}

// Products returns the cached catalog sorted by name, with stock recomputed
// from balances.
func (r *Refresher) Products(ctx context.Context) ([]sale.Product, error) {
	products, err := fromRecords[sale.Product](ctx, r.cache, store.CacheProducts)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].RecomputeStock()
	}
	sortByName(products)
	return products, nil
}

// sortByName orders products the way a cashier reads them: locale-aware,
// case-insensitive, stable for equal names.
func sortByName(products []sale.Product) {
	// A Collator keeps scratch buffers; one per call.
	col := collate.New(language.Und, collate.IgnoreCase)
	slices.SortStableFunc(products, func(a, b sale.Product) int {
		return col.CompareString(a.Name, b.Name)
	})
}

// PaymentMethods returns the cached payment methods.
func (r *Refresher) PaymentMethods(ctx context.Context) ([]sale.PaymentMethod, error) {
	return fromRecords[sale.PaymentMethod](ctx, r.cache, store.CachePaymentMethods)
}

func attachBalances(products []sale.Product, balances []sale.Balance) {
	byProduct := make(map[string][]sale.Balance, len(balances))
	for _, b := range balances {
		byProduct[b.ProductID] = append(byProduct[b.ProductID], b)
	}
	for i := range products {
		products[i].Balances = byProduct[products[i].ID]
		products[i].RecomputeStock()
	}
}

func toRecords[T any](items []T, key func(T) string) ([]store.Record, error) {
	records := make([]store.Record, 0, len(items))
	for _, it := range items {
		data, err := json.Marshal(it)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key(it), err)
		}
		records = append(records, store.Record{Key: key(it), Data: data})
	}
	return records, nil
}

func fromRecords[T any](ctx context.Context, c Cache, cache store.Cache) ([]T, error) {
	records, err := c.GetAll(ctx, cache)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, rec := range records {
		var v T
		if err := json.Unmarshal(rec.Data, &v); err != nil {
			return nil, sale.StorageError(fmt.Sprintf("decode %s record %q", cache, rec.Key), err)
		}
		out = append(out, v)
	}
	return out, nil
}
