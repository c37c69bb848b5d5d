// Package checkout turns finalized sales into durable intents.
//
// Enqueue is the only way a sale enters the intent store. It never talks to
// the network: the sale is on disk before any sync attempt can start, so a
// crash right after checkout loses nothing.
package checkout

import (
	"context"
	"log/slog"

	"github.com/kassir-pos/possync/internal/sale"
)

// Appender persists intents. Implemented by *store.Store.
type Appender interface {
	Append(ctx context.Context, in sale.Intent) (string, error)
}

// Checkout is the enqueue API.
type Checkout struct {
	store   Appender
	ids     IDGenerator
	clock   Clock
	trigger func()
	logger  *slog.Logger

	companyID       string
	storeLocationID string
}

// Option configures a Checkout.
type Option func(*Checkout)

// WithIDGenerator replaces the UUIDv7 id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Checkout) { c.ids = g }
}

// WithClock replaces the wall clock used for created_at.
func WithClock(cl Clock) Option {
	return func(c *Checkout) { c.clock = cl }
}

// WithSyncTrigger sets the function EnqueueAndSync calls after a
// successful write. It must not block.
func WithSyncTrigger(fn func()) Option {
	return func(c *Checkout) { c.trigger = fn }
}

// WithDefaults fills company and store location for sales that omit them.
func WithDefaults(companyID, storeLocationID string) Option {
	return func(c *Checkout) {
		c.companyID = companyID
		c.storeLocationID = storeLocationID
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Checkout) { c.logger = l }
}

// New creates a Checkout writing to s.
func New(s Appender, opts ...Option) *Checkout {
	c := &Checkout{
		store:  s,
		ids:    UUIDv7Generator{},
		clock:  systemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enqueue validates data and writes it as a pending intent.
// Returns the new local id. Performs no network call.
//
// Errors are INVALID_SALE (nothing written) or STORAGE (nothing written,
// the sale must be kept by the caller).
func (c *Checkout) Enqueue(ctx context.Context, data sale.SaleData) (string, error) {
	if data.CompanyID == "" {
		data.CompanyID = c.companyID
	}
	if data.StoreLocationID == "" {
		data.StoreLocationID = c.storeLocationID
	}
	if err := sale.Validate(data); err != nil {
		return "", err
	}

	in := sale.NewIntent(c.ids.Generate(), data, c.clock.Now())
	localID, err := c.store.Append(ctx, in)
	if err != nil {
		c.logger.Error("sale not saved", "error", err)
		return "", err
	}

	c.logger.Info("sale saved",
		"local_id", localID,
		"total_amount", in.TotalAmount.String(),
		"items", len(in.Items),
	)
	return localID, nil
}

// EnqueueAndSync writes the sale, then asks for a sync run in the
// background. The sync outcome does not affect the returned id.
func (c *Checkout) EnqueueAndSync(ctx context.Context, data sale.SaleData) (string, error) {
	localID, err := c.Enqueue(ctx, data)
	if err != nil {
		return "", err
	}
	if c.trigger != nil {
		c.trigger()
	}
	return localID, nil
}
