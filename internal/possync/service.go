// Package possync assembles the sale synchronization service of one
// register: intent store, sync engine, network monitor, checkout and
// reference data, with an explicit Start/Close lifecycle.
package possync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kassir-pos/possync/internal/checkout"
	"github.com/kassir-pos/possync/internal/engine"
	"github.com/kassir-pos/possync/internal/netmon"
	"github.com/kassir-pos/possync/internal/refdata"
	"github.com/kassir-pos/possync/internal/remote"
	"github.com/kassir-pos/possync/internal/sale"
	"github.com/kassir-pos/possync/internal/store"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("service closed")

// Backend is everything the service needs from the hosted backend.
// Implemented by *remote.Client and testutil.StubRemote.
type Backend interface {
	engine.Confirmer
	netmon.Prober
	refdata.Fetcher
	remote.StockTransferer
}

// Deps are the collaborators owned by the service. Close closes Store.
type Deps struct {
	Store   *store.Store
	Backend Backend
}

// Options tune the service. Zero values select defaults.
type Options struct {
	CompanyID       string
	StoreLocationID string

	// WarehouseID enables the stock transfer step after each confirmed
	// sale. Empty disables it.
	WarehouseID string

	// ProbeInterval is the connectivity probe period (netmon.DefaultInterval).
	ProbeInterval time.Duration

	IDs   checkout.IDGenerator
	Clock checkout.Clock

	// OnBestEffortError receives failed best-effort steps.
	OnBestEffortError func(*engine.BestEffortError)

	Logger *slog.Logger
}

// Status is a snapshot of connectivity and queue depth.
type Status struct {
	Online  bool `json:"online"`
	Pending int  `json:"pending"`
	Synced  int  `json:"synced"`
}

// Service is the single long-lived synchronization service of a process.
type Service struct {
	store    *store.Store
	engine   *engine.Engine
	monitor  *netmon.Monitor
	checkout *checkout.Checkout
	refdata  *refdata.Refresher
	logger   *slog.Logger

	bgCtx    context.Context
	bgCancel context.CancelFunc
	wg       sync.WaitGroup

	mu       sync.Mutex
	started  bool
	closed   bool
	stopLoop context.CancelFunc
	loopDone chan struct{}
}

// New wires a service. Nothing runs until Start.
func New(deps Deps, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	monOpts := []netmon.Option{netmon.WithLogger(logger.With("component", "netmon"))}
	if opts.ProbeInterval > 0 {
		monOpts = append(monOpts, netmon.WithInterval(opts.ProbeInterval))
	}
	monitor := netmon.New(deps.Backend, monOpts...)

	engOpts := []engine.Option{
		engine.WithStatusSource(monitor),
		engine.WithLogger(logger.With("component", "engine")),
	}
	if opts.WarehouseID != "" {
		engOpts = append(engOpts, engine.WithBestEffortSteps(&remote.TransferStockStep{
			Transferer:  deps.Backend,
			WarehouseID: opts.WarehouseID,
		}))
	}
	if opts.OnBestEffortError != nil {
		engOpts = append(engOpts, engine.WithBestEffortErrorHandler(opts.OnBestEffortError))
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	s := &Service{
		store:    deps.Store,
		engine:   engine.New(deps.Store, deps.Backend, engOpts...),
		monitor:  monitor,
		refdata:  refdata.New(deps.Backend, deps.Store, opts.CompanyID, opts.StoreLocationID, refdata.WithStatusSource(monitor), refdata.WithLogger(logger.With("component", "refdata"))),
		logger:   logger,
		bgCtx:    bgCtx,
		bgCancel: bgCancel,
	}

	coOpts := []checkout.Option{
		checkout.WithDefaults(opts.CompanyID, opts.StoreLocationID),
		checkout.WithSyncTrigger(func() { s.triggerSync("enqueue") }),
		checkout.WithLogger(logger.With("component", "checkout")),
	}
	if opts.IDs != nil {
		coOpts = append(coOpts, checkout.WithIDGenerator(opts.IDs))
	}
	if opts.Clock != nil {
		coOpts = append(coOpts, checkout.WithClock(opts.Clock))
	}
	s.checkout = checkout.New(deps.Store, coOpts...)
	return s
}

// Start probes connectivity once, starts a sync of whatever survived the
// previous process, subscribes to online edges and starts the probe loop.
// It returns after the first probe; the sync continues in the background.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	loopCtx, stop := context.WithCancel(s.bgCtx)
	s.stopLoop = stop
	s.loopDone = make(chan struct{})
	s.mu.Unlock()

	online := s.monitor.Check(ctx)
	s.logger.Info("service started", "online", online)
	s.triggerSync("startup")

	s.monitor.OnOnline(func(ctx context.Context) {
		s.syncNow(ctx, "online")
	})

	go func() {
		defer close(s.loopDone)
		s.monitor.Run(loopCtx)
	}()
	return nil
}

// Close stops the probe loop, cancels and waits for every background sync
// and closes the store. Safe to call more than once.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stop, done := s.stopLoop, s.loopDone
	s.mu.Unlock()

	s.bgCancel()
	if stop != nil {
		stop()
		<-done
	}
	s.monitor.Close()
	s.wg.Wait()
	return s.store.Close()
}

// triggerSync starts a tracked background run unless the service is closed.
func (s *Service) triggerSync(reason string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.syncNow(s.bgCtx, reason)
	}()
}

func (s *Service) syncNow(ctx context.Context, reason string) {
	res, err := s.engine.RunSync(ctx)
	if err != nil {
		s.logger.Error("sync failed", "trigger", reason, "error", err)
		return
	}
	s.logger.Debug("sync done",
		"trigger", reason,
		"success", res.Success,
		"errors", res.Errors,
		"skipped", res.Skipped,
	)
}

// Enqueue writes a sale as a pending intent. No network call.
func (s *Service) Enqueue(ctx context.Context, data sale.SaleData) (string, error) {
	return s.checkout.Enqueue(ctx, data)
}

// EnqueueAndSync writes a sale and starts a background sync.
func (s *Service) EnqueueAndSync(ctx context.Context, data sale.SaleData) (string, error) {
	return s.checkout.EnqueueAndSync(ctx, data)
}

// RunSync is the explicit "sync now" trigger. While the monitor believes
// it is offline, connectivity is probed first.
func (s *Service) RunSync(ctx context.Context) (engine.Result, error) {
	if !s.monitor.IsOnline() {
		s.monitor.Check(ctx)
	}
	return s.engine.RunSync(ctx)
}

// IsOnline reports the last known connectivity.
func (s *Service) IsOnline() bool {
	return s.monitor.IsOnline()
}

// CheckOnline probes the backend now and returns the resulting state.
func (s *Service) CheckOnline(ctx context.Context) bool {
	return s.monitor.Check(ctx)
}

// SetOnline records a connectivity change reported by the platform.
func (s *Service) SetOnline(online bool) {
	s.monitor.SetOnline(online)
}

// QueueEntry is a stored intent as listed to operators.
type QueueEntry struct {
	sale.Intent

	// DuplicateOf is the local id of an earlier intent carrying the same
	// sale payload, when there is one. Posting both records the sale twice.
	DuplicateOf string `json:"duplicate_of,omitempty"`
}

// Queue lists every intent still in the store, oldest first, flagging
// intents that repeat an earlier one.
func (s *Service) Queue(ctx context.Context) ([]QueueEntry, error) {
	intents, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	dups, err := s.store.DuplicateFingerprints(ctx)
	if err != nil {
		return nil, err
	}
	firstOf := make(map[string]string)
	for first, later := range dups {
		for _, id := range later {
			firstOf[id] = first
		}
	}

	entries := make([]QueueEntry, 0, len(intents))
	for _, in := range intents {
		entries = append(entries, QueueEntry{Intent: in, DuplicateOf: firstOf[in.LocalID]})
	}
	if len(firstOf) > 0 {
		s.logger.Warn("queue holds repeated sales", "duplicates", len(firstOf))
	}
	return entries, nil
}

// Status returns connectivity and queue counts.
func (s *Service) Status(ctx context.Context) (Status, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Online:  s.monitor.IsOnline(),
		Pending: counts[sale.StatusPending],
		Synced:  counts[sale.StatusSynced],
	}, nil
}

// Refresh reloads the reference-data caches, probing first when offline.
func (s *Service) Refresh(ctx context.Context) (refdata.Summary, error) {
	if !s.monitor.IsOnline() {
		s.monitor.Check(ctx)
	}
	return s.refdata.Refresh(ctx)
}

// Products returns the cached catalog.
func (s *Service) Products(ctx context.Context) ([]sale.Product, error) {
	return s.refdata.Products(ctx)
}

// PaymentMethods returns the cached payment methods.
func (s *Service) PaymentMethods(ctx context.Context) ([]sale.PaymentMethod, error) {
	return s.refdata.PaymentMethods(ctx)
}

// Setting returns a stored setting.
func (s *Service) Setting(ctx context.Context, key string) (string, bool, error) {
	return s.store.GetSetting(ctx, key)
}

// PutSetting stores a setting.
func (s *Service) PutSetting(ctx context.Context, key, value string) error {
	return s.store.PutSetting(ctx, key, value)
}
