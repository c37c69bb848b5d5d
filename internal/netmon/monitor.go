// Package netmon tracks connectivity to the backend and reports each
// offline-to-online transition exactly once.
package netmon

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the time between connectivity probes.
const DefaultInterval = 15 * time.Second

// Prober checks connectivity. A nil error means online.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

// Probe calls f(ctx).
func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// Monitor holds the current connectivity state.
//
// Callbacks registered with OnOnline run on their own goroutine once per
// false->true edge. They receive a context that is cancelled by Close.
type Monitor struct {
	prober   Prober
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	online    bool
	callbacks []func(context.Context)
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the probe interval used by Run.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// WithLogger sets the logger for state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// WithInitialState sets the state the monitor starts in. The default is
// offline, so the first successful probe is an online edge.
func WithInitialState(online bool) Option {
	return func(m *Monitor) { m.online = online }
}

// New creates a monitor. prober may be nil when state is only driven by
// SetOnline.
func New(prober Prober, opts ...Option) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		prober:   prober,
		interval: DefaultInterval,
		logger:   slog.Default(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsOnline returns the current connectivity state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnOnline registers fn to run on every future offline-to-online edge.
func (m *Monitor) OnOnline(fn func(context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// SetOnline records a connectivity change. Only a false->true transition
// fires callbacks; repeating the current state does nothing.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online

	if !online {
		m.mu.Unlock()
		m.logger.Info("network offline")
		return
	}

	if m.closed {
		m.mu.Unlock()
		return
	}
	callbacks := make([]func(context.Context), len(m.callbacks))
	copy(callbacks, m.callbacks)
	// Add under the lock so Close never waits on a half-registered group.
	m.wg.Add(len(callbacks))
	m.mu.Unlock()

	m.logger.Info("network online", "callbacks", len(callbacks))
	for _, fn := range callbacks {
		go func() {
			defer m.wg.Done()
			fn(m.ctx)
		}()
	}
}

// Check probes once and records the result. Returns the new state.
func (m *Monitor) Check(ctx context.Context) bool {
	if m.prober == nil {
		return m.IsOnline()
	}
	err := m.prober.Probe(ctx)
	if err != nil && ctx.Err() != nil {
		// Cancelled mid-probe; the state is unknown, keep the old one.
		return m.IsOnline()
	}
	if err != nil {
		m.logger.Debug("probe failed", "error", err)
	}
	m.SetOnline(err == nil)
	return err == nil
}

// Run probes every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	if m.prober == nil {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Close cancels the context handed to callbacks, stops new callbacks from
// starting and waits for running ones to return.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}
