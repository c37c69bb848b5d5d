package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kassir-pos/possync/internal/sale"
)

// Store is the part of the intent store the engine needs.
// Implemented by *store.Store.
type Store interface {
	ListAll(ctx context.Context) ([]sale.Intent, error)
	MarkSynced(ctx context.Context, localID, remoteID string) error
	Remove(ctx context.Context, localID string) error
}

// Confirmer posts a sale to the backend. Implemented by *remote.Client.
//
// A transport failure is returned as an error. A backend refusal is a
// Confirmation with Success=false.
type Confirmer interface {
	ConfirmSale(ctx context.Context, req sale.ConfirmRequest) (sale.Confirmation, error)
}

// StatusSource reports connectivity. Implemented by *netmon.Monitor.
type StatusSource interface {
	IsOnline() bool
}

// BestEffortStep is an optional follow-up to a confirmed sale.
// It runs after the intent has been removed from the store.
type BestEffortStep interface {
	Name() string
	Run(ctx context.Context, in sale.Intent, remoteID string) error
}

// Result is the aggregate outcome of one run.
type Result struct {
	// Success counts intents confirmed and removed during the run,
	// including intents recovered from an earlier interrupted run.
	Success int `json:"success"`

	// Errors counts intents left in the store.
	Errors int `json:"errors"`

	// BestEffortFailures counts failed best-effort steps. Not part of
	// Success or Errors.
	BestEffortFailures int `json:"best_effort_failures"`

	// Skipped is set when the run did nothing.
	Skipped SkipReason `json:"skipped,omitempty"`
}

// Engine runs sync passes. It is safe for concurrent use; overlapping
// RunSync calls collapse into the one already in progress.
type Engine struct {
	store   Store
	remote  Confirmer
	status  StatusSource
	steps   []BestEffortStep
	onError func(*BestEffortError)
	logger  *slog.Logger

	running atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithStatusSource makes RunSync return immediately while offline.
func WithStatusSource(s StatusSource) Option {
	return func(e *Engine) { e.status = s }
}

// WithBestEffortSteps appends steps that run after each confirmed sale,
// in the order given.
func WithBestEffortSteps(steps ...BestEffortStep) Option {
	return func(e *Engine) { e.steps = append(e.steps, steps...) }
}

// WithBestEffortErrorHandler receives every failed best-effort step.
// The handler runs on the sync goroutine and must not block.
func WithBestEffortErrorHandler(fn func(*BestEffortError)) Option {
	return func(e *Engine) { e.onError = fn }
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine over the given store and backend.
func New(s Store, remote Confirmer, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		remote: remote,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Running reports whether a run is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// RunSync drains the store once.
//
// It returns an error only when the intents cannot be listed; the run is
// then abandoned with nothing processed. Every per-intent failure is
// counted in Result.Errors and the run moves on to the next intent.
//
// Cancelling ctx stops the run before the next intent; the intents not
// reached are counted as errors.
func (e *Engine) RunSync(ctx context.Context) (Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		e.logger.Debug("sync skipped", "reason", SkipAlreadyRunning)
		return Result{Skipped: SkipAlreadyRunning}, nil
	}
	defer e.running.Store(false)

	if e.status != nil && !e.status.IsOnline() {
		e.logger.Debug("sync skipped", "reason", SkipOffline)
		return Result{Skipped: SkipOffline}, nil
	}

	start := time.Now()
	intents, err := e.store.ListAll(ctx)
	if err != nil {
		e.logger.Error("sync aborted: cannot list intents", "error", err)
		return Result{}, fmt.Errorf("run sync: %w", err)
	}

	var res Result
	for i, in := range intents {
		if ctx.Err() != nil {
			res.Errors += len(intents) - i
			e.logger.Warn("sync interrupted",
				"remaining", len(intents)-i,
				"error", ctx.Err(),
			)
			break
		}

		remoteID, err := e.syncOne(ctx, in)
		if err != nil {
			res.Errors++
			e.logger.Warn("intent not synced",
				"local_id", in.LocalID,
				"code", sale.CodeOf(err),
				"error", err,
			)
			continue
		}
		res.Success++
		res.BestEffortFailures += e.runBestEffort(ctx, in, remoteID)
	}

	if len(intents) > 0 {
		e.logger.Info("sync finished",
			"intents", len(intents),
			"success", res.Success,
			"errors", res.Errors,
			"best_effort_failures", res.BestEffortFailures,
			"duration", time.Since(start),
		)
	}
	return res, nil
}

// syncOne moves a single intent to removed. It returns the backend id on
// success. On error the intent is in the same durable state as before, or
// synced if only the removal failed.
func (e *Engine) syncOne(ctx context.Context, in sale.Intent) (string, error) {
	if in.Recovered() {
		if err := e.store.Remove(ctx, in.LocalID); err != nil {
			return "", err
		}
		e.logger.Info("recovered confirmed intent",
			"local_id", in.LocalID,
			"remote_id", in.RemoteID,
		)
		return in.RemoteID, nil
	}

	if in.Status != sale.StatusPending {
		return "", fmt.Errorf("intent %s: unexpected status %q", in.LocalID, in.Status)
	}

	conf, err := e.remote.ConfirmSale(ctx, in.ConfirmRequest())
	if err != nil {
		return "", err
	}
	if !conf.Success {
		return "", sale.RemoteRejection(in.LocalID, conf.Message)
	}
	if conf.RemoteID == "" {
		// Without an id the synced state cannot be recorded; retry later.
		return "", sale.RemoteRejection(in.LocalID, "confirmation carried no sale_id")
	}

	// The backend now holds the sale. Recording it must survive
	// cancellation of the run, or the next run posts it again.
	wctx := context.WithoutCancel(ctx)
	if err := e.store.MarkSynced(wctx, in.LocalID, conf.RemoteID); err != nil {
		// The backend has the sale but we could not record it. The next run
		// will post it again.
		e.logger.Error("confirmed sale not recorded",
			"local_id", in.LocalID,
			"remote_id", conf.RemoteID,
			"error", err,
		)
		return "", err
	}
	if err := e.store.Remove(wctx, in.LocalID); err != nil {
		return "", err
	}

	e.logger.Debug("intent synced",
		"local_id", in.LocalID,
		"remote_id", conf.RemoteID,
	)
	return conf.RemoteID, nil
}

// runBestEffort runs every step and returns the number that failed.
func (e *Engine) runBestEffort(ctx context.Context, in sale.Intent, remoteID string) int {
	failed := 0
	for _, step := range e.steps {
		err := step.Run(ctx, in, remoteID)
		if err == nil {
			continue
		}
		failed++
		be := &BestEffortError{
			Step:     step.Name(),
			LocalID:  in.LocalID,
			RemoteID: remoteID,
			Err:      err,
		}
		e.logger.Warn("best-effort step failed",
			"step", be.Step,
			"local_id", be.LocalID,
			"remote_id", be.RemoteID,
			"error", err,
		)
		if e.onError != nil {
			e.onError(be)
		}
	}
	return failed
}
