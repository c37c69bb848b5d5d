package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kassir-pos/possync/internal/checkout"
	"github.com/kassir-pos/possync/internal/engine"
	"github.com/kassir-pos/possync/internal/netmon"
	"github.com/kassir-pos/possync/internal/sale"
	"github.com/kassir-pos/possync/internal/store"
	"github.com/kassir-pos/possync/internal/testutil"
)

// DefaultCompanyID fills sales of scenarios that set no company.
const DefaultCompanyID = "company-1"

// Completion output cases shared by every step.
const (
	CaseOK        = "ok"
	CaseConfirmed = "confirmed"
	CaseRejected  = "rejected"
	CaseNetwork   = "network_error"
	CaseNotFound  = "not_found"
)

// Harness executes one scenario against real components and a stub backend.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	monitor  *netmon.Monitor
	checkout *checkout.Checkout
	stub     *testutil.StubRemote
	remote   *tracingRemote
	result   *Result
	seq      int64
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// The returned error reports a harness failure; a failing scenario is
// reported through Result.Pass and Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in scenarios

	online := scenario.Online == nil || *scenario.Online
	stub := testutil.NewStubRemote()
	stub.SetOffline(!online)

	monitor := netmon.New(nil, netmon.WithInitialState(online), netmon.WithLogger(logger))
	defer monitor.Close()

	companyID := scenario.CompanyID
	if companyID == "" {
		companyID = DefaultCompanyID
	}

	h := &Harness{
		store:   st,
		monitor: monitor,
		stub:    stub,
		result:  NewResult(),
		logger:  logger,
	}
	h.remote = &tracingRemote{h: h, stub: stub}
	h.engine = engine.New(st, h.remote,
		engine.WithStatusSource(monitor),
		engine.WithLogger(logger),
	)
	h.checkout = checkout.New(st,
		checkout.WithIDGenerator(testutil.NewSequenceGenerator("local")),
		checkout.WithClock(testutil.NewDeterministicClock(time.Time{}, 0)),
		checkout.WithDefaults(companyID, ""),
		checkout.WithLogger(logger),
	)

	if scenario.Remote != nil {
		h.applyRemote(*scenario.Remote)
	}

	ctx := context.Background()
	if err := h.executeFlow(ctx, scenario.Flow); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(errMsg)
	}
	return h.result, nil
}

func (h *Harness) nextSeq() int64 {
	h.seq++
	return h.seq
}

// executeFlow runs all flow steps and validates expect clauses.
//
// Each step is traced as an invocation, followed by the backend calls it
// made, followed by its completion.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep) error {
	for i, step := range flow {
		h.result.AddInvocationTrace(step.Invoke, stepArgs(step), h.nextSeq())

		outCase, res, err := h.execute(ctx, step)
		if err != nil {
			return fmt.Errorf("flow step %d (%s): %w", i, step.Invoke, err)
		}
		h.result.AddCompletionTrace(outCase, res, h.nextSeq())

		if step.Expect != nil {
			h.checkExpect(i, step, outCase, res)
		}
		h.logger.Info("flow step completed",
			"step", i,
			"action", step.Invoke,
			"output_case", outCase,
		)
	}
	return nil
}

func (h *Harness) execute(ctx context.Context, step FlowStep) (string, map[string]any, error) {
	switch step.Invoke {
	case StepEnqueue:
		localID, err := h.checkout.Enqueue(ctx, step.Sale.SaleData())
		if err != nil {
			return errorCase(err)
		}
		return CaseOK, map[string]any{"local_id": localID}, nil

	case StepSync:
		res, err := h.engine.RunSync(ctx)
		if err != nil {
			return errorCase(err)
		}
		return CaseOK, syncResult(res), nil

	case StepOnline, StepOffline:
		online := step.Invoke == StepOnline
		h.stub.SetOffline(!online)
		h.monitor.SetOnline(online)
		return CaseOK, nil, nil

	case StepRemote:
		h.applyRemote(*step.Remote)
		return CaseOK, nil, nil

	case StepCrashAfterConfirm:
		return h.crashAfterConfirm(ctx, step.Comment)
	}
	return "", nil, fmt.Errorf("unknown step %q", step.Invoke)
}

// crashAfterConfirm leaves an intent in the state a process killed between
// recording the confirmation and removing the intent would leave it.
func (h *Harness) crashAfterConfirm(ctx context.Context, comment string) (string, map[string]any, error) {
	intents, err := h.store.ListAll(ctx)
	if err != nil {
		return "", nil, err
	}
	for _, in := range intents {
		if in.Comment != comment || in.Status != sale.StatusPending {
			continue
		}
		conf, err := h.remote.ConfirmSale(ctx, in.ConfirmRequest())
		if err != nil {
			return errorCase(err)
		}
		if !conf.Success {
			return CaseRejected, nil, nil
		}
		if err := h.store.MarkSynced(ctx, in.LocalID, conf.RemoteID); err != nil {
			return errorCase(err)
		}
		return CaseOK, map[string]any{"local_id": in.LocalID, "sale_id": conf.RemoteID}, nil
	}
	return CaseNotFound, nil, nil
}

func (h *Harness) applyRemote(script RemoteScript) {
	if script.Clear {
		h.stub.ClearRules()
	}
	for _, r := range script.Reject {
		h.stub.Reject(ruleMatch(r), r.Message)
	}
	for _, r := range script.Fail {
		msg := r.Message
		if msg == "" {
			msg = "scripted failure"
		}
		h.stub.Fail(ruleMatch(r), errors.New(msg))
	}
	for _, r := range script.Succeed {
		h.stub.Succeed(ruleMatch(r), r.SaleID)
	}
}

func (h *Harness) checkExpect(i int, step FlowStep, outCase string, res map[string]any) {
	if outCase != step.Expect.Case {
		h.result.AddError(fmt.Sprintf("flow[%d] %s: expected case %q, got %q", i, step.Invoke, step.Expect.Case, outCase))
		return
	}
	for _, key := range sortedKeys(step.Expect.Result) {
		want := step.Expect.Result[key]
		got, ok := res[key]
		if !ok || !scalarEqual(want, got) {
			h.result.AddError(fmt.Sprintf("flow[%d] %s: expected %s = %v, got %v", i, step.Invoke, key, want, got))
		}
	}
}

// tracingRemote records every confirmation call in the trace.
type tracingRemote struct {
	h    *Harness
	stub *testutil.StubRemote
}

func (r *tracingRemote) ConfirmSale(ctx context.Context, req sale.ConfirmRequest) (sale.Confirmation, error) {
	r.h.result.AddInvocationTrace(ActionRemoteConfirm, saleArgs(req.Comment, req.TotalAmount.String()), r.h.nextSeq())

	conf, err := r.stub.ConfirmSale(ctx, req)
	switch {
	case err != nil:
		r.h.result.AddCompletionTrace(CaseNetwork, nil, r.h.nextSeq())
	case !conf.Success:
		r.h.result.AddCompletionTrace(CaseRejected, map[string]any{"message": conf.Message}, r.h.nextSeq())
	default:
		r.h.result.AddCompletionTrace(CaseConfirmed, map[string]any{"sale_id": conf.RemoteID}, r.h.nextSeq())
	}
	return conf, err
}

func ruleMatch(r RemoteRule) testutil.Match {
	if r.Comment == "" {
		return testutil.MatchAll()
	}
	return testutil.MatchComment(r.Comment)
}

func stepArgs(step FlowStep) map[string]any {
	switch step.Invoke {
	case StepEnqueue:
		data := step.Sale.SaleData()
		return saleArgs(data.Comment, data.TotalAmount.String())
	case StepCrashAfterConfirm:
		return map[string]any{"comment": step.Comment}
	}
	return nil
}

func saleArgs(comment, total string) map[string]any {
	args := map[string]any{"total_amount": total}
	if comment != "" {
		args["comment"] = comment
	}
	return args
}

func syncResult(res engine.Result) map[string]any {
	m := map[string]any{
		"success":              res.Success,
		"errors":               res.Errors,
		"best_effort_failures": res.BestEffortFailures,
	}
	if res.Skipped != "" {
		m["skipped"] = string(res.Skipped)
	}
	return m
}

// errorCase turns a typed error into its code as the output case.
// Untyped errors abort the scenario.
func errorCase(err error) (string, map[string]any, error) {
	code := sale.CodeOf(err)
	if code == "" {
		return "", nil, err
	}
	return string(code), nil, nil
}
