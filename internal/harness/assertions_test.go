package harness

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassir-pos/possync/internal/sale"
	"github.com/kassir-pos/possync/internal/store"
)

func sampleTrace() []TraceEvent {
	r := NewResult()
	r.AddInvocationTrace("enqueue", map[string]any{"comment": "a", "total_amount": "100"}, 1)
	r.AddCompletionTrace(CaseOK, map[string]any{"local_id": "local-0001"}, 2)
	r.AddInvocationTrace("sync", nil, 3)
	r.AddInvocationTrace(ActionRemoteConfirm, map[string]any{"comment": "a", "total_amount": "100"}, 4)
	r.AddCompletionTrace(CaseConfirmed, map[string]any{"sale_id": "S1"}, 5)
	r.AddCompletionTrace(CaseOK, nil, 6)
	return r.Trace
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Action: "enqueue", Args: map[string]any{"comment": "a"}}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Action: "sync"}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Action: "enqueue", Args: map[string]any{"total_amount": 100}}),
		"numbers match their printed form")

	err := assertTraceContains(trace, Assertion{Action: "enqueue", Args: map[string]any{"comment": "b"}})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceContains, ae.Type)
	assert.Contains(t, err.Error(), "Full trace:")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{"enqueue", "sync", ActionRemoteConfirm}}))
	assert.Error(t, assertTraceOrder(trace, Assertion{Actions: []string{"sync", "enqueue"}}))
	assert.Error(t, assertTraceOrder(trace, Assertion{Actions: []string{"enqueue", "online"}}))
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Action: ActionRemoteConfirm, Count: 1}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Action: ActionRemoteConfirm, Args: map[string]any{"comment": "z"}, Count: 0}))
	assert.Error(t, assertTraceCount(trace, Assertion{Action: "sync", Count: 2}))
}

func TestStateAssertions(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "assert.db"))
	require.NoError(t, err)
	defer st.Close()

	in := sale.NewIntent("local-0001", sale.SaleData{
		CompanyID:     "c1",
		PaymentMethod: "cash",
		Comment:       "a",
		TotalAmount:   decimal.NewFromInt(100),
		Items:         []sale.Item{{ProductID: "p1", Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(100)}},
	}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	_, err = st.Append(ctx, in)
	require.NoError(t, err)

	where := map[string]any{"comment": "a"}
	assert.NoError(t, assertFinalState(ctx, st, Assertion{
		Table:  "intents",
		Where:  where,
		Expect: map[string]any{"status": "pending", "remote_id": nil, "total_amount": "100"},
	}))
	assert.Error(t, assertFinalState(ctx, st, Assertion{
		Table:  "intents",
		Where:  where,
		Expect: map[string]any{"status": "synced"},
	}))
	assert.Error(t, assertFinalState(ctx, st, Assertion{
		Table:  "intents",
		Where:  where,
		Expect: map[string]any{"no_such_column": 1},
	}))
	assert.Error(t, assertFinalState(ctx, st, Assertion{Table: "intents", Where: map[string]any{"comment": "zzz"}}))
	assert.Error(t, assertFinalState(ctx, st, Assertion{Table: "intents; DROP TABLE intents"}))
	assert.Error(t, assertFinalState(ctx, st, Assertion{Table: "intents", Where: map[string]any{"1=1 OR comment": "a"}}))

	assert.Error(t, assertAbsent(ctx, st, Assertion{Table: "intents", Where: where}))
	assert.NoError(t, assertAbsent(ctx, st, Assertion{Table: "intents", Where: map[string]any{"comment": "b"}}))
	assert.NoError(t, assertAbsent(ctx, st, Assertion{Table: "intents", Where: map[string]any{"remote_id": nil, "comment": "b"}}))
}

func TestEvaluateAssertions_RequiresStore(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertAbsent, Table: "intents"}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "requires database context")
}

func TestStateValuesEqual(t *testing.T) {
	assert.True(t, stateValuesEqual("x", []byte("x")))
	assert.True(t, stateValuesEqual(1, int64(1)))
	assert.True(t, stateValuesEqual(true, int64(1)))
	assert.False(t, stateValuesEqual(false, int64(1)))
	assert.True(t, stateValuesEqual(nil, nil))
	assert.False(t, stateValuesEqual(nil, "x"))
	assert.False(t, stateValuesEqual("x", nil))
}
