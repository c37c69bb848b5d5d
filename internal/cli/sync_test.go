package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassir-pos/possync/internal/possync"
	"github.com/kassir-pos/possync/internal/sale"
	"github.com/kassir-pos/possync/internal/testutil"
)

func enqueueSales(t *testing.T, opts *RootOptions, docs ...string) {
	t.Helper()
	for _, doc := range docs {
		_, err := execute(NewEnqueueCommand(opts), "-f", writeSale(t, doc))
		require.NoError(t, err)
	}
}

func TestSync_DrainsQueue(t *testing.T) {
	opts, stub := newTestOptions(t)
	enqueueSales(t, opts, cashSale, cashSale)

	out, err := execute(NewSyncCommand(opts))
	require.NoError(t, err)
	assert.Equal(t, "Synced: 2, failed: 0\n", out)
	assert.Equal(t, 2, stub.CallCount())
	assert.Empty(t, queued(t, opts.DB))

	out, err = execute(NewSyncCommand(opts))
	require.NoError(t, err)
	assert.Equal(t, "Synced: 0, failed: 0\n", out)
	assert.Equal(t, 2, stub.CallCount(), "an empty queue posts nothing")
}

func TestSync_PartialFailure(t *testing.T) {
	opts, stub := newTestOptions(t)
	opts.Format = "json"
	enqueueSales(t, opts,
		"payment_method: cash\ncomment: a\nitems: [{product_id: p1, quantity: 1, price: 1}]\n",
		"payment_method: cash\ncomment: b\nitems: [{product_id: p1, quantity: 1, price: 1}]\n",
	)
	stub.Reject(testutil.MatchComment("b"), "insufficient stock")

	out, err := execute(NewSyncCommand(opts))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 sale(s) not synced")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "SYNC_INCOMPLETE", resp.Error.Code)
	assert.Equal(t, map[string]any{"success": float64(1), "errors": float64(1), "best_effort_failures": float64(0)}, resp.Data)

	intents := queued(t, opts.DB)
	require.Len(t, intents, 1)
	assert.Equal(t, "b", intents[0].Comment)
}

func TestSync_Offline(t *testing.T) {
	opts, stub := newTestOptions(t)
	enqueueSales(t, opts, cashSale)
	stub.SetOffline(true)

	out, err := execute(NewSyncCommand(opts))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "backend unreachable")
	assert.Equal(t, "Sync skipped: offline\n", out)
	assert.Len(t, queued(t, opts.DB), 1)
}

func TestSync_RequiresBackendConfig(t *testing.T) {
	opts, _ := newTestOptions(t)
	opts.Backend = nil

	_, err := execute(NewSyncCommand(opts))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "backend not configured")
}

func TestStatus(t *testing.T) {
	opts, _ := newTestOptions(t)
	enqueueSales(t, opts, cashSale)

	out, err := execute(NewStatusCommand(opts))
	require.NoError(t, err)
	assert.Equal(t, "Online:  yes\nPending: 1\nSynced:  0\n", out)
}

func TestStatus_OfflineJSON(t *testing.T) {
	opts, stub := newTestOptions(t)
	opts.Format = "json"
	stub.SetOffline(true)

	out, err := execute(NewStatusCommand(opts))
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, map[string]any{"online": false, "pending": float64(0), "synced": float64(0)}, resp.Data)
}

func TestRefresh(t *testing.T) {
	opts, stub := newTestOptions(t)
	stub.SetCatalog(
		[]sale.Product{{ID: "p1", CompanyID: "c1", Name: "Tea", SalePrice: decimal.NewFromInt(5)}},
		[]sale.Balance{{ProductID: "p1", StoreLocationID: "loc-1", Quantity: decimal.NewFromInt(12)}},
		[]sale.PaymentMethod{{ID: "cash", Name: "Cash"}, {ID: "card", Name: "Card"}},
	)

	out, err := execute(NewRefreshCommand(opts))
	require.NoError(t, err)
	assert.Equal(t, "Products: 1, payment methods: 2\n", out)
}

func TestRefresh_OfflineKeepsCache(t *testing.T) {
	opts, stub := newTestOptions(t)
	stub.SetOffline(true)

	_, err := execute(NewRefreshCommand(opts))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, sale.IsNetworkError(err))
}

func TestQueue(t *testing.T) {
	opts, _ := newTestOptions(t)

	out, err := execute(NewQueueCommand(opts))
	require.NoError(t, err)
	assert.Equal(t, "Queue is empty.\n", out)

	enqueueSales(t, opts, cashSale)
	out, err = execute(NewQueueCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "LOCAL ID")
	assert.Contains(t, out, "local-0001")
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "100")
}

func TestQueue_JSON(t *testing.T) {
	opts, _ := newTestOptions(t)
	opts.Format = "json"
	enqueueSales(t, opts, cashSale)

	out, err := execute(NewQueueCommand(opts))
	require.NoError(t, err)

	var resp struct {
		Data []sale.Intent `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "local-0001", resp.Data[0].LocalID)
	assert.True(t, decimal.NewFromInt(100).Equal(resp.Data[0].TotalAmount))
}

func TestQueue_FlagsRepeatedSale(t *testing.T) {
	opts, _ := newTestOptions(t)
	enqueueSales(t, opts, cashSale, cashSale)

	out, err := execute(NewQueueCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "DUP OF")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[2], "local-0002"))
	assert.True(t, strings.HasSuffix(lines[2], "local-0001"))

	opts.Format = "json"
	out, err = execute(NewQueueCommand(opts))
	require.NoError(t, err)

	var resp struct {
		Data []possync.QueueEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Empty(t, resp.Data[0].DuplicateOf)
	assert.Equal(t, "local-0001", resp.Data[1].DuplicateOf)
}

func TestSettings(t *testing.T) {
	opts, _ := newTestOptions(t)

	_, err := execute(NewSettingsCommand(opts), "get", "printer")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), `setting "printer" is not set`)

	out, err := execute(NewSettingsCommand(opts), "set", "printer", "epson")
	require.NoError(t, err)
	assert.Equal(t, "printer = epson\n", out)

	out, err = execute(NewSettingsCommand(opts), "get", "printer")
	require.NoError(t, err)
	assert.Equal(t, "epson\n", out)
}
