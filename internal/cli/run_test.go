package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var listenLine = regexp.MustCompile(`Listening on (http://\S+)`)

func TestRun_ServesAPIUntilCancelled(t *testing.T) {
	opts, stub := newTestOptions(t)
	enqueueSales(t, opts, cashSale)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	cmd := NewRunCommand(opts)
	cmd.SetOut(out)
	cmd.SetErr(&syncBuffer{})
	cmd.SetArgs([]string{"--listen", "127.0.0.1:0"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	var base string
	require.Eventually(t, func() bool {
		m := listenLine.FindStringSubmatch(out.String())
		if m == nil {
			return false
		}
		base = m[1]
		return true
	}, 5*time.Second, 10*time.Millisecond)

	// The startup sync drains what the previous process left.
	require.Eventually(t, func() bool { return stub.CallCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get(base + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var st struct {
		Online  bool `json:"online"`
		Pending int  `json:"pending"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.True(t, st.Online)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
	assert.Empty(t, queued(t, opts.DB))
}

func TestRun_BadListenAddress(t *testing.T) {
	opts, _ := newTestOptions(t)

	_, err := execute(NewRunCommand(opts), "--listen", "127.0.0.1:99999")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to listen")
}
