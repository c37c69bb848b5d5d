package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/kassir-pos/possync/internal/testutil"
)

const testConfig = `
company_id: c1
store_location_id: loc-1
log:
  level: error
`

// newTestOptions returns options backed by a stub remote, a temp database
// and a config file naming the company.
func newTestOptions(t *testing.T) (*RootOptions, *testutil.StubRemote) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "kassir.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfig), 0o644))

	stub := testutil.NewStubRemote()
	return &RootOptions{
		Format:     "text",
		ConfigPath: cfgPath,
		DB:         filepath.Join(dir, "kassir.db"),
		Backend:    stub,
		IDs:        testutil.NewSequenceGenerator("local"),
	}, stub
}

func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeSale(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sale.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

const cashSale = `
payment_method: cash
comment: table 4
items:
  - {product_id: p1, quantity: 2, price: 50}
`

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
