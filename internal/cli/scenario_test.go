package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

// copyScenarios copies the harness scenarios into a temp dir so golden
// files can be written.
func copyScenarios(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(harnessScenarios, name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	return dir
}

func TestScenarioCommandMissingArgs(t *testing.T) {
	_, err := execute(NewScenarioCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestScenarioCommandNonExistentDir(t *testing.T) {
	_, err := execute(NewScenarioCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestScenarioCommandBadFilter(t *testing.T) {
	_, err := execute(NewScenarioCommand(&RootOptions{Format: "text"}), harnessScenarios, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScenarioCommandRunsHarnessScenarios(t *testing.T) {
	out, err := execute(NewScenarioCommand(&RootOptions{Format: "text"}), harnessScenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ partial_failure")
	assert.Contains(t, out, "✓ invalid_sale")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestScenarioCommandFilterJSON(t *testing.T) {
	out, err := execute(NewScenarioCommand(&RootOptions{Format: "json"}), harnessScenarios, "--filter", "crash*")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   ScenarioReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "crash_recovery", resp.Data.Scenarios[0].Name)
}

func TestScenarioCommandUpdateThenCompare(t *testing.T) {
	dir := copyScenarios(t, "partial_failure.yaml")

	out, err := execute(NewScenarioCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ partial_failure (golden updated)")

	golden := filepath.Join(dir, "golden", "partial_failure.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"partial_failure"`)

	_, err = execute(NewScenarioCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte(`{"scenario_name":"partial_failure","trace":[]}`), 0o644))
	out, err = execute(NewScenarioCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestScenarioCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(`
name: wrong
flow:
  - invoke: sync
    expect:
      case: ok
      result: {success: 3}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("name: [\n"), 0o644))

	out, err := execute(NewScenarioCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "expected success = 3, got 0")
	assert.Contains(t, out, "✗ broken.yml")
	assert.Contains(t, out, "Summary: 0 passed, 2 failed, 2 total")
}

func TestScenarioCommandEmptyDir(t *testing.T) {
	out, err := execute(NewScenarioCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}
