package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: quick_click
description: "A click on a healthy host"
host:
  latency: 1ms
steps:
  - click: { x: 3, y: 4 }
    expect: true
expect_stats:
  completed: 1
`

const failingScenario = `name: wrong_expectation
description: "Expects a cancelling host to succeed"
host:
  behavior: cancel
  latency: 1ms
steps:
  - click: { x: 3, y: 4 }
    expect: true
`

// scenarioDir writes files into <tmp>/scenarios and returns that directory.
func scenarioDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	out, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	dir := scenarioDir(t, nil)

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandPassingScenario(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"quick_click.yaml": passingScenario})

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ quick_click")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"quick_click.yaml":       passingScenario,
		"wrong_expectation.yaml": failingScenario,
	})

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_expectation")
	assert.Contains(t, out, "expected true, got false")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"quick_click.yaml":       passingScenario,
		"wrong_expectation.yaml": failingScenario,
	})

	out, err := execute(t, "test", dir, "--filter", "quick")
	require.NoError(t, err)
	assert.Contains(t, out, "1 total")
	assert.NotContains(t, out, "wrong_expectation")
}

func TestTestCommandInvalidScenarioReported(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"broken.yaml": "name: broken\nsteps: []\n"})

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken")
}

func TestTestCommandGoldenLifecycle(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"quick_click.yaml": passingScenario})
	golden := filepath.Join(filepath.Dir(dir), "golden", "quick_click.golden")

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ quick_click (golden updated)")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"quick_click"`)

	out, err = execute(t, "--format", "json", "test", dir)
	require.NoError(t, err)
	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "match", resp.Data.Scenarios[0].Golden)

	require.NoError(t, os.WriteFile(golden, []byte(`{"scenario_name":"stale"}`), 0o644))
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandJSONFailure(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"wrong_expectation.yaml": failingScenario})

	out, err := execute(t, "--format", "json", "test", dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.Equal(t, "missing", resp.Data.Scenarios[0].Golden)
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the full harness scenario set")
	}
	out, err := execute(t, "test", filepath.Join("..", "harness", "testdata", "scenarios"), "--filter", "click_completes")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ click_completes")
}
