package harness

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/autotap/internal/gesture"
)

func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }
func int64Ptr(i int64) *int64 { return &i }
func strPtr(s string) *string { return &s }

func TestScenarios_Golden(t *testing.T) {
	files, err := ScenarioFiles("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name, "file name and scenario name differ")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Zero(t, result.Overlaps)
		})
	}
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Steps: []Step{
			{Click: &ClickStep{X: 10, Y: 10}, Expect: boolPtr(true)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "completed", result.Trace[0].Outcome)
	assert.Equal(t, "session-1", result.Trace[0].Session)
	assert.Equal(t, int64(1), result.Stats.Completed)
	assert.Equal(t, int64(1), result.Journal["completed"])
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "Rejecting host with a wrong expectation",
		Host:        HostConfig{Behavior: "reject"},
		Steps: []Step{
			{Click: &ClickStep{X: 1, Y: 1}, Expect: boolPtr(true)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step 0 (click): expected true, got false")
}

func TestRun_StatsExpectationFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "stats",
		Description: "Wrong stats expectation",
		Steps: []Step{
			{Click: &ClickStep{X: 1, Y: 1}},
		},
		ExpectStats: &StatsExpectation{
			Completed: int64Ptr(2),
			LastFail:  strPtr("timeout"),
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors, "stats.completed: expected 2, got 1")
	assert.Contains(t, result.Errors, `stats.last_fail: expected "timeout", got ""`)
}

func TestRun_NoConnect(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_connect",
		Description: "Never connected",
		Connect:     boolPtr(false),
		Steps: []Step{
			{Swipe: &SwipeStep{From: gesture.Pt(0, 0), To: gesture.Pt(0, 100)}, Expect: boolPtr(false)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 1)
	ev := result.Trace[0]
	assert.Equal(t, int64(0), ev.ID)
	assert.Empty(t, ev.Session)
	assert.Nil(t, ev.Request)
	assert.Equal(t, "svc=null", ev.Reason)
	assert.Equal(t, int64(1), result.Stats.GateRejected)
	assert.Zero(t, result.Stats.Dispatched)
}

func TestRun_PostTimeoutOnStalledHost(t *testing.T) {
	if testing.Short() {
		t.Skip("stalls the host loop")
	}
	scenario := &Scenario{
		Name:        "stall",
		Description: "Host loop blocked inside Dispatch",
		Host:        HostConfig{Behavior: "stall", Stall: Duration(150 * time.Millisecond)},
		Engine:      EngineConfig{PostTimeout: Duration(30 * time.Millisecond)},
		Steps: []Step{
			{Click: &ClickStep{X: 2, Y: 2}, Expect: boolPtr(false)},
		},
		Assertions: []Assertion{
			{Type: AssertTraceContains, Reason: "dispatch_post_timeout"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, int64(1), result.Stats.ImmediateFail)
}

func TestRun_SessionsAreNumbered(t *testing.T) {
	scenario := &Scenario{
		Name:        "reconnect",
		Description: "Connect twice",
		Steps: []Step{
			{Click: &ClickStep{X: 1, Y: 1}},
			{Connect: true},
			{Click: &ClickStep{X: 2, Y: 2}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	require.Len(t, result.Trace, 2)
	assert.Equal(t, "session-1", result.Trace[0].Session)
	assert.Equal(t, "session-2", result.Trace[1].Session)
	assert.Equal(t, int64(2), result.Trace[1].ID)
}
