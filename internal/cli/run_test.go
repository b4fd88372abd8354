package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/autotap/internal/gesture"
)

func TestParseGestureArg(t *testing.T) {
	tests := []struct {
		in     string
		kind   gesture.Kind
		points []gesture.Point
	}{
		{"click:10,20", gesture.KindTap, []gesture.Point{gesture.Pt(10, 20)}},
		{"tap: 1, 2", gesture.KindTap, []gesture.Point{gesture.Pt(1, 2)}},
		{"swipe:0,800:0,200", gesture.KindSwipe, []gesture.Point{gesture.Pt(0, 800), gesture.Pt(0, 200)}},
		{"path:0,0:5,5:10,0", gesture.KindPath, []gesture.Point{gesture.Pt(0, 0), gesture.Pt(5, 5), gesture.Pt(10, 0)}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			g, err := parseGestureArg(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, g.kind)
			assert.Equal(t, tt.points, g.points)
			assert.Equal(t, tt.in, g.raw)
		})
	}
}

func TestParseGestureArg_Errors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"click", "expected kind:points"},
		{"click:1", "expected X,Y"},
		{"click:a,1", "bad x"},
		{"click:1,b", "bad y"},
		{"click:1,1:2,2", "click takes one point"},
		{"swipe:1,1", "swipe takes two points"},
		{"path:1,1", "path takes at least two points"},
		{"pinch:1,1:2,2", `unknown kind "pinch"`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := parseGestureArg(tt.in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseGestureArgs_Default(t *testing.T) {
	gs, err := parseGestureArgs(nil)
	require.NoError(t, err)
	require.Len(t, gs, 3)
	assert.Equal(t, gesture.KindTap, gs[0].kind)
	assert.Equal(t, gesture.KindSwipe, gs[1].kind)
	assert.Equal(t, gesture.KindPath, gs[2].kind)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	for _, name := range []string{"journal", "repeat", "duration", "delay", "behavior", "latency", "host-version", "window"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "flag --%s", name)
	}
	assert.Equal(t, "complete", runCmd.Flags().Lookup("behavior").DefValue)
	assert.Equal(t, "1", runCmd.Flags().Lookup("repeat").DefValue)
}

func TestRun_DefaultGestures(t *testing.T) {
	out, err := execute(t, "run", "--latency", "1ms")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ click:540,960")
	assert.Contains(t, out, "✓ swipe:540,1600:540,600")
	assert.Contains(t, out, "✓ path:200,800:540,600:880,800")
	assert.Contains(t, out, "Dispatched: 3")
	assert.Contains(t, out, "Completed:  3")
	assert.NotContains(t, out, "Journal:")
}

func TestRun_JSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "run", "click:5,5", "--repeat", "2", "--latency", "1ms")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Gestures, 2)
	assert.True(t, resp.Data.Gestures[1].OK)
	assert.Equal(t, int64(2), resp.Data.Stats.Completed)
	assert.Equal(t, "click(5,5) press=90 delay=0", resp.Data.Diagnostics.LastAction)
	assert.Equal(t, "com.example.app", resp.Data.Diagnostics.LastWindowPackage)
	assert.NotEmpty(t, resp.Data.SessionID)
}

func TestRun_CancellingHostFails(t *testing.T) {
	out, err := execute(t, "run", "click:5,5", "--behavior", "cancel", "--latency", "1ms")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 1 gesture(s) failed")
	assert.Contains(t, out, "✗ click:5,5")
	assert.Contains(t, out, "Cancelled:  1")
	assert.Contains(t, out, "Last fail:  cancelled")
}

func TestRun_OldHostIsGated(t *testing.T) {
	out, err := execute(t, "run", "click:5,5", "--host-version", "20")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Immediate:  1 (gate 1)")
	assert.Contains(t, out, "Last fail:  sdk<24")
}

func TestRun_InvalidArguments(t *testing.T) {
	_, err := execute(t, "run", "pinch:1,1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "run", "--repeat", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err := execute(t, "run", "--behavior", "explode")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, `unknown behavior "explode"`)
}

func TestRun_JournalThenTrace(t *testing.T) {
	db := filepath.Join(t.TempDir(), "autotap.db")

	_, err := execute(t, "run", "--journal", db, "--latency", "1ms", "click:1,1", "swipe:0,100:0,0")
	require.NoError(t, err)

	out, err := execute(t, "trace", "--journal", db)
	require.NoError(t, err)
	assert.Contains(t, out, "click(1,1) press=90 delay=0")
	assert.Contains(t, out, "swipe(0,100->0,0) dur=200 delay=0")
	assert.Contains(t, out, "Outcomes: completed=2")

	out, err = execute(t, "--format", "json", "trace", "--journal", db, "--limit", "1")
	require.NoError(t, err)
	var resp struct {
		Data TraceReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Entries, 1)
	assert.Equal(t, "tap", resp.Data.Entries[0].Kind)
	assert.NotEmpty(t, resp.Data.Entries[0].Fingerprint)
	assert.Equal(t, int64(2), resp.Data.Outcomes["completed"])
}
