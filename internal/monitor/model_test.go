package monitor

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/autotap/internal/overlay"
	"github.com/roach88/autotap/internal/stats"
)

type fakeSource struct {
	snap    stats.Snapshot
	diag    stats.Diagnostics
	pending []stats.PendingEntry
	ready   bool
	resets  int
}

func (f *fakeSource) Stats() stats.Snapshot          { return f.snap }
func (f *fakeSource) Diagnostics() stats.Diagnostics { return f.diag }
func (f *fakeSource) Pending() []stats.PendingEntry  { return f.pending }
func (f *fakeSource) IsReady() bool                  { return f.ready }

func (f *fakeSource) ResetStats() {
	f.resets++
	f.snap = stats.Snapshot{}
}

func key(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func apply(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	got, ok := next.(Model)
	require.True(t, ok, "Update returned %T, want Model", next)
	return got, cmd
}

// refresh runs the poll command and feeds its message back.
func refresh(t *testing.T, m Model) Model {
	t.Helper()
	msg := m.poll()()
	m, _ = apply(t, m, msg)
	return m
}

func TestView_WaitingBeforeFirstPoll(t *testing.T) {
	m := New(&fakeSource{})
	assert.Contains(t, m.View(), "waiting for statistics")
	assert.Contains(t, m.View(), "disconnected")
}

func TestView_ShowsCounters(t *testing.T) {
	src := &fakeSource{
		ready: true,
		snap: stats.Snapshot{
			Dispatched: 5, Completed: 3, Cancelled: 1, ImmediateFail: 2, GateRejected: 1,
			LastFail: "cancelled",
		},
		diag: stats.Diagnostics{LastAction: "click(1,2) press=90 delay=0", LastWindowPackage: "com.example"},
	}
	m := refresh(t, New(src))

	view := m.View()
	assert.Contains(t, view, "● connected")
	assert.Contains(t, view, "completed")
	assert.Contains(t, view, "2 (gate 1)")
	assert.Contains(t, view, "cancelled")
	assert.Contains(t, view, "click(1,2) press=90 delay=0")
	assert.Contains(t, view, "com.example")
	assert.Equal(t, int64(5), m.Snapshot().Dispatched)
}

func TestView_PendingAges(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{
		ready:   true,
		snap:    stats.Snapshot{Dispatched: 1},
		pending: []stats.PendingEntry{{ID: 7, SubmittedAt: base}},
	}
	m := refresh(t, New(src, WithNow(func() time.Time { return base.Add(1500 * time.Millisecond) })))

	view := m.View()
	assert.Contains(t, view, "#7")
	assert.Contains(t, view, "1.5s")
}

func TestToolbar_HiddenWhileInFlight(t *testing.T) {
	counter := &overlay.HideCounter{}
	src := &fakeSource{ready: true, snap: stats.Snapshot{Dispatched: 1}}
	m := refresh(t, New(src, WithToolbar(counter)))

	assert.False(t, m.ToolbarVisible())
	assert.Equal(t, 1, counter.Count())
	assert.NotContains(t, m.View(), "force toolbar")

	// A second poll while still busy must not take another reference.
	m = refresh(t, m)
	assert.Equal(t, 1, counter.Count())

	src.snap.Completed = 1
	m = refresh(t, m)
	assert.True(t, m.ToolbarVisible())
	assert.Equal(t, 0, counter.Count())
	assert.Contains(t, m.View(), "force toolbar")
}

func TestToolbar_HelpAndBusyStack(t *testing.T) {
	counter := &overlay.HideCounter{}
	src := &fakeSource{ready: true, snap: stats.Snapshot{Dispatched: 1}}
	m := refresh(t, New(src, WithToolbar(counter)))

	m, _ = apply(t, m, key("?"))
	assert.Equal(t, 2, counter.Count())
	assert.Contains(t, m.View(), "toggle this help")

	// Closing help while busy keeps the toolbar hidden.
	m, _ = apply(t, m, key("?"))
	assert.False(t, m.ToolbarVisible())

	src.snap.Completed = 1
	m = refresh(t, m)
	assert.True(t, m.ToolbarVisible())
}

func TestToolbar_PendingShowOnTick(t *testing.T) {
	counter := &overlay.HideCounter{}
	counter.Hide()
	m := New(&fakeSource{}, WithToolbar(counter))

	m, _ = apply(t, m, key("?"))
	m, _ = apply(t, m, key("?")) // deferred: the outside hide is still held
	m, _ = apply(t, m, tickMsg(time.Now()))
	assert.Empty(t, m.status)

	counter.Show()
	m, cmd := apply(t, m, tickMsg(time.Now()))
	assert.Equal(t, "toolbar restored", m.status)
	assert.NotNil(t, cmd)
}

func TestToolbar_ForceShow(t *testing.T) {
	counter := &overlay.HideCounter{}
	src := &fakeSource{ready: true, snap: stats.Snapshot{Dispatched: 1}}
	m := refresh(t, New(src, WithToolbar(counter)))
	m, _ = apply(t, m, key("?"))

	m, _ = apply(t, m, key("f"))
	assert.True(t, m.ToolbarVisible())
	assert.False(t, m.help)
	assert.Equal(t, "toolbar forced visible", m.status)
}

func TestKey_Reset(t *testing.T) {
	src := &fakeSource{ready: true, snap: stats.Snapshot{Dispatched: 2, Completed: 2}}
	m := refresh(t, New(src))

	m, cmd := apply(t, m, key("r"))
	assert.Equal(t, 1, src.resets)
	assert.Equal(t, "stats reset", m.status)
	require.NotNil(t, cmd)

	m, _ = apply(t, m, cmd())
	assert.Zero(t, m.Snapshot().Dispatched)
}

func TestKey_ResetUnsupported(t *testing.T) {
	m := New(statsOnly{})
	m, cmd := apply(t, m, key("r"))
	assert.Nil(t, cmd)
	assert.Equal(t, "reset not supported", m.status)
}

func TestKey_Quit(t *testing.T) {
	m := New(&fakeSource{})

	_, cmd := apply(t, m, key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	_, cmd = apply(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestKey_EscClosesHelpFirst(t *testing.T) {
	m := New(&fakeSource{})
	m, _ = apply(t, m, key("?"))

	m, cmd := apply(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.False(t, m.help)
	assert.True(t, m.ToolbarVisible())
}

func TestInit_ReturnsCommands(t *testing.T) {
	m := New(&fakeSource{}, WithInterval(time.Millisecond))
	assert.NotNil(t, m.Init())
	assert.Equal(t, time.Millisecond, m.interval)
}

// statsOnly implements Source without Resetter.
type statsOnly struct{}

func (statsOnly) Stats() stats.Snapshot          { return stats.Snapshot{} }
func (statsOnly) Diagnostics() stats.Diagnostics { return stats.Diagnostics{} }
func (statsOnly) Pending() []stats.PendingEntry  { return nil }
func (statsOnly) IsReady() bool                  { return false }
