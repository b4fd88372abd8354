// Package monitor is a terminal view of live engine statistics.
package monitor

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/autotap/internal/overlay"
	"github.com/roach88/autotap/internal/stats"
)

// DefaultInterval is the statistics polling period.
const DefaultInterval = 250 * time.Millisecond

// maxPendingRows caps the pending list.
const maxPendingRows = 5

// Source is what the monitor polls. *engine.Engine implements it.
type Source interface {
	Stats() stats.Snapshot
	Diagnostics() stats.Diagnostics
	Pending() []stats.PendingEntry
	IsReady() bool
}

// Resetter is implemented by sources whose counters can be reset.
type Resetter interface {
	ResetStats()
}

type tickMsg time.Time

type statsMsg struct {
	snap    stats.Snapshot
	diag    stats.Diagnostics
	pending []stats.PendingEntry
	ready   bool
}

// Model is the bubbletea model.
//
// The key toolbar is hidden while the help view is open and while
// gestures are in flight; both hold a reference on the same HideCounter.
type Model struct {
	src      Source
	interval time.Duration
	now      func() time.Time
	toolbar  *overlay.HideCounter

	snap    stats.Snapshot
	diag    stats.Diagnostics
	pending []stats.PendingEntry
	ready   bool
	polled  bool

	help   bool
	busy   bool
	status string
	width  int
}

// Option configures a Model.
type Option func(*Model)

// WithInterval sets the polling period. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithToolbar shares a hide counter with other views.
func WithToolbar(c *overlay.HideCounter) Option {
	return func(m *Model) {
		if c != nil {
			m.toolbar = c
		}
	}
}

// WithNow replaces the clock used for pending ages.
func WithNow(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates a monitor for src.
func New(src Source, opts ...Option) Model {
	m := Model{
		src:      src,
		interval: DefaultInterval,
		now:      time.Now,
		toolbar:  &overlay.HideCounter{},
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Snapshot returns the statistics from the last poll.
func (m Model) Snapshot() stats.Snapshot { return m.snap }

// ToolbarVisible reports whether the key toolbar is drawn.
func (m Model) ToolbarVisible() bool { return !m.toolbar.Hidden() }

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.poll(), m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) poll() tea.Cmd {
	src := m.src
	return func() tea.Msg {
		return statsMsg{
			snap:    src.Stats(),
			diag:    src.Diagnostics(),
			pending: src.Pending(),
			ready:   src.IsReady(),
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.toolbar.TakePendingShow() {
			m.status = "toolbar restored"
		}
		return m, tea.Batch(m.poll(), m.tick())
	case statsMsg:
		return m.handleStats(msg), nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleStats(msg statsMsg) Model {
	m.snap = msg.snap
	m.diag = msg.diag
	m.pending = msg.pending
	m.ready = msg.ready
	m.polled = true

	busy := msg.snap.InFlight() > 0
	switch {
	case busy && !m.busy:
		m.toolbar.Hide()
	case !busy && m.busy:
		m.toolbar.Show()
	}
	m.busy = busy
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		if m.help && msg.String() == "esc" {
			return m.closeHelp(), nil
		}
		return m, tea.Quit
	case "?":
		if m.help {
			return m.closeHelp(), nil
		}
		m.help = true
		m.toolbar.Hide()
		return m, nil
	case "r":
		r, ok := m.src.(Resetter)
		if !ok {
			m.status = "reset not supported"
			return m, nil
		}
		r.ResetStats()
		m.status = "stats reset"
		return m, m.poll()
	case "f":
		m.toolbar.ForceShow()
		m.help = false
		m.busy = false
		m.status = "toolbar forced visible"
		return m, nil
	}
	return m, nil
}

func (m Model) closeHelp() Model {
	m.help = false
	m.toolbar.Show()
	return m
}

func (m Model) View() string {
	var b strings.Builder

	conn := errorStyle.Render("○ disconnected")
	if m.ready {
		conn = okStyle.Render("● connected")
	}
	b.WriteString(titleStyle.Render("autotap monitor") + "  " + conn + "\n")

	if m.help {
		b.WriteString(panelStyle.Render(helpText()))
		b.WriteString("\n")
		return b.String()
	}
	if !m.polled {
		b.WriteString(toolbarStyle.Render("waiting for statistics..."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(panelStyle.Render(m.statsView()))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(warnStyle.Render(m.status))
		b.WriteString("\n")
	}
	if m.ToolbarVisible() {
		b.WriteString(toolbar())
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) statsView() string {
	s := m.snap
	rows := []string{
		row("dispatched", fmt.Sprintf("%d", s.Dispatched)),
		row("in flight", pendingStyle.Render(fmt.Sprintf("%d", s.InFlight()))),
		row("completed", okStyle.Render(fmt.Sprintf("%d", s.Completed))),
		row("cancelled", fmt.Sprintf("%d", s.Cancelled)),
		row("timed out", fmt.Sprintf("%d", s.Timeout)),
		row("immediate", fmt.Sprintf("%d (gate %d)", s.ImmediateFail, s.GateRejected)),
	}
	if s.LastFail != "" {
		rows = append(rows, row("last fail", errorStyle.Render(s.LastFail)))
	}
	if m.diag.LastAction != "" {
		rows = append(rows, row("last action", m.diag.LastAction))
	}
	if m.diag.LastEventPackage != "" {
		rows = append(rows, row("event pkg", m.diag.LastEventPackage))
	}
	if m.diag.LastWindowPackage != "" {
		rows = append(rows, row("window pkg", m.diag.LastWindowPackage))
	}

	if len(m.pending) > 0 {
		now := m.now()
		rows = append(rows, "", titleStyle.Render("pending"))
		for i, p := range m.pending {
			if i == maxPendingRows {
				rows = append(rows, toolbarStyle.Render(fmt.Sprintf("... %d more", len(m.pending)-maxPendingRows)))
				break
			}
			age := now.Sub(p.SubmittedAt).Truncate(time.Millisecond)
			rows = append(rows, row(fmt.Sprintf("#%d", p.ID), pendingStyle.Render(age.String())))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

func toolbar() string {
	keys := []struct{ key, desc string }{
		{"q", "quit"},
		{"r", "reset"},
		{"?", "help"},
		{"f", "force toolbar"},
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = keyStyle.Render(k.key) + " " + toolbarStyle.Render(k.desc)
	}
	return strings.Join(parts, "  ")
}

func helpText() string {
	return strings.Join([]string{
		titleStyle.Render("keys"),
		row("q / ctrl+c", "quit"),
		row("r", "reset statistics"),
		row("?", "toggle this help"),
		row("f", "show the toolbar even if a view still hides it"),
		"",
		toolbarStyle.Render("The toolbar is hidden while gestures are in flight."),
	}, "\n")
}
