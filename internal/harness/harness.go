package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/autotap/internal/engine"
	"github.com/roach88/autotap/internal/gesture"
	"github.com/roach88/autotap/internal/journal"
	"github.com/roach88/autotap/internal/logging"
	"github.com/roach88/autotap/internal/simhost"
	"github.com/roach88/autotap/internal/testutil"
)

// DrainTimeout bounds how long Run waits for retired sessions to finish
// their queued dispatches.
const DrainTimeout = 10 * time.Second

// Harness holds the per-run state of one scenario.
type Harness struct {
	engine   *engine.Engine
	host     *simhost.Host
	journal  *journal.Store
	recorder *journal.Recorder
	logger   *slog.Logger

	mu       sync.Mutex
	step     int
	trace    []TraceEvent
	session  *engine.Session
	sessions []*engine.Session
}

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger routes engine and host logs to logger. Default: discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Run executes a scenario and returns the result.
//
// Each run gets a fresh simulated host, engine and in-memory journal.
// Execution flow:
// 1. Start the host and connect a session (unless connect: false)
// 2. Execute steps, checking expect clauses
// 3. Drain every session and the journal recorder
// 4. Check expect_stats and assertions
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: logging.Discard()}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := journal.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer st.Close()

	rec, err := journal.NewRecorder(st, journal.DefaultBuffer, cfg.logger)
	if err != nil {
		return nil, err
	}
	rec.Start(ctx)

	host := simhost.New(hostOptions(scenario.Host)...)
	host.Start(ctx)
	defer host.Close()

	h := &Harness{
		host:     host,
		journal:  st,
		recorder: rec,
		logger:   cfg.logger,
	}

	clock := testutil.NewDeterministicClock()
	engineOpts := append(engineOptions(scenario.Engine),
		engine.WithLogger(cfg.logger),
		engine.WithSessionIDs(testutil.NewSequentialIDs("")),
		engine.WithNow(clock.Now),
		engine.WithObserver(engine.ObserverFunc(h.observe)),
		engine.WithObserver(rec),
	)
	h.engine = engine.New(engineOpts...)

	result := NewResult()
	if scenario.Connect == nil || *scenario.Connect {
		if err := h.connect(ctx); err != nil {
			return nil, err
		}
	}

	for i := range scenario.Steps {
		h.setStep(i)
		if err := h.executeStep(ctx, i, &scenario.Steps[i], result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	if err := h.drain(); err != nil {
		return nil, err
	}
	rec.Close()

	result.Trace = h.Trace()
	result.Stats = h.engine.Stats()
	result.Overlaps = host.Overlaps()
	result.Journal, err = st.OutcomeCounts(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	for _, msg := range checkStats(scenario.ExpectStats, result.Stats) {
		result.AddError(msg)
	}
	actx := &AssertionContext{Engine: h.engine, Journal: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func hostOptions(c HostConfig) []simhost.Option {
	var opts []simhost.Option
	if c.Version != nil {
		opts = append(opts, simhost.WithVersion(*c.Version))
	}
	if c.Behavior != "" {
		// Checked by validateScenario.
		b, _ := simhost.ParseBehavior(c.Behavior)
		opts = append(opts, simhost.WithBehavior(b))
	}
	if c.Latency > 0 {
		opts = append(opts, simhost.WithLatency(c.Latency.D()))
	}
	if c.Stall > 0 {
		opts = append(opts, simhost.WithStall(c.Stall.D()))
	}
	if c.Window != "" {
		opts = append(opts, simhost.WithWindow(c.Window))
	}
	return opts
}

func engineOptions(c EngineConfig) []engine.Option {
	opts := []engine.Option{
		engine.WithPostTimeout(c.PostTimeout.D()),
		engine.WithCompletionTimeout(c.CompletionTimeout.D()),
		engine.WithCallerTimeout(c.CallerTimeout.D()),
	}
	if c.MinHostVersion != nil {
		opts = append(opts, engine.WithMinHostVersion(*c.MinHostVersion))
	}
	return opts
}

// executeStep runs one step and checks its expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, st *Step, result *Result) error {
	switch {
	case st.Click != nil:
		c := st.Click
		ok := h.engine.Click(ctx, c.X, c.Y, timingOptions(c.Press, c.Delay, 0)...)
		h.expect(i, st, ok, result)
	case st.Swipe != nil:
		s := st.Swipe
		ok := h.engine.Swipe(ctx, s.From.X, s.From.Y, s.To.X, s.To.Y, timingOptions(s.Duration, s.Delay, 0)...)
		h.expect(i, st, ok, result)
	case st.Path != nil:
		p := st.Path
		ok := h.engine.SwipePath(ctx, p.Points, timingOptions(p.Move, p.Delay, p.Hold)...)
		h.expect(i, st, ok, result)
	case st.Connect:
		if err := h.connect(ctx); err != nil {
			return err
		}
	case st.Disconnect:
		h.disconnect()
	case st.Reset:
		h.engine.ResetStats()
	case st.Behavior != "":
		b, _ := simhost.ParseBehavior(st.Behavior)
		h.host.SetBehavior(b)
	case st.Version != nil:
		h.host.SetVersion(*st.Version)
	case st.Event != "":
		h.engine.ObserveEvent(st.Event)
	case st.Wait > 0:
		time.Sleep(st.Wait.D())
	}

	// Let callbacks already posted to the host loop run before the next step.
	if err := h.host.Sync(); err != nil {
		return fmt.Errorf("sync host loop: %w", err)
	}
	h.logger.Debug("step completed", "step", i, "actions", st.actions())
	return nil
}

func timingOptions(duration, delay, hold Duration) []engine.TimingOption {
	var opts []engine.TimingOption
	if duration > 0 {
		opts = append(opts, engine.WithDuration(duration.D()))
	}
	if delay > 0 {
		opts = append(opts, engine.WithDelay(delay.D()))
	}
	if hold > 0 {
		opts = append(opts, engine.WithHold(hold.D()))
	}
	return opts
}

func (h *Harness) expect(i int, st *Step, got bool, result *Result) {
	if st.Expect == nil || *st.Expect == got {
		return
	}
	result.AddError(fmt.Sprintf("step %d (%s): expected %t, got %t", i, st.actions()[0], *st.Expect, got))
}

func (h *Harness) connect(ctx context.Context) error {
	s, err := h.engine.Connect(ctx, h.host)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := h.journal.WriteSession(ctx, s.ID(), h.host.Version(), s.ConnectedAt()); err != nil {
		return fmt.Errorf("journal session: %w", err)
	}

	h.mu.Lock()
	h.session = s
	h.sessions = append(h.sessions, s)
	h.mu.Unlock()
	return nil
}

func (h *Harness) disconnect() {
	h.mu.Lock()
	s := h.session
	h.session = nil
	h.mu.Unlock()

	if s != nil {
		_ = h.engine.Disconnect(s)
	}
}

// drain retires the live session and waits for every session's queued
// dispatches to resolve.
func (h *Harness) drain() error {
	h.disconnect()

	h.mu.Lock()
	sessions := append([]*engine.Session(nil), h.sessions...)
	h.mu.Unlock()

	deadline := time.NewTimer(DrainTimeout)
	defer deadline.Stop()
	for _, s := range sessions {
		select {
		case <-s.Done():
		case <-deadline.C:
			return errors.New("sessions did not drain")
		}
	}
	return h.host.Sync()
}

func (h *Harness) setStep(i int) {
	h.mu.Lock()
	h.step = i
	h.mu.Unlock()
}

// observe appends resolved requests to the trace.
func (h *Harness) observe(r engine.Record) {
	ev := TraceEvent{
		ID:      r.ID,
		Session: r.SessionID,
		Kind:    r.Kind,
		Outcome: r.Outcome.String(),
		Reason:  string(r.Reason),
		Action:  r.Action,
	}
	if len(r.Request.Strokes) > 0 {
		req := r.Request
		ev.Request = &req
	}

	h.mu.Lock()
	ev.Step = h.step
	h.trace = append(h.trace, ev)
	h.mu.Unlock()
}

// Trace returns a copy of the events observed so far.
func (h *Harness) Trace() []TraceEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]TraceEvent, len(h.trace))
	copy(out, h.trace)
	return out
}

// requestOf builds the canonical form of an event's request for comparison.
func requestOf(ev TraceEvent) (gesture.Request, bool) {
	if ev.Request == nil {
		return gesture.Request{}, false
	}
	return *ev.Request, true
}
