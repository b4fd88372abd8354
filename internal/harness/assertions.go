package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/autotap/internal/engine"
	"github.com/roach88/autotap/internal/journal"
	"github.com/roach88/autotap/internal/stats"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] step=%d id=%d %s %s", i+1, ev.Step, ev.ID, ev.Outcome, ev.Action)
			if ev.Reason != "" {
				fmt.Fprintf(&buf, " reason=%s", ev.Reason)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// AssertionContext provides what non-trace assertions inspect.
type AssertionContext struct {
	Engine  *engine.Engine
	Journal *journal.Store
	Ctx     context.Context
}

// EvaluateAssertions runs every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertLastAction:
		return assertLastAction(actx, a)
	case AssertNoOverlap:
		if result.Overlaps != 0 {
			return &AssertionError{
				Type:     AssertNoOverlap,
				Expected: "no overlapping host invocations",
				Actual:   fmt.Sprintf("%d overlaps", result.Overlaps),
				Trace:    result.Trace,
			}
		}
		return nil
	case AssertJournalCount:
		return assertJournalCount(actx, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func matches(ev TraceEvent, a Assertion) bool {
	if a.Outcome != "" && ev.Outcome != a.Outcome {
		return false
	}
	if a.Kind != "" && string(ev.Kind) != a.Kind {
		return false
	}
	if a.Action != "" && ev.Action != a.Action {
		return false
	}
	if a.Reason != "" && ev.Reason != a.Reason {
		return false
	}
	return true
}

// assertTraceCount checks that exactly Count events match.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if matches(ev, a) {
			count++
		}
	}
	if count != *a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d events (outcome=%q kind=%q)", *a.Count, a.Outcome, a.Kind),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that the outcomes appear in order. Other events
// may appear in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Outcomes) && ev.Outcome == a.Outcomes[next] {
			next++
		}
	}
	if next < len(a.Outcomes) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("outcomes in order: %v", a.Outcomes),
			Actual:   fmt.Sprintf("missing %q after %v", a.Outcomes[next], a.Outcomes[:next]),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceContains checks that at least one event matches.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if matches(ev, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("event with action=%q outcome=%q reason=%q", a.Action, a.Outcome, a.Reason),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func assertLastAction(actx *AssertionContext, a Assertion) error {
	if actx == nil || actx.Engine == nil {
		return fmt.Errorf("last_action requires an engine")
	}
	got, ok := actx.Engine.LastAction()
	if !ok || got != a.Action {
		return &AssertionError{
			Type:     AssertLastAction,
			Expected: a.Action,
			Actual:   fmt.Sprintf("%q (set=%t)", got, ok),
		}
	}
	return nil
}

func assertJournalCount(actx *AssertionContext, a Assertion) error {
	if actx == nil || actx.Journal == nil {
		return fmt.Errorf("journal_count requires a journal")
	}
	counts, err := actx.Journal.OutcomeCounts(actx.Ctx, "")
	if err != nil {
		return fmt.Errorf("journal_count: %w", err)
	}
	if got := counts[a.Outcome]; got != int64(*a.Count) {
		return &AssertionError{
			Type:     AssertJournalCount,
			Expected: fmt.Sprintf("%d %s rows", *a.Count, a.Outcome),
			Actual:   fmt.Sprintf("%d rows", got),
		}
	}
	return nil
}

// checkStats compares the fields present in want against got.
func checkStats(want *StatsExpectation, got stats.Snapshot) []string {
	if want == nil {
		return nil
	}
	var errs []string
	check := func(name string, w *int64, g int64) {
		if w != nil && *w != g {
			errs = append(errs, fmt.Sprintf("stats.%s: expected %d, got %d", name, *w, g))
		}
	}
	check("dispatched", want.Dispatched, got.Dispatched)
	check("completed", want.Completed, got.Completed)
	check("cancelled", want.Cancelled, got.Cancelled)
	check("immediate_fail", want.ImmediateFail, got.ImmediateFail)
	check("timeout", want.Timeout, got.Timeout)
	check("gate_rejected", want.GateRejected, got.GateRejected)
	if want.LastFail != nil && *want.LastFail != got.LastFail {
		errs = append(errs, fmt.Sprintf("stats.last_fail: expected %q, got %q", *want.LastFail, got.LastFail))
	}
	return errs
}
