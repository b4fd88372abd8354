package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/autotap/internal/gesture"
	"github.com/roach88/autotap/internal/stats"
)

// TraceSnapshot captures what a scenario run produced.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Stats        stats.Snapshot `json:"stats"`
	Trace        []TraceEvent   `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization. Empty optional fields are left out.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"step":    ev.Step,
			"id":      ev.ID,
			"kind":    ev.Kind,
			"outcome": ev.Outcome,
			"action":  ev.Action,
		}
		if ev.Session != "" {
			m["session"] = ev.Session
		}
		if ev.Reason != "" {
			m["reason"] = ev.Reason
		}
		if req, ok := requestOf(ev); ok {
			m["request"] = req
		}
		traceList[i] = m
	}

	st := map[string]any{
		"dispatched":     s.Stats.Dispatched,
		"completed":      s.Stats.Completed,
		"cancelled":      s.Stats.Cancelled,
		"immediate_fail": s.Stats.ImmediateFail,
		"timeout":        s.Stats.Timeout,
		"gate_rejected":  s.Stats.GateRejected,
	}
	if s.Stats.LastFail != "" {
		st["last_fail"] = s.Stats.LastFail
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"stats":         st,
		"trace":         traceList,
	}
}

// MarshalSnapshot renders a result as canonical JSON.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: name,
		Stats:        result.Stats,
		Trace:        result.Trace,
	}
	return gesture.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its trace and final stats
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
