package harness

import (
	"github.com/roach88/autotap/internal/gesture"
	"github.com/roach88/autotap/internal/stats"
)

// TraceEvent is one resolved request as seen by the harness observer.
type TraceEvent struct {
	// Step is the index of the scenario step running when the request
	// resolved.
	Step int `json:"step"`

	// ID is the dispatch id; 0 for requests refused by the gate.
	ID int64 `json:"id"`

	Session string       `json:"session,omitempty"`
	Kind    gesture.Kind `json:"kind"`
	Outcome string       `json:"outcome"`
	Reason  string       `json:"reason,omitempty"`
	Action  string       `json:"action"`

	// Request is the normalized request handed to the host. Nil for gate
	// rejects.
	Request *gesture.Request `json:"request,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step expectation, stats expectation and
	// assertion held.
	Pass bool `json:"pass"`

	// Trace lists resolved requests in resolution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains one message per failed expectation.
	Errors []string `json:"errors,omitempty"`

	// Stats is the engine snapshot after every session drained.
	Stats stats.Snapshot `json:"stats"`

	// Overlaps counts host invocations that started while another gesture
	// was still in flight. Always 0 for a correct engine.
	Overlaps int `json:"overlaps"`

	// Journal holds per-outcome row counts from the run's journal.
	Journal map[string]int64 `json:"journal,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
