// Package stats holds the dispatch statistics and diagnostics registry.
//
// The registry is shared between the engine and any number of diagnostic
// readers. Every field is mutated through an atomic primitive or a
// concurrent-safe map, so readers are never blocked by an in-flight gesture.
package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is an immutable copy of the registry counters.
type Snapshot struct {
	Dispatched    int64  `json:"dispatched"`
	Completed     int64  `json:"completed"`
	Cancelled     int64  `json:"cancelled"`
	ImmediateFail int64  `json:"immediate_fail"`
	Timeout       int64  `json:"timeout"`
	GateRejected  int64  `json:"gate_rejected"`
	LastFail      string `json:"last_fail_reason,omitempty"`
}

// Resolved counts dispatched requests that reached a terminal outcome.
// Gate rejections are part of ImmediateFail but never dispatched, so they
// are subtracted.
func (s Snapshot) Resolved() int64 {
	return s.Completed + s.Cancelled + s.Timeout + s.ImmediateFail - s.GateRejected
}

// InFlight is the number of dispatched requests without a recorded outcome.
func (s Snapshot) InFlight() int64 {
	return s.Dispatched - s.Resolved()
}

// PendingEntry is a dispatch that has not resolved yet.
type PendingEntry struct {
	ID          int64
	SubmittedAt time.Time
}

// Registry tracks dispatch counters, the pending table and last-failure
// diagnostics.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	dispatched    atomic.Int64
	completed     atomic.Int64
	cancelled     atomic.Int64
	immediateFail atomic.Int64
	timeout       atomic.Int64
	gateRejected  atomic.Int64

	lastFail   atomic.Pointer[string]
	lastAction atomic.Pointer[string]

	lastEventPackage  atomic.Pointer[string]
	lastWindowPackage atomic.Pointer[string]

	pending sync.Map // int64 -> time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// RecordDispatch counts a submitted request and adds it to the pending table.
func (r *Registry) RecordDispatch(id int64, at time.Time) {
	r.dispatched.Add(1)
	r.pending.Store(id, at)
}

// Finish removes id from the pending table. It returns true only for the
// first caller, which then owns recording the terminal counter.
func (r *Registry) Finish(id int64) bool {
	_, ok := r.pending.LoadAndDelete(id)
	return ok
}

// RecordCompleted counts a completed gesture.
func (r *Registry) RecordCompleted() {
	r.completed.Add(1)
}

// RecordCancelled counts a gesture cancelled by the host.
func (r *Registry) RecordCancelled(reason string) {
	r.cancelled.Add(1)
	r.SetLastFail(reason)
}

// RecordImmediateFail counts a gesture the host never accepted.
func (r *Registry) RecordImmediateFail(reason string) {
	r.immediateFail.Add(1)
	r.SetLastFail(reason)
}

// RecordGateReject counts a request refused before dispatch. It is reported
// as an immediate failure as well.
func (r *Registry) RecordGateReject(reason string) {
	r.gateRejected.Add(1)
	r.RecordImmediateFail(reason)
}

// RecordTimeout counts a gesture with no callback before a deadline.
func (r *Registry) RecordTimeout(reason string) {
	r.timeout.Add(1)
	r.SetLastFail(reason)
}

// SetLastFail overwrites the last failure reason.
func (r *Registry) SetLastFail(reason string) {
	r.lastFail.Store(&reason)
}

// SetLastFailIfEmpty records reason only when no failure has been recorded
// since the last reset. It reports whether the reason was stored.
func (r *Registry) SetLastFailIfEmpty(reason string) bool {
	return r.lastFail.CompareAndSwap(nil, &reason)
}

// LastFail returns the last failure reason, if any.
func (r *Registry) LastFail() (string, bool) {
	return load(&r.lastFail)
}

// SetLastAction stores a human readable description of the last request.
func (r *Registry) SetLastAction(desc string) {
	r.lastAction.Store(&desc)
}

// LastAction returns the last action description, if any.
func (r *Registry) LastAction() (string, bool) {
	return load(&r.lastAction)
}

// SetLastEventPackage records the package of the most recent host event.
func (r *Registry) SetLastEventPackage(pkg string) {
	r.lastEventPackage.Store(&pkg)
}

// SetLastWindowPackage records the package owning the active window at the
// time of the last dispatch.
func (r *Registry) SetLastWindowPackage(pkg string) {
	r.lastWindowPackage.Store(&pkg)
}

// Diagnostics is a copy of the non-counter diagnostic state.
type Diagnostics struct {
	LastAction        string `json:"last_action,omitempty"`
	LastEventPackage  string `json:"last_event_package,omitempty"`
	LastWindowPackage string `json:"last_window_package,omitempty"`
}

// Diagnostics returns the current diagnostic strings.
func (r *Registry) Diagnostics() Diagnostics {
	action, _ := load(&r.lastAction)
	event, _ := load(&r.lastEventPackage)
	window, _ := load(&r.lastWindowPackage)
	return Diagnostics{
		LastAction:        action,
		LastEventPackage:  event,
		LastWindowPackage: window,
	}
}

// Snapshot copies the counters. Individual fields are read atomically; the
// snapshot as a whole is not a consistent cut while dispatches are running.
//
// Terminal counters are read before dispatched, and immediateFail before
// gateRejected, so Resolved never exceeds Dispatched between resets.
func (r *Registry) Snapshot() Snapshot {
	var s Snapshot
	s.Completed = r.completed.Load()
	s.Cancelled = r.cancelled.Load()
	s.Timeout = r.timeout.Load()
	s.ImmediateFail = r.immediateFail.Load()
	s.GateRejected = r.gateRejected.Load()
	s.Dispatched = r.dispatched.Load()
	s.LastFail, _ = load(&r.lastFail)
	return s
}

// Reset zeroes every counter, clears the pending table and the last failure
// reason. Dispatches in flight during a reset lose their bookkeeping.
func (r *Registry) Reset() {
	r.dispatched.Store(0)
	r.completed.Store(0)
	r.cancelled.Store(0)
	r.immediateFail.Store(0)
	r.timeout.Store(0)
	r.gateRejected.Store(0)
	r.lastFail.Store(nil)
	r.pending.Clear()
}

// Pending lists unresolved dispatches ordered by id.
func (r *Registry) Pending() []PendingEntry {
	var out []PendingEntry
	r.pending.Range(func(k, v any) bool {
		out = append(out, PendingEntry{ID: k.(int64), SubmittedAt: v.(time.Time)})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stuck lists pending dispatches submitted more than age before now.
func (r *Registry) Stuck(now time.Time, age time.Duration) []PendingEntry {
	var out []PendingEntry
	for _, e := range r.Pending() {
		if now.Sub(e.SubmittedAt) > age {
			out = append(out, e)
		}
	}
	return out
}

func load(p *atomic.Pointer[string]) (string, bool) {
	s := p.Load()
	if s == nil {
		return "", false
	}
	return *s, true
}
