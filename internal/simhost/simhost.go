// Package simhost provides an instrumented in-process host for the dispatch
// engine. It behaves like a device injection service: gestures are accepted
// on its main loop, callbacks are delivered there after a latency, and
// zero-length gestures are silently dropped.
//
// Every invocation is recorded so tests can check that no two gestures were
// ever in flight together.
package simhost

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/autotap/internal/engine"
	"github.com/roach88/autotap/internal/gesture"
)

// Behavior selects how the host answers the next dispatches.
type Behavior string

const (
	Complete Behavior = "complete" // accept, then report completed
	Cancel   Behavior = "cancel"   // accept, then report cancelled
	Never    Behavior = "never"    // accept, never call back
	Reject   Behavior = "reject"   // return false
	Error    Behavior = "error"    // return an *InjectionError
	Panic    Behavior = "panic"    // panic inside Dispatch
	Stall    Behavior = "stall"    // block the main loop, then return false
)

// Behaviors lists every behavior in declaration order.
var Behaviors = []Behavior{Complete, Cancel, Never, Reject, Error, Panic, Stall}

// ParseBehavior validates a behavior name.
func ParseBehavior(s string) (Behavior, error) {
	for _, b := range Behaviors {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("simhost: unknown behavior %q", s)
}

// DefaultVersion is the capability level reported unless overridden.
const DefaultVersion = 30

// InjectionError is returned by Dispatch under the Error behavior.
type InjectionError struct {
	Msg string
}

func (e *InjectionError) Error() string {
	return "simhost: injection failed: " + e.Msg
}

// Invocation is one call to Dispatch as seen by the host.
type Invocation struct {
	Seq     int
	Request gesture.Request
	Start   time.Time
	End     time.Time
	Outcome string
	Dropped bool
}

// Host is a simulated injection host.
//
// Thread-safety: all methods are safe for concurrent use. Dispatch is only
// called by the engine from tasks on Loop().
type Host struct {
	loop *engine.Looper

	mu          sync.Mutex
	version     int
	behavior    Behavior
	latency     time.Duration
	stallFor    time.Duration
	window      string
	invocations []Invocation
	inFlight    int
	maxInFlight int
	overlaps    int
}

// Option configures a Host.
type Option func(*Host)

// WithVersion sets the reported capability level.
func WithVersion(v int) Option {
	return func(h *Host) { h.version = v }
}

// WithBehavior sets the initial behavior. Default: Complete.
func WithBehavior(b Behavior) Option {
	return func(h *Host) { h.behavior = b }
}

// WithLatency sets the delay between acceptance and callback.
func WithLatency(d time.Duration) Option {
	return func(h *Host) { h.latency = d }
}

// WithStall sets how long the Stall behavior blocks the main loop.
func WithStall(d time.Duration) Option {
	return func(h *Host) { h.stallFor = d }
}

// WithWindow sets the package reported as owning the active window.
func WithWindow(pkg string) Option {
	return func(h *Host) { h.window = pkg }
}

// New creates a host with a stopped main loop; call Start.
func New(opts ...Option) *Host {
	h := &Host{
		loop:     engine.NewLooper("simhost-main"),
		version:  DefaultVersion,
		behavior: Complete,
		stallFor: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start runs the main loop until ctx ends or Close is called.
func (h *Host) Start(ctx context.Context) {
	h.loop.Start(ctx)
}

// Close stops the main loop once queued tasks have run.
func (h *Host) Close() {
	h.loop.Quit()
}

// Loop implements engine.Host.
func (h *Host) Loop() *engine.Looper {
	return h.loop
}

// Version implements engine.Host.
func (h *Host) Version() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.version
}

// ActiveWindowPackage implements engine.WindowInspector.
func (h *Host) ActiveWindowPackage() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.window
}

// SetVersion changes the reported capability level.
func (h *Host) SetVersion(v int) {
	h.mu.Lock()
	h.version = v
	h.mu.Unlock()
}

// SetBehavior changes how subsequent dispatches are answered.
func (h *Host) SetBehavior(b Behavior) {
	h.mu.Lock()
	h.behavior = b
	h.mu.Unlock()
}

// SetLatency changes the acceptance to callback delay.
func (h *Host) SetLatency(d time.Duration) {
	h.mu.Lock()
	h.latency = d
	h.mu.Unlock()
}

// SetWindow changes the active window package.
func (h *Host) SetWindow(pkg string) {
	h.mu.Lock()
	h.window = pkg
	h.mu.Unlock()
}

// Dispatch implements engine.Host.
func (h *Host) Dispatch(req gesture.Request, cb engine.Callback) (bool, error) {
	h.mu.Lock()
	seq := len(h.invocations) + 1
	inv := Invocation{Seq: seq, Request: req, Start: time.Now()}
	if h.inFlight > 0 {
		h.overlaps++
	}
	behavior, latency, stallFor := h.behavior, h.latency, h.stallFor

	// Zero-length gestures are accepted and then ignored by real hosts.
	if req.Validate() != nil {
		inv.Dropped = true
		inv.Outcome = "dropped"
		h.invocations = append(h.invocations, inv)
		h.mu.Unlock()
		return true, nil
	}

	switch behavior {
	case Complete, Cancel:
		h.inFlight++
		if h.inFlight > h.maxInFlight {
			h.maxInFlight = h.inFlight
		}
		inv.Outcome = "pending"
	case Never:
		inv.Outcome = "accepted"
	default:
		inv.Outcome = string(behavior)
	}
	h.invocations = append(h.invocations, inv)
	h.mu.Unlock()

	switch behavior {
	case Complete, Cancel:
		h.callbackLater(seq, behavior, latency, cb)
		return true, nil
	case Never:
		return true, nil
	case Reject:
		return false, nil
	case Error:
		return false, &InjectionError{Msg: fmt.Sprintf("invocation %d", seq)}
	case Panic:
		panic(fmt.Sprintf("simhost: injected panic in invocation %d", seq))
	case Stall:
		time.Sleep(stallFor)
		return false, nil
	}
	return false, fmt.Errorf("simhost: unknown behavior %q", behavior)
}

// callbackLater delivers the verdict on the main loop after latency.
func (h *Host) callbackLater(seq int, b Behavior, latency time.Duration, cb engine.Callback) {
	deliver := func() {
		h.loop.Post(func(context.Context) {
			h.finish(seq, b)
			if b == Complete {
				cb.OnCompleted()
			} else {
				cb.OnCancelled()
			}
		})
	}
	if latency <= 0 {
		deliver()
		return
	}
	time.AfterFunc(latency, deliver)
}

func (h *Host) finish(seq int, b Behavior) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inFlight--
	inv := &h.invocations[seq-1]
	inv.End = time.Now()
	if b == Complete {
		inv.Outcome = "completed"
	} else {
		inv.Outcome = "cancelled"
	}
}

// Do runs fn on the main loop and waits for it to return.
func (h *Host) Do(fn func(ctx context.Context)) error {
	done := make(chan struct{})
	if !h.loop.Post(func(ctx context.Context) {
		defer close(done)
		fn(ctx)
	}) {
		return engine.ErrLooperClosed
	}
	<-done
	return nil
}

// Sync waits until every task queued on the main loop so far has run.
func (h *Host) Sync() error {
	return h.Do(func(context.Context) {})
}

// Invocations returns a copy of the recorded invocations.
func (h *Host) Invocations() []Invocation {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Invocation, len(h.invocations))
	copy(out, h.invocations)
	return out
}

// Overlaps counts dispatches that started while another accepted gesture
// had not called back yet.
func (h *Host) Overlaps() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.overlaps
}

// MaxInFlight is the largest number of gestures awaiting a callback at once.
func (h *Host) MaxInFlight() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxInFlight
}
