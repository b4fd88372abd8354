package engine

import (
	"sync/atomic"
	"time"
)

// Outcome is the terminal classification of a dispatch request.
type Outcome int

const (
	// OutcomeUnknown is the zero value; it never describes a resolved request.
	OutcomeUnknown Outcome = iota
	OutcomeCompleted
	OutcomeCancelled
	OutcomeTimedOut
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeRejected:
		return "rejected_immediate"
	default:
		return "unknown"
	}
}

// Result is the resolved state of one dispatch.
type Result struct {
	ID      DispatchID
	Outcome Outcome
	Reason  Reason
}

// Success reports whether the host completed the gesture.
func (r Result) Success() bool {
	return r.Outcome == OutcomeCompleted
}

// bridge converts the host's asynchronous callbacks into a value a blocking
// caller can wait for. Exactly one resolution wins; later attempts are no-ops.
//
// The result slot is set with a compare-and-swap before the done channel is
// closed, so a waiter released by done always observes the result.
type bridge struct {
	slot atomic.Pointer[Result]
	done chan struct{}
}

func newBridge() *bridge {
	return &bridge{done: make(chan struct{})}
}

// resolve stores r if no result is set yet. commit runs only for the winner,
// after the result is stored and before waiters are released.
func (b *bridge) resolve(r Result, commit func(Result)) bool {
	if !b.slot.CompareAndSwap(nil, &r) {
		return false
	}
	if commit != nil {
		commit(r)
	}
	close(b.done)
	return true
}

// Done is closed once a result has been committed.
func (b *bridge) Done() <-chan struct{} {
	return b.done
}

// Result returns the stored result, or nil while unresolved.
func (b *bridge) Result() *Result {
	return b.slot.Load()
}

// wait blocks until the bridge is released or timeout elapses.
func (b *bridge) wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-b.done:
		return true
	case <-timer.C:
		return false
	}
}
