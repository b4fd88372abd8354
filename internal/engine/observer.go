package engine

import (
	"time"

	"github.com/roach88/autotap/internal/gesture"
)

// Record describes one resolved request. Requests refused by the lifecycle
// gate have ID 0 and no Request.
type Record struct {
	SessionID   string
	ID          DispatchID
	Kind        gesture.Kind
	Action      string
	Request     gesture.Request
	Outcome     Outcome
	Reason      Reason
	SubmittedAt time.Time
	ResolvedAt  time.Time
}

// Observer is notified once per resolved request, before the waiting caller
// is released. Observe runs on whichever goroutine resolved the request,
// often the host loop, and must not block.
type Observer interface {
	Observe(Record)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Record)

// Observe calls f(r).
func (f ObserverFunc) Observe(r Record) { f(r) }

func (e *Engine) notify(r Record) {
	for _, o := range e.observers {
		e.observe(o, r)
	}
}

// observe isolates observer panics; a panicking observer must not keep the
// waiting caller from being released.
func (e *Engine) observe(o Observer, r Record) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("observer panicked", "dispatch_id", r.ID, "panic", p)
		}
	}()
	o.Observe(r)
}
