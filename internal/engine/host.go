package engine

import "github.com/roach88/autotap/internal/gesture"

// Host is the privileged injection primitive granted to the engine.
//
// Platform quirk: some hosts cancel gestures spuriously unless Dispatch is
// called on one fixed thread and its callbacks are delivered there too.
// Loop returns that thread; the engine only calls Dispatch from tasks
// running on it.
type Host interface {
	// Loop is the required execution context for Dispatch and callbacks.
	Loop() *Looper

	// Version is the host capability level compared against the engine's
	// minimum supported version.
	Version() int

	// Dispatch starts the gesture asynchronously. Returning false, an error
	// or panicking means the gesture was not accepted; otherwise exactly one
	// of the callback methods is expected later.
	Dispatch(req gesture.Request, cb Callback) (bool, error)
}

// Callback receives the host's verdict on an accepted gesture.
// Implementations are safe to call from any goroutine and more than once.
type Callback interface {
	OnCompleted()
	OnCancelled()
}

// WindowInspector is implemented by hosts that can name the package owning
// the active window. The engine records it before each dispatch.
type WindowInspector interface {
	ActiveWindowPackage() string
}

type callbackFunc struct {
	completed func()
	cancelled func()
}

func (c callbackFunc) OnCompleted() { c.completed() }
func (c callbackFunc) OnCancelled() { c.cancelled() }
