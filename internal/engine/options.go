package engine

import (
	"log/slog"
	"time"

	"github.com/roach88/autotap/internal/stats"
)

// Default deadlines. Each expiry is reported under its own reason so
// diagnostics can tell "never accepted" from "never completed" from "caller
// gave up".
const (
	DefaultPostTimeout       = 1000 * time.Millisecond
	DefaultCompletionTimeout = 4500 * time.Millisecond
	DefaultCallerTimeout     = 5000 * time.Millisecond

	// DefaultMinHostVersion is the first host capability level with the
	// injection primitive.
	DefaultMinHostVersion = 24

	// DefaultStuckAfter is the pending age reported as stuck.
	DefaultStuckAfter = 10 * time.Second
)

// Default gesture timings.
const (
	DefaultPress         = 90 * time.Millisecond
	DefaultSwipeDuration = 200 * time.Millisecond
	DefaultPathMove      = 300 * time.Millisecond
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPostTimeout bounds how long a dispatch waits for the host loop to
// pick up the invocation. Non-positive values are ignored.
func WithPostTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.postTimeout = d
		}
	}
}

// WithCompletionTimeout bounds how long an accepted gesture may go without
// a callback. Non-positive values are ignored.
func WithCompletionTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.completionTimeout = d
		}
	}
}

// WithCallerTimeout bounds how long a blocking caller waits for the
// outcome. Non-positive values are ignored.
func WithCallerTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.callerTimeout = d
		}
	}
}

// WithMinHostVersion sets the lowest accepted Host.Version.
func WithMinHostVersion(v int) Option {
	return func(e *Engine) {
		e.minHostVersion = v
	}
}

// WithStuckAfter sets the pending age logged as a stuck dispatch.
func WithStuckAfter(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.stuckAfter = d
		}
	}
}

// WithNow replaces the wall clock used for pending timestamps and records.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSessionIDs replaces the session id generator.
func WithSessionIDs(gen SessionIDGenerator) Option {
	return func(e *Engine) {
		if gen != nil {
			e.ids = gen
		}
	}
}

// WithRegistry shares an existing statistics registry.
func WithRegistry(r *stats.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.stats = r
		}
	}
}

// WithObserver adds an observer notified of every resolved request.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

type timing struct {
	duration time.Duration
	delay    time.Duration
	hold     time.Duration
}

// TimingOption adjusts the timing of a single gesture.
type TimingOption func(*timing)

// WithDuration sets the press time of a click, the duration of a swipe or
// the move time of a path.
func WithDuration(d time.Duration) TimingOption {
	return func(t *timing) { t.duration = d }
}

// WithDelay delays the start of the gesture.
func WithDelay(d time.Duration) TimingOption {
	return func(t *timing) { t.delay = d }
}

// WithHold keeps the pointer down at the end of a path. Ignored by Click
// and Swipe.
func WithHold(d time.Duration) TimingOption {
	return func(t *timing) { t.hold = d }
}

func newTiming(duration time.Duration, opts []TimingOption) timing {
	t := timing{duration: duration}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}
