package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/autotap/internal/stats"
)

// Engine executes gesture requests against a connected host, one at a time.
//
// Thread-safety model:
//   - Click, Swipe, SwipePath: safe from any goroutine; callers queue on the
//     serialization lock
//   - Stats, LastAction, Diagnostics, ResetStats: never take the
//     serialization lock
//   - Connect, Disconnect: safe from any goroutine
//
// INVARIANTS:
//   - no host invocation starts before the previous request's outcome is
//     final (each session's units run serially on its dispatch looper)
//   - every dispatched request contributes at most one terminal counter
type Engine struct {
	logger *slog.Logger
	stats  *stats.Registry
	clock  *Clock
	ids    SessionIDGenerator
	now    func() time.Time

	postTimeout       time.Duration
	completionTimeout time.Duration
	callerTimeout     time.Duration
	stuckAfter        time.Duration
	minHostVersion    int

	observers []Observer

	serial  sync.Mutex
	session atomic.Pointer[Session]
}

// New creates a disconnected engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:            slog.Default(),
		stats:             stats.New(),
		clock:             NewClock(),
		ids:               UUIDv7Generator{},
		now:               time.Now,
		postTimeout:       DefaultPostTimeout,
		completionTimeout: DefaultCompletionTimeout,
		callerTimeout:     DefaultCallerTimeout,
		stuckAfter:        DefaultStuckAfter,
		minHostVersion:    DefaultMinHostVersion,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Registry exposes the statistics registry for diagnostic readers.
func (e *Engine) Registry() *stats.Registry {
	return e.stats
}

// Session returns the live session, or nil while disconnected.
func (e *Engine) Session() *Session {
	return e.session.Load()
}

// gate reports the live session, or the reason requests are refused.
func (e *Engine) gate() (*Session, Reason) {
	s := e.session.Load()
	if s == nil {
		return nil, ReasonNoSession
	}
	if s.host.Version() < e.minHostVersion {
		return nil, VersionReason(e.minHostVersion)
	}
	return s, ReasonNone
}

func (e *Engine) reportStuck() {
	now := e.now()
	for _, p := range e.stats.Stuck(now, e.stuckAfter) {
		e.logger.Warn("dispatch stuck",
			"dispatch_id", p.ID,
			"age", now.Sub(p.SubmittedAt),
		)
	}
}
