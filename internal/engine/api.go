package engine

import (
	"context"
	"fmt"

	"github.com/roach88/autotap/internal/gesture"
	"github.com/roach88/autotap/internal/stats"
)

// Click taps at (x, y). Press time defaults to 90ms.
//
// Returns true only when the host reported the gesture completed, or
// immediately once posted when called from the host loop.
func (e *Engine) Click(ctx context.Context, x, y int, opts ...TimingOption) bool {
	t := newTiming(DefaultPress, opts)
	s, reason := e.gate()
	if reason != ReasonNone {
		return e.reject(gesture.KindTap, reason)
	}

	action := fmt.Sprintf("click(%d,%d) press=%d delay=%d", x, y, t.duration.Milliseconds(), t.delay.Milliseconds())
	e.stats.SetLastAction(action)
	req := gesture.NewTap(gesture.Pt(x, y), t.duration, t.delay)
	return e.settle(e.dispatch(ctx, s, gesture.KindTap, action, req))
}

// Swipe moves in a straight line from (fromX, fromY) to (toX, toY).
// Duration defaults to 200ms.
func (e *Engine) Swipe(ctx context.Context, fromX, fromY, toX, toY int, opts ...TimingOption) bool {
	t := newTiming(DefaultSwipeDuration, opts)
	s, reason := e.gate()
	if reason != ReasonNone {
		return e.reject(gesture.KindSwipe, reason)
	}

	req := gesture.NewSwipe(gesture.Pt(fromX, fromY), gesture.Pt(toX, toY), t.duration, t.delay)
	to := req.Strokes[0].Path[1]
	action := fmt.Sprintf("swipe(%d,%d->%d,%d) dur=%d delay=%d", fromX, fromY, to.X, to.Y, t.duration.Milliseconds(), t.delay.Milliseconds())
	e.stats.SetLastAction(action)
	return e.settle(e.dispatch(ctx, s, gesture.KindSwipe, action, req))
}

// SwipePath follows pts as a single stroke. Move time defaults to 300ms
// and never drops below 80ms; WithHold extends the stroke at its end.
// Fewer than two points fail without touching the statistics.
func (e *Engine) SwipePath(ctx context.Context, pts []gesture.Point, opts ...TimingOption) bool {
	t := newTiming(DefaultPathMove, opts)
	s, reason := e.gate()
	if reason != ReasonNone {
		return e.reject(gesture.KindPath, reason)
	}
	if len(pts) < 2 {
		return false
	}

	req, err := gesture.NewPath(pts, t.duration, t.hold, t.delay)
	if err != nil {
		e.logger.Warn("path rejected", "error", err)
		return false
	}
	action := fmt.Sprintf("swipePath(%d) dur=%d hold=%d delay=%d",
		len(req.Strokes[0].Path), t.duration.Milliseconds(), t.hold.Milliseconds(), t.delay.Milliseconds())
	e.stats.SetLastAction(action)
	return e.settle(e.dispatch(ctx, s, gesture.KindPath, action, req))
}

// reject refuses a request at the lifecycle gate. It never touches the
// pending table or the serialization lock.
func (e *Engine) reject(kind gesture.Kind, reason Reason) bool {
	e.stats.RecordGateReject(string(reason))
	e.logger.Debug("request refused", "kind", string(kind), "reason", string(reason))
	now := e.now()
	e.notify(Record{
		Kind:        kind,
		Outcome:     OutcomeRejected,
		Reason:      reason,
		SubmittedAt: now,
		ResolvedAt:  now,
	})
	return false
}

func (e *Engine) settle(ok bool) bool {
	if !ok {
		e.stats.SetLastFailIfEmpty(string(ReasonUnknown))
	}
	return ok
}

// Stats returns a copy of the dispatch counters.
func (e *Engine) Stats() stats.Snapshot {
	return e.stats.Snapshot()
}

// ResetStats zeroes the counters and clears the pending table. Requests in
// flight during a reset are not counted when they resolve.
func (e *Engine) ResetStats() {
	e.stats.Reset()
	e.logger.Info("stats reset")
}

// LastAction describes the most recent request that passed the gate.
func (e *Engine) LastAction() (string, bool) {
	return e.stats.LastAction()
}

// Diagnostics returns the last action, event package and window package.
func (e *Engine) Diagnostics() stats.Diagnostics {
	return e.stats.Diagnostics()
}

// Pending lists dispatches that have not resolved yet.
func (e *Engine) Pending() []stats.PendingEntry {
	return e.stats.Pending()
}

// ObserveEvent records the package name of the latest host event.
func (e *Engine) ObserveEvent(pkg string) {
	if pkg != "" {
		e.stats.SetLastEventPackage(pkg)
	}
}
