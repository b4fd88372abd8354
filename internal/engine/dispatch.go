package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/autotap/internal/gesture"
)

// Claim states of a host invocation posted to the host loop. Whoever moves
// the claim out of claimOpen decides whether the host is called.
const (
	claimOpen int32 = iota
	claimRunning
	claimAbandoned
)

// unit is one request on its way through a session's dispatch looper.
type unit struct {
	e           *Engine
	sess        *Session
	id          DispatchID
	kind        gesture.Kind
	action      string
	req         gesture.Request
	submittedAt time.Time
	bridge      *bridge
}

type invokeResult struct {
	accepted bool
	reason   Reason
}

// dispatch runs req through s and reports whether the host completed it.
//
// The serialization lock is held from submission until the caller stops
// waiting. Non-overlap of host invocations is carried by the dispatch
// looper: a unit runs until its outcome is final before the next starts,
// even when its caller has given up.
func (e *Engine) dispatch(ctx context.Context, s *Session, kind gesture.Kind, action string, req gesture.Request) bool {
	e.serial.Lock()
	defer e.serial.Unlock()

	if w, ok := s.host.(WindowInspector); ok {
		if pkg := w.ActiveWindowPackage(); pkg != "" {
			e.stats.SetLastWindowPackage(pkg)
		}
	}
	e.reportStuck()

	u := &unit{
		e:           e,
		sess:        s,
		id:          e.clock.Next(),
		kind:        kind,
		action:      action,
		req:         req,
		submittedAt: e.now(),
		bridge:      newBridge(),
	}
	e.stats.RecordDispatch(u.id, u.submittedAt)
	e.logger.Debug("dispatch submitted", "session", s.id, "dispatch_id", u.id, "action", action)

	if !s.worker.Post(u.run) {
		// Session retired between the gate check and the post.
		u.resolve(OutcomeRejected, ReasonNoSession)
		return false
	}

	// Never block the host loop: its own callers get true once posted.
	if s.host.Loop().IsCurrent(ctx) {
		return true
	}
	return e.await(ctx, u)
}

func (e *Engine) await(ctx context.Context, u *unit) bool {
	timer := time.NewTimer(e.callerTimeout)
	defer timer.Stop()

	select {
	case <-u.bridge.Done():
	case <-timer.C:
		if e.stats.Finish(u.id) {
			e.stats.RecordTimeout(string(ReasonCallerWaitTimeout))
		} else {
			e.stats.SetLastFail(string(ReasonCallerWaitTimeout))
		}
		e.logger.Warn("caller gave up waiting", "dispatch_id", u.id, "wait", e.callerTimeout)
		return false
	case <-ctx.Done():
		e.stats.SetLastFail(string(ReasonCallerInterrupted))
		e.logger.Warn("caller interrupted", "dispatch_id", u.id, "error", ctx.Err())
		return false
	}

	r := u.bridge.Result()
	if r == nil {
		e.stats.SetLastFailIfEmpty(string(ReasonResultNullRace))
		return false
	}
	return r.Success()
}

// run executes on the session's dispatch looper.
func (u *unit) run(context.Context) {
	cb := callbackFunc{
		completed: func() { u.resolve(OutcomeCompleted, ReasonNone) },
		cancelled: func() { u.resolve(OutcomeCancelled, ReasonCancelled) },
	}

	res := u.invoke(cb)
	if !res.accepted {
		u.resolve(OutcomeRejected, res.reason)
		return
	}

	if !u.bridge.wait(u.e.completionTimeout) {
		u.resolve(OutcomeTimedOut, ReasonTimeout)
	}
}

// invoke calls the host primitive on the host loop, waiting at most the
// post timeout for the loop to get to it. An invocation abandoned by the
// timeout never reaches the host.
func (u *unit) invoke(cb Callback) invokeResult {
	var claim atomic.Int32
	out := make(chan invokeResult, 1)

	posted := u.sess.host.Loop().Post(func(context.Context) {
		if !claim.CompareAndSwap(claimOpen, claimRunning) {
			return
		}
		out <- u.call(cb)
	})
	if !posted {
		return invokeResult{reason: ReasonPostTimeout}
	}

	timer := time.NewTimer(u.e.postTimeout)
	defer timer.Stop()

	select {
	case res := <-out:
		return res
	case <-timer.C:
		if !claim.CompareAndSwap(claimOpen, claimAbandoned) {
			// The host is inside Dispatch and has not returned in time.
			// Its loop is busy with it, so the next invocation queues
			// behind it anyway.
			u.e.logger.Warn("host dispatch slow to return", "dispatch_id", u.id)
		}
		return invokeResult{reason: ReasonPostTimeout}
	}
}

func (u *unit) call(cb Callback) (res invokeResult) {
	defer func() {
		if p := recover(); p != nil {
			u.e.logger.Error("host dispatch panicked", "dispatch_id", u.id, "panic", p)
			res = invokeResult{reason: ReasonPanic}
		}
	}()

	ok, err := u.sess.host.Dispatch(u.req, cb)
	if err != nil {
		u.e.logger.Error("host dispatch failed", "dispatch_id", u.id, "error", err)
		return invokeResult{reason: ReasonForError(err)}
	}
	if !ok {
		return invokeResult{reason: ReasonReturnedFalse}
	}
	return invokeResult{accepted: true}
}

func (u *unit) resolve(o Outcome, reason Reason) bool {
	return u.bridge.resolve(Result{ID: u.id, Outcome: o, Reason: reason}, u.commit)
}

// commit runs once, for the winning resolution, before the caller is
// released. Statistics are recorded only if this request still owns its
// pending entry; a caller timeout or a reset may have taken it.
func (u *unit) commit(r Result) {
	e := u.e
	if e.stats.Finish(r.ID) {
		switch r.Outcome {
		case OutcomeCompleted:
			e.stats.RecordCompleted()
		case OutcomeCancelled:
			e.stats.RecordCancelled(string(r.Reason))
		case OutcomeTimedOut:
			e.stats.RecordTimeout(string(r.Reason))
		default:
			e.stats.RecordImmediateFail(string(r.Reason))
		}
	}

	level := slog.LevelDebug
	if !r.Success() {
		level = slog.LevelWarn
	}
	e.logger.Log(context.Background(), level, "dispatch resolved",
		"session", u.sess.id,
		"dispatch_id", r.ID,
		"outcome", r.Outcome.String(),
		"reason", string(r.Reason),
	)

	e.notify(Record{
		SessionID:   u.sess.id,
		ID:          r.ID,
		Kind:        u.kind,
		Action:      u.action,
		Request:     u.req,
		Outcome:     r.Outcome,
		Reason:      r.Reason,
		SubmittedAt: u.submittedAt,
		ResolvedAt:  e.now(),
	})
}
