package engine

import (
	"context"
	"sync/atomic"
	"time"
)

// Session is one grant of the host injection primitive. An engine has at
// most one live session; connecting again retires the previous one.
type Session struct {
	id          string
	host        Host
	worker      *Looper
	connectedAt time.Time
	retired     atomic.Bool
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Host returns the host the session was connected with.
func (s *Session) Host() Host { return s.host }

// ConnectedAt returns the connection time.
func (s *Session) ConnectedAt() time.Time { return s.connectedAt }

// Done is closed once the session's dispatch looper has drained after
// retirement.
func (s *Session) Done() <-chan struct{} { return s.worker.Done() }

// Retired reports whether the session was disconnected or replaced.
func (s *Session) Retired() bool { return s.retired.Load() }

// retire stops the dispatch looper. Units already queued still run.
func (s *Session) retire() bool {
	if !s.retired.CompareAndSwap(false, true) {
		return false
	}
	s.worker.Quit()
	return true
}

// Connect starts a session on host with a fresh dispatch looper. A session
// that is still live is retired. The session is also retired when ctx ends.
func (e *Engine) Connect(ctx context.Context, host Host) (*Session, error) {
	if host == nil {
		return nil, ErrNilHost
	}
	if host.Loop() == nil {
		return nil, ErrNilLoop
	}

	id := e.ids.Generate()
	s := &Session{
		id:          id,
		host:        host,
		worker:      NewLooper("dispatch-" + id),
		connectedAt: e.now(),
	}
	s.worker.SetLogger(e.logger)
	s.worker.Start(context.WithoutCancel(ctx))

	if old := e.session.Swap(s); old != nil {
		old.retire()
		e.logger.Info("session replaced", "old_session", old.id, "session", id)
	}
	e.logger.Info("session connected", "session", id, "host_version", host.Version())

	go func() {
		select {
		case <-ctx.Done():
			_ = e.Disconnect(s)
		case <-s.worker.Done():
		}
	}()

	return s, nil
}

// Disconnect retires s. Requests made afterwards fail with svc=null until
// the next Connect.
func (e *Engine) Disconnect(s *Session) error {
	if s == nil {
		return ErrNotSession
	}
	if e.session.CompareAndSwap(s, nil) {
		s.retire()
		e.logger.Info("session disconnected", "session", s.id)
		return nil
	}
	if s.Retired() {
		return ErrSessionDone
	}
	return ErrNotSession
}

// IsReady reports whether a host session is connected.
func (e *Engine) IsReady() bool {
	return e.session.Load() != nil
}
