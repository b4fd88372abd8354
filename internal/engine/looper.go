package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrLooperClosed is returned by Run when the looper was quit before it
// started.
var ErrLooperClosed = errors.New("engine: looper closed")

// Task is a unit of work executed on a Looper. The context passed to the
// task identifies the looper, see Looper.IsCurrent.
type Task func(ctx context.Context)

type looperKey struct{}

// Looper is a single-goroutine FIFO task runner.
//
// Hosts that require every injection call and callback on one fixed thread
// hand the engine a Looper for that thread; the engine also runs one Looper
// per session as its dispatch thread.
//
// The queue is unbounded so Post never blocks the caller. Thread-safety:
// Post, Quit, Len and IsCurrent are safe from any goroutine; Run must be
// called from exactly one goroutine.
type Looper struct {
	name string

	mu      sync.Mutex
	tasks   []Task
	closed  bool
	running bool
	signal  chan struct{} // buffered, size 1
	done    chan struct{}
	logger  *slog.Logger
}

// NewLooper creates a stopped looper.
func NewLooper(name string) *Looper {
	return &Looper{
		name:   name,
		tasks:  make([]Task, 0, 16),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: slog.Default(),
	}
}

// Name returns the looper name given at construction.
func (l *Looper) Name() string {
	return l.name
}

// SetLogger replaces the logger used to report recovered task panics.
func (l *Looper) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	l.mu.Lock()
	l.logger = logger
	l.mu.Unlock()
}

// Post appends a task to the queue. Returns false once the looper is quit.
func (l *Looper) Post(task Task) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.tasks = append(l.tasks, task)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case l.signal <- struct{}{}:
	default:
	}
	return true
}

// Start runs the looper on a new goroutine.
func (l *Looper) Start(ctx context.Context) {
	go func() {
		_ = l.Run(ctx)
	}()
}

// Run executes tasks in FIFO order until Quit drains the queue or ctx is
// cancelled. Tasks still queued when ctx is cancelled are dropped.
func (l *Looper) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("engine: looper %q already running", l.name)
	}
	if l.closed && len(l.tasks) == 0 {
		l.mu.Unlock()
		close(l.done)
		return ErrLooperClosed
	}
	l.running = true
	l.mu.Unlock()

	defer close(l.done)
	taskCtx := context.WithValue(ctx, looperKey{}, l)

	for {
		if task, ok := l.next(); ok {
			l.runTask(taskCtx, task)
			continue
		}

		select {
		case <-ctx.Done():
			l.Quit()
			return ctx.Err()
		case <-l.signal:
			// The signal channel is closed by Quit, so this fires
			// immediately once the looper is shutting down.
			if l.drained() {
				return nil
			}
		}
	}
}

func (l *Looper) runTask(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			l.mu.Lock()
			logger := l.logger
			l.mu.Unlock()
			logger.Error("looper task panicked", "looper", l.name, "panic", r)
		}
	}()
	task(ctx)
}

func (l *Looper) next() (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tasks) == 0 {
		return nil, false
	}
	task := l.tasks[0]
	l.tasks[0] = nil // release the closure for GC
	if len(l.tasks) == 1 {
		l.tasks = l.tasks[:0]
	} else {
		l.tasks = l.tasks[1:]
	}
	return task, true
}

func (l *Looper) drained() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed && len(l.tasks) == 0
}

// Quit stops accepting tasks. Tasks already queued still run before Run
// returns.
func (l *Looper) Quit() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	close(l.signal)
}

// Done is closed when Run has returned.
func (l *Looper) Done() <-chan struct{} {
	return l.done
}

// Len returns the number of queued tasks.
func (l *Looper) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// IsCurrent reports whether ctx belongs to a task running on l.
func (l *Looper) IsCurrent(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	cur, _ := ctx.Value(looperKey{}).(*Looper)
	return cur == l
}
