package journal

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/autotap/internal/engine"
)

// DefaultBuffer is the recorder queue size used when none is configured.
const DefaultBuffer = 256

// Recorder journals engine records asynchronously.
//
// Observe never blocks: when the queue is full the record is dropped and
// counted. Engine callers are never slowed down by the disk.
type Recorder struct {
	store  *Store
	logger *slog.Logger
	queue  chan engine.Record
	quit   chan struct{}
	done   chan struct{}

	closing  atomic.Bool
	written  atomic.Uint64
	dropped  atomic.Uint64
	failed   atomic.Uint64
	startOne sync.Once
	stopOne  sync.Once
}

// RecorderStats reports recorder throughput.
type RecorderStats struct {
	Written uint64 `json:"written"`
	Dropped uint64 `json:"dropped"`
	Failed  uint64 `json:"failed"`
}

// NewRecorder creates a stopped recorder writing to store.
func NewRecorder(store *Store, buffer int, logger *slog.Logger) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("journal: recorder needs a store")
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:  store,
		logger: logger,
		queue:  make(chan engine.Record, buffer),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Start launches the writer goroutine. Calling Start more than once has no
// effect.
func (r *Recorder) Start(ctx context.Context) {
	r.startOne.Do(func() {
		go r.run(ctx)
	})
}

// Observe implements engine.Observer.
func (r *Recorder) Observe(rec engine.Record) {
	if r.closing.Load() {
		r.dropped.Add(1)
		return
	}
	select {
	case r.queue <- rec:
	default:
		r.dropped.Add(1)
	}
}

// Close stops accepting records, writes what is queued and waits for the
// writer to finish. The recorder must have been started.
func (r *Recorder) Close() {
	r.stopOne.Do(func() {
		r.closing.Store(true)
		close(r.quit)
	})
	<-r.done
}

// Stats returns the recorder counters.
func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Written: r.written.Load(),
		Dropped: r.dropped.Load(),
		Failed:  r.failed.Load(),
	}
}

func (r *Recorder) run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case rec := <-r.queue:
			r.write(ctx, rec)
		case <-r.quit:
			r.drain(ctx)
			return
		case <-ctx.Done():
			r.drain(context.WithoutCancel(ctx))
			return
		}
	}
}

func (r *Recorder) drain(ctx context.Context) {
	for {
		select {
		case rec := <-r.queue:
			r.write(ctx, rec)
		default:
			return
		}
	}
}

func (r *Recorder) write(ctx context.Context, rec engine.Record) {
	entry, err := EntryFromRecord(rec)
	if err == nil {
		err = r.store.Write(ctx, entry)
	}
	if err != nil {
		r.failed.Add(1)
		r.logger.Error("journal write failed", "dispatch_id", rec.ID, "error", err)
		return
	}
	r.written.Add(1)
}
