package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/autotap/internal/config"
	"github.com/roach88/autotap/internal/engine"
	"github.com/roach88/autotap/internal/journal"
	"github.com/roach88/autotap/internal/simhost"
)

// drainTimeout bounds how long a closing session waits for queued dispatches.
const drainTimeout = 10 * time.Second

// hostFlags configure the simulated host used by run and monitor.
type hostFlags struct {
	behavior string
	latency  time.Duration
	version  int
	window   string
}

func (hf *hostFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&hf.behavior, "behavior", string(simhost.Complete), "simulated host behavior (complete|cancel|never|reject|error|panic|stall)")
	cmd.Flags().DurationVar(&hf.latency, "latency", 50*time.Millisecond, "delay before the simulated host reports a result")
	cmd.Flags().IntVar(&hf.version, "host-version", simhost.DefaultVersion, "capability level reported by the simulated host")
	cmd.Flags().StringVar(&hf.window, "window", "com.example.app", "package owning the simulated active window")
}

func (hf *hostFlags) options() ([]simhost.Option, error) {
	b, err := simhost.ParseBehavior(hf.behavior)
	if err != nil {
		return nil, err
	}
	return []simhost.Option{
		simhost.WithBehavior(b),
		simhost.WithLatency(hf.latency),
		simhost.WithVersion(hf.version),
		simhost.WithWindow(hf.window),
	}, nil
}

// liveSession is an engine connected to a simulated host, journaling to
// sqlite when a journal path is configured.
type liveSession struct {
	engine   *engine.Engine
	host     *simhost.Host
	session  *engine.Session
	store    *journal.Store
	recorder *journal.Recorder
	logger   *slog.Logger
}

// startSession connects a fresh engine to a simulated host. The session
// outlives ctx's cancellation; Close ends it.
func startSession(ctx context.Context, cfg config.Config, hf *hostFlags, logger *slog.Logger) (*liveSession, error) {
	hostOpts, err := hf.options()
	if err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	ls := &liveSession{logger: logger}
	engineOpts := append(cfg.EngineOptions(), engine.WithLogger(logger))

	if cfg.Journal.Path != "" {
		st, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		rec, err := journal.NewRecorder(st, cfg.Journal.Buffer, logger)
		if err != nil {
			st.Close()
			return nil, err
		}
		rec.Start(ctx)
		ls.store, ls.recorder = st, rec
		engineOpts = append(engineOpts, engine.WithObserver(rec))
	}

	ls.host = simhost.New(hostOpts...)
	ls.host.Start(ctx)
	ls.engine = engine.New(engineOpts...)

	s, err := ls.engine.Connect(ctx, ls.host)
	if err != nil {
		ls.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}
	ls.session = s

	if ls.store != nil {
		if err := ls.store.WriteSession(ctx, s.ID(), ls.host.Version(), s.ConnectedAt()); err != nil {
			ls.Close()
			return nil, fmt.Errorf("journal session: %w", err)
		}
	}
	return ls, nil
}

// Close disconnects, waits for queued dispatches and flushes the journal.
func (ls *liveSession) Close() error {
	var errs []error
	if ls.session != nil {
		_ = ls.engine.Disconnect(ls.session)
		select {
		case <-ls.session.Done():
		case <-time.After(drainTimeout):
			errs = append(errs, errors.New("session did not drain"))
		}
	}
	if ls.host != nil {
		ls.host.Close()
	}
	if ls.recorder != nil {
		ls.recorder.Close()
		if st := ls.recorder.Stats(); st.Dropped > 0 || st.Failed > 0 {
			ls.logger.Warn("journal incomplete", "dropped", st.Dropped, "failed", st.Failed)
		}
	}
	if ls.store != nil {
		if err := ls.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}
	return errors.Join(errs...)
}

// journalStats reports recorder throughput, nil without a journal.
func (ls *liveSession) journalStats() *journal.RecorderStats {
	if ls.recorder == nil {
		return nil
	}
	st := ls.recorder.Stats()
	return &st
}
