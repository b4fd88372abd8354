package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/autotap/internal/logging"
	"github.com/roach88/autotap/internal/monitor"
)

// MonitorOptions holds flags for the monitor command.
type MonitorOptions struct {
	*RootOptions
	host     hostFlags
	Journal  string
	Every    time.Duration
	Interval time.Duration
	For      time.Duration
}

// NewMonitorCommand creates the monitor command.
func NewMonitorCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MonitorOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "monitor [gesture...]",
		Short: "Watch live statistics while gestures are dispatched",
		Long: `Open a terminal view of the engine's statistics while a background
loop dispatches gestures against the simulated host.

Gestures use the same syntax as "autotap run". Press q to quit,
r to reset the statistics, ? for help.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd, opts, args)
		},
	}

	opts.host.register(cmd)
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "journal database path (overrides journal.path)")
	cmd.Flags().DurationVar(&opts.Every, "every", 500*time.Millisecond, "pause between dispatched gestures")
	cmd.Flags().DurationVar(&opts.Interval, "interval", monitor.DefaultInterval, "statistics refresh period")
	cmd.Flags().DurationVar(&opts.For, "for", 0, "quit after this long (0 = until q)")

	return cmd
}

func runMonitor(cmd *cobra.Command, opts *MonitorOptions, args []string) error {
	f := opts.formatter(cmd)

	if opts.Every <= 0 {
		return f.Fail(ExitCommandError, ErrCodeInvalid, fmt.Errorf("--every must be positive, got %s", opts.Every))
	}
	gestures, err := parseGestureArgs(args)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGesture, err)
	}

	cfg, logger, err := opts.setup(cmd, f)
	if err != nil {
		return err
	}
	if opts.Journal != "" {
		cfg.Journal.Path = opts.Journal
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if opts.For > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.For)
		defer cancel()
	}

	// Engine logs would tear the alt screen; keep only what the journal records.
	if !opts.Verbose {
		logger = logging.Discard()
	}
	ls, err := startSession(ctx, cfg, &opts.host, logger)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeJournal, err)
	}

	loadDone := make(chan struct{})
	go func() {
		defer close(loadDone)
		dispatchLoop(ctx, ls, gestures, opts.Every)
	}()

	runErr := monitor.Run(ctx, ls.engine, nil, monitor.WithInterval(opts.Interval))
	cancel()
	<-loadDone

	if err := ls.Close(); err != nil {
		return f.Fail(ExitCommandError, ErrCodeJournal, err)
	}
	if runErr != nil {
		return WrapExitError(ExitCommandError, "monitor", runErr)
	}
	return nil
}

// dispatchLoop cycles through gestures until ctx ends.
func dispatchLoop(ctx context.Context, ls *liveSession, gestures []gestureArg, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		g := gestures[i%len(gestures)]
		ok := g.dispatch(ctx, ls.engine)
		ls.logger.Debug("monitor dispatch", "gesture", g.raw, "ok", ok)
	}
}
