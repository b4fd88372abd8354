package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/autotap/internal/engine"
	"github.com/roach88/autotap/internal/journal"
	"github.com/roach88/autotap/internal/stats"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	host     hostFlags
	Journal  string
	Repeat   int
	Duration time.Duration
	Delay    time.Duration
}

// GestureResult is the verdict for one dispatched gesture.
type GestureResult struct {
	Gesture string `json:"gesture"`
	OK      bool   `json:"ok"`
}

// RunReport is the output of the run command.
type RunReport struct {
	SessionID   string                 `json:"session_id"`
	Gestures    []GestureResult        `json:"gestures"`
	Stats       stats.Snapshot         `json:"stats"`
	Diagnostics stats.Diagnostics      `json:"diagnostics"`
	JournalPath string                 `json:"journal_path,omitempty"`
	Journal     *journal.RecorderStats `json:"journal,omitempty"`
}

// Failed counts gestures that did not complete.
func (r RunReport) Failed() int {
	n := 0
	for _, g := range r.Gestures {
		if !g.OK {
			n++
		}
	}
	return n
}

func (r RunReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s\n", r.SessionID)
	for _, g := range r.Gestures {
		mark := "✓"
		if !g.OK {
			mark = "✗"
		}
		fmt.Fprintf(&b, "%s %s\n", mark, g.Gesture)
	}
	b.WriteString("\n")
	writeStats(&b, r.Stats)
	if r.Journal != nil {
		fmt.Fprintf(&b, "Journal: %s (%d written, %d dropped, %d failed)\n",
			r.JournalPath, r.Journal.Written, r.Journal.Dropped, r.Journal.Failed)
	}
	return b.String()
}

func writeStats(b *strings.Builder, s stats.Snapshot) {
	fmt.Fprintf(b, "Dispatched: %d\n", s.Dispatched)
	fmt.Fprintf(b, "Completed:  %d\n", s.Completed)
	fmt.Fprintf(b, "Cancelled:  %d\n", s.Cancelled)
	fmt.Fprintf(b, "Timed out:  %d\n", s.Timeout)
	fmt.Fprintf(b, "Immediate:  %d (gate %d)\n", s.ImmediateFail, s.GateRejected)
	if s.LastFail != "" {
		fmt.Fprintf(b, "Last fail:  %s\n", s.LastFail)
	}
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [gesture...]",
		Short: "Dispatch gestures against a simulated host",
		Long: `Dispatch gestures one at a time through the engine, connected to an
in-process simulated host, and print the resulting statistics.

Gestures are written as:

  click:X,Y
  swipe:X1,Y1:X2,Y2
  path:X1,Y1:X2,Y2[:X3,Y3...]

Without arguments a click, a swipe and a path are dispatched.

Example:
  autotap run click:100,200 swipe:0,800:0,200 --behavior cancel
  autotap run --journal ./autotap.db --repeat 10`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts, args)
		},
	}

	opts.host.register(cmd)
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "journal database path (overrides journal.path)")
	cmd.Flags().IntVar(&opts.Repeat, "repeat", 1, "number of times to dispatch the gesture list")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "press, swipe or move duration (0 = engine default)")
	cmd.Flags().DurationVar(&opts.Delay, "delay", 0, "delay before each gesture starts")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions, args []string) error {
	f := opts.formatter(cmd)

	if opts.Repeat < 1 {
		return f.Fail(ExitCommandError, ErrCodeInvalid, fmt.Errorf("--repeat must be at least 1, got %d", opts.Repeat))
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

	ctx := cmd.Context()
	ls, err := startSession(ctx, cfg, &opts.host, logger)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeJournal, err)
	}

	var timing []engine.TimingOption
	if opts.Duration > 0 {
		timing = append(timing, engine.WithDuration(opts.Duration))
	}
	if opts.Delay > 0 {
		timing = append(timing, engine.WithDelay(opts.Delay))
	}

	report := RunReport{SessionID: ls.session.ID(), JournalPath: cfg.Journal.Path}
	for i := 0; i < opts.Repeat; i++ {
		for _, g := range gestures {
			ok := g.dispatch(ctx, ls.engine, timing...)
			f.VerboseLog("%s -> %t", g.raw, ok)
			report.Gestures = append(report.Gestures, GestureResult{Gesture: g.raw, OK: ok})
		}
	}

	if err := ls.Close(); err != nil {
		return f.Fail(ExitCommandError, ErrCodeJournal, err)
	}
	report.Stats = ls.engine.Stats()
	report.Diagnostics = ls.engine.Diagnostics()
	report.Journal = ls.journalStats()

	if err := f.Success(report); err != nil {
		return err
	}
	if n := report.Failed(); n > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d gesture(s) failed", n, len(report.Gestures)))
	}
	return nil
}
