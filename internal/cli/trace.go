package cli

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/autotap/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Journal  string
	Session  string
	Outcome  string
	Limit    int
	Sessions bool
}

// TraceReport is the output of the trace command.
type TraceReport struct {
	Entries  []journal.Entry  `json:"entries"`
	Outcomes map[string]int64 `json:"outcomes"`
	Sessions []string         `json:"sessions,omitempty"`
}

func (r TraceReport) String() string {
	var b strings.Builder
	if r.Sessions != nil {
		fmt.Fprintf(&b, "Sessions (%d):\n", len(r.Sessions))
		for _, id := range r.Sessions {
			fmt.Fprintf(&b, "  %s\n", id)
		}
		return b.String()
	}

	if len(r.Entries) == 0 {
		b.WriteString("No dispatches found\n")
	}
	for _, e := range r.Entries {
		session := e.SessionID
		if session == "" {
			session = "-"
		}
		fmt.Fprintf(&b, "%4d  %-36s  #%-4d %-5s %-18s %8s  %s",
			e.Seq, session, e.DispatchID, e.Kind, e.Outcome, e.Latency().Truncate(time.Millisecond), e.Action)
		if e.Reason != "" {
			fmt.Fprintf(&b, "  reason=%s", e.Reason)
		}
		b.WriteString("\n")
	}

	if len(r.Outcomes) > 0 {
		names := make([]string, 0, len(r.Outcomes))
		for name := range r.Outcomes {
			names = append(names, name)
		}
		slices.Sort(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = fmt.Sprintf("%s=%d", name, r.Outcomes[name])
		}
		fmt.Fprintf(&b, "\nOutcomes: %s\n", strings.Join(parts, " "))
	}
	return b.String()
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled dispatches",
		Long: `Query the dispatch journal written by "autotap run" and print every
resolved request with its outcome, failure reason and latency.

Example:
  autotap trace --journal ./autotap.db
  autotap trace --journal ./autotap.db --outcome cancelled --limit 20
  autotap trace --journal ./autotap.db --sessions`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "journal database path (overrides journal.path)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "only show dispatches from this session")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only show this outcome (completed|cancelled|timed_out|rejected_immediate)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of dispatches (0 = all)")
	cmd.Flags().BoolVar(&opts.Sessions, "sessions", false, "list journaled sessions instead of dispatches")

	return cmd
}

func runTrace(cmd *cobra.Command, opts *TraceOptions) error {
	f := opts.formatter(cmd)

	path := opts.Journal
	if path == "" {
		cfg, err := opts.loadConfig()
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeConfig, err)
		}
		path = cfg.Journal.Path
	}
	if path == "" {
		return f.Fail(ExitCommandError, ErrCodeJournal, errors.New("journal path required (--journal or journal.path)"))
	}
	// Open would create a missing file.
	if _, err := os.Stat(path); err != nil {
		return f.Fail(ExitCommandError, ErrCodeJournal, fmt.Errorf("journal not found: %s", path))
	}
	if opts.Limit < 0 {
		return f.Fail(ExitCommandError, ErrCodeInvalid, fmt.Errorf("--limit must not be negative, got %d", opts.Limit))
	}

	st, err := journal.Open(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeJournal, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	var report TraceReport
	if opts.Sessions {
		report.Sessions, err = st.Sessions(ctx)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeJournal, err)
		}
		return f.Success(report)
	}

	report.Entries, err = st.List(ctx, journal.Filter{
		SessionID: opts.Session,
		Outcome:   opts.Outcome,
		Limit:     opts.Limit,
	})
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeJournal, err)
	}
	report.Outcomes, err = st.OutcomeCounts(ctx, opts.Session)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeJournal, err)
	}
	f.VerboseLog("%d dispatch(es) from %s", len(report.Entries), path)
	return f.Success(report)
}
