package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/autotap/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool
	Filter    string
	GoldenDir string
}

// TestResult is the output of the test command.
type TestResult struct {
	Total     int              `json:"total"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated" or "missing"
	Errors []string `json:"errors,omitempty"`
}

func (r TestResult) String() string {
	var b strings.Builder
	for _, s := range r.Scenarios {
		mark := "✓"
		if !s.Pass {
			mark = "✗"
		}
		switch s.Golden {
		case "updated":
			fmt.Fprintf(&b, "%s %s (golden updated)\n", mark, s.Name)
		default:
			fmt.Fprintf(&b, "%s %s\n", mark, s.Name)
		}
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "  %s\n", strings.ReplaceAll(e, "\n", "\n  "))
		}
	}
	fmt.Fprintf(&b, "\nTest Summary: %d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
	if r.Failed == 0 {
		b.WriteString("✓ All scenarios passed\n")
	}
	return b.String()
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files against the engine and a simulated host",
		Long: `Run every *.yaml scenario in a directory. Each scenario gets a fresh
engine, simulated host and in-memory journal.

A scenario passes when its expect clauses, expected statistics and
assertions hold and, if a golden file exists, its trace matches it.
Golden files live in <golden-dir>/<scenario name>.golden; the default
golden directory is "golden" next to the scenarios directory.

Example:
  autotap test ./testdata/scenarios
  autotap test ./testdata/scenarios --filter gate --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden files from the current traces")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose name contains this string")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "golden file directory (default: sibling \"golden\" directory)")

	return cmd
}

func runTest(cmd *cobra.Command, opts *TestOptions, dir string) error {
	f := opts.formatter(cmd)

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return f.Fail(ExitCommandError, ErrCodeScenario, fmt.Errorf("scenarios directory not found: %s", dir))
	}
	files, err := harness.ScenarioFiles(dir)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeScenario, err)
	}

	_, logger, err := opts.setup(cmd, f)
	if err != nil {
		return err
	}

	goldenDir := opts.GoldenDir
	if goldenDir == "" {
		goldenDir = filepath.Join(filepath.Dir(filepath.Clean(dir)), "golden")
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, file := range files {
		sr, skip := runScenarioFile(file, goldenDir, opts, f, harness.WithLogger(logger))
		if skip {
			continue
		}
		result.Scenarios = append(result.Scenarios, sr)
		result.Total++
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if result.Total == 0 {
		if f.Format == "json" {
			return f.Success(result)
		}
		fmt.Fprintln(f.Writer, "No scenarios found")
		return nil
	}

	if err := f.Success(result); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// runScenarioFile loads and runs one scenario. skip is true when the
// scenario is excluded by --filter.
func runScenarioFile(file, goldenDir string, opts *TestOptions, f *OutputFormatter, hopts ...harness.Option) (ScenarioResult, bool) {
	sr := ScenarioResult{Name: strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		if opts.Filter != "" && !strings.Contains(sr.Name, opts.Filter) {
			return sr, true
		}
		sr.Errors = []string{err.Error()}
		return sr, false
	}
	sr.Name = scenario.Name
	if opts.Filter != "" && !strings.Contains(scenario.Name, opts.Filter) {
		return sr, true
	}

	f.VerboseLog("Running %s (%s)", scenario.Name, file)
	result, err := harness.Run(scenario, hopts...)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("run failed: %v", err)}
		return sr, false
	}

	goldenPath := filepath.Join(goldenDir, scenario.Name+".golden")
	data, err := harness.MarshalSnapshot(scenario.Name, result)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to marshal trace: %v", err)}
		return sr, false
	}

	sr.Errors = append(sr.Errors, result.Errors...)
	switch {
	case opts.Update:
		if err := writeGolden(goldenPath, data); err != nil {
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to update golden file: %v", err))
		} else {
			sr.Golden = "updated"
		}
	default:
		match, err := compareGolden(goldenPath, data)
		switch {
		case os.IsNotExist(err):
			sr.Golden = "missing"
		case err != nil:
			sr.Errors = append(sr.Errors, fmt.Sprintf("golden comparison failed: %v", err))
		case !match:
			sr.Errors = append(sr.Errors, "trace does not match golden file (run with --update to regenerate)")
		default:
			sr.Golden = "match"
		}
	}

	sr.Pass = len(sr.Errors) == 0
	return sr, false
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func compareGolden(path string, data []byte) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return bytes.Equal(want, data), nil
}
