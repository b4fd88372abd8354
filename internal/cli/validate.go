package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/autotap/internal/harness"
)

// ValidationResult holds validation results for a set of scenario files.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// FileValidation is the result for one scenario file.
type FileValidation struct {
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
	Field string `json:"field,omitempty"`
	Error string `json:"error,omitempty"`
}

func (r ValidationResult) String() string {
	var b strings.Builder
	invalid := 0
	for _, fv := range r.Files {
		if fv.Valid {
			fmt.Fprintf(&b, "✓ %s\n", fv.Path)
			continue
		}
		invalid++
		fmt.Fprintf(&b, "✗ %s\n  %s\n", fv.Path, fv.Error)
	}
	if invalid == 0 {
		fmt.Fprintf(&b, "✓ %d scenario file(s) valid\n", len(r.Files))
	} else {
		fmt.Fprintf(&b, "%d of %d scenario file(s) invalid\n", invalid, len(r.Files))
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file-or-dir>...",
		Short: "Validate scenario files without running them",
		Long: `Check scenario files against the scenario schema and the structural
rules applied before a run: one action per step, known assertion types,
valid durations and host behaviors.

Directories are expanded to the *.yaml and *.yml files they contain.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rootOpts, args)
		},
	}

	return cmd
}

func runValidate(cmd *cobra.Command, opts *RootOptions, args []string) error {
	f := opts.formatter(cmd)

	files, err := expandScenarioPaths(args)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeScenario, err)
	}
	if len(files) == 0 {
		return f.Fail(ExitCommandError, ErrCodeScenario, errors.New("no scenario files found"))
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, path := range files {
		f.VerboseLog("Validating %s", path)
		result.Files = append(result.Files, validateFile(path))
		if !result.Files[len(result.Files)-1].Valid {
			result.Valid = false
		}
	}

	if err := f.Success(result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func validateFile(path string) FileValidation {
	fv := FileValidation{Path: path, Valid: true}
	if _, err := harness.LoadScenario(path); err != nil {
		fv.Valid = false
		fv.Error = err.Error()
		var se *harness.ScenarioError
		if errors.As(err, &se) {
			fv.Field = se.Field
		}
	}
	return fv
}

// expandScenarioPaths replaces directories with the scenario files in them.
func expandScenarioPaths(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("path not found: %s", arg)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := harness.ScenarioFiles(arg)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}
