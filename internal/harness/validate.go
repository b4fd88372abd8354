package harness

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// ScenarioError reports a scenario file that does not match the schema.
type ScenarioError struct {
	Path    string // scenario file, when known
	Field   string // dotted path of the offending field
	Message string
	More    int // further schema errors not shown
}

func (e *ScenarioError) Error() string {
	var buf strings.Builder
	if e.Path != "" {
		fmt.Fprintf(&buf, "%s: ", e.Path)
	}
	if e.Field != "" {
		fmt.Fprintf(&buf, "%s: ", e.Field)
	}
	buf.WriteString(e.Message)
	if e.More > 0 {
		fmt.Fprintf(&buf, " (and %d more errors)", e.More)
	}
	return buf.String()
}

// Validate checks scenario YAML against the embedded CUE schema. Unknown
// fields, misspelled behaviors and malformed durations are reported as a
// *ScenarioError.
func Validate(data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &ScenarioError{Message: err.Error()}
	}
	if doc == nil {
		return &ScenarioError{Message: "scenario is empty"}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Scenario"))
	v := def.Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError keeps the first schema error and counts the rest.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ScenarioError{Message: err.Error()}
	}

	first := errs[0]
	format, args := first.Msg()
	return &ScenarioError{
		Field:   strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(format, args...),
		More:    len(errs) - 1,
	}
}
