package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/autotap/internal/gesture"
	"github.com/roach88/autotap/internal/simhost"
)

// Scenario is a scripted run of the engine against a simulated host.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Host configures the simulated host.
	Host HostConfig `yaml:"host,omitempty"`

	// Engine overrides engine deadlines.
	Engine EngineConfig `yaml:"engine,omitempty"`

	// Connect controls whether a session is connected before the first
	// step. Defaults to true.
	Connect *bool `yaml:"connect,omitempty"`

	// Steps run in order; each finishes before the next starts.
	Steps []Step `yaml:"steps"`

	// ExpectStats is checked against the final statistics snapshot.
	// Only the fields present are compared.
	ExpectStats *StatsExpectation `yaml:"expect_stats,omitempty"`

	// Assertions validate the final trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// HostConfig describes the simulated host at the start of a run.
type HostConfig struct {
	Version  *int     `yaml:"version,omitempty"`
	Behavior string   `yaml:"behavior,omitempty"`
	Latency  Duration `yaml:"latency,omitempty"`
	Stall    Duration `yaml:"stall,omitempty"`
	Window   string   `yaml:"window,omitempty"`
}

// EngineConfig overrides engine deadlines. Zero values keep the defaults.
type EngineConfig struct {
	PostTimeout       Duration `yaml:"post_timeout,omitempty"`
	CompletionTimeout Duration `yaml:"completion_timeout,omitempty"`
	CallerTimeout     Duration `yaml:"caller_timeout,omitempty"`
	MinHostVersion    *int     `yaml:"min_host_version,omitempty"`
}

// Step is one scenario action. Exactly one of the action fields is set.
type Step struct {
	Click *ClickStep `yaml:"click,omitempty"`
	Swipe *SwipeStep `yaml:"swipe,omitempty"`
	Path  *PathStep  `yaml:"path,omitempty"`

	// Connect starts a new session, retiring the current one.
	Connect bool `yaml:"connect,omitempty"`

	// Disconnect retires the current session.
	Disconnect bool `yaml:"disconnect,omitempty"`

	// Reset zeroes the engine statistics.
	Reset bool `yaml:"reset,omitempty"`

	// Behavior switches the simulated host behavior.
	Behavior string `yaml:"behavior,omitempty"`

	// Version changes the reported host version.
	Version *int `yaml:"version,omitempty"`

	// Event reports a host event from the named package.
	Event string `yaml:"event,omitempty"`

	// Wait sleeps, letting late callbacks arrive.
	Wait Duration `yaml:"wait,omitempty"`

	// Expect is the expected return value of a gesture step.
	Expect *bool `yaml:"expect,omitempty"`
}

// ClickStep taps at (X, Y).
type ClickStep struct {
	X     int      `yaml:"x"`
	Y     int      `yaml:"y"`
	Press Duration `yaml:"press,omitempty"`
	Delay Duration `yaml:"delay,omitempty"`
}

// SwipeStep swipes in a straight line.
type SwipeStep struct {
	From     gesture.Point `yaml:"from"`
	To       gesture.Point `yaml:"to"`
	Duration Duration      `yaml:"duration,omitempty"`
	Delay    Duration      `yaml:"delay,omitempty"`
}

// PathStep follows a multi-point path.
type PathStep struct {
	Points []gesture.Point `yaml:"points"`
	Move   Duration        `yaml:"move,omitempty"`
	Hold   Duration        `yaml:"hold,omitempty"`
	Delay  Duration        `yaml:"delay,omitempty"`
}

// StatsExpectation lists expected counter values.
type StatsExpectation struct {
	Dispatched    *int64  `yaml:"dispatched,omitempty"`
	Completed     *int64  `yaml:"completed,omitempty"`
	Cancelled     *int64  `yaml:"cancelled,omitempty"`
	ImmediateFail *int64  `yaml:"immediate_fail,omitempty"`
	Timeout       *int64  `yaml:"timeout,omitempty"`
	GateRejected  *int64  `yaml:"gate_rejected,omitempty"`
	LastFail      *string `yaml:"last_fail,omitempty"`
}

// Assertion validates the final trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_count": number of events matching Outcome and/or Kind
	// - "trace_order": outcomes appear in this order
	// - "trace_contains": an event matches Action, Outcome and Reason
	// - "last_action": the engine's last action equals Action
	// - "no_overlap": the host never saw overlapping gestures
	// - "journal_count": journal rows with Outcome
	Type string `yaml:"type"`

	Outcome  string   `yaml:"outcome,omitempty"`
	Kind     string   `yaml:"kind,omitempty"`
	Count    *int     `yaml:"count,omitempty"`
	Outcomes []string `yaml:"outcomes,omitempty"`
	Action   string   `yaml:"action,omitempty"`
	Reason   string   `yaml:"reason,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceCount    = "trace_count"
	AssertTraceOrder    = "trace_order"
	AssertTraceContains = "trace_contains"
	AssertLastAction    = "last_action"
	AssertNoOverlap     = "no_overlap"
	AssertJournalCount  = "journal_count"
)

// Duration is a time.Duration written as a Go duration string ("150ms").
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// LoadScenario reads, schema-checks and parses a scenario YAML file.
// Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	if err := Validate(data); err != nil {
		var se *ScenarioError
		if errors.As(err, &se) {
			se.Path = path
		}
		return nil, err
	}
	return ParseScenario(data)
}

// ParseScenario decodes a scenario without the schema check.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// ScenarioFiles lists the *.yaml and *.yml files in dir, sorted by name.
func ScenarioFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// validateScenario checks what the schema cannot express.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Host.Behavior != "" {
		if _, err := simhost.ParseBehavior(s.Host.Behavior); err != nil {
			return fmt.Errorf("host: %w", err)
		}
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	actions := st.actions()
	if len(actions) != 1 {
		return fmt.Errorf("steps[%d]: exactly one action required, got %v", index, actions)
	}
	if st.Expect != nil && !st.isGesture() {
		return fmt.Errorf("steps[%d]: expect is only valid on click, swipe and path", index)
	}
	if st.Behavior != "" {
		if _, err := simhost.ParseBehavior(st.Behavior); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}
	return nil
}

// actions names the action fields set on the step.
func (st *Step) actions() []string {
	var names []string
	if st.Click != nil {
		names = append(names, "click")
	}
	if st.Swipe != nil {
		names = append(names, "swipe")
	}
	if st.Path != nil {
		names = append(names, "path")
	}
	if st.Connect {
		names = append(names, "connect")
	}
	if st.Disconnect {
		names = append(names, "disconnect")
	}
	if st.Reset {
		names = append(names, "reset")
	}
	if st.Behavior != "" {
		names = append(names, "behavior")
	}
	if st.Version != nil {
		names = append(names, "version")
	}
	if st.Event != "" {
		names = append(names, "event")
	}
	if st.Wait > 0 {
		names = append(names, "wait")
	}
	return names
}

func (st *Step) isGesture() bool {
	return st.Click != nil || st.Swipe != nil || st.Path != nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Count != nil && *a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertTraceCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for trace_count", index)
		}
		if a.Outcome == "" && a.Kind == "" {
			return fmt.Errorf("assertions[%d]: outcome or kind is required for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Outcomes) == 0 {
			return fmt.Errorf("assertions[%d]: outcomes list is required for trace_order", index)
		}
	case AssertTraceContains:
		if a.Action == "" && a.Outcome == "" && a.Reason == "" {
			return fmt.Errorf("assertions[%d]: action, outcome or reason is required for trace_contains", index)
		}
	case AssertLastAction:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for last_action", index)
		}
	case AssertNoOverlap:
	case AssertJournalCount:
		if a.Outcome == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: outcome and count are required for journal_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
