package harness

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ScenarioFiles(t *testing.T) {
	files, err := ScenarioFiles("testdata/scenarios")
	require.NoError(t, err)

	for _, path := range files {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NoError(t, Validate(data), path)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty document", ""},
		{"unknown top-level field", "name: n\ndescription: d\nsteps:\n  - reset: true\nextra: 1\n"},
		{"unknown step field", "name: n\ndescription: d\nsteps:\n  - tap: { x: 1, y: 1 }\n"},
		{"bad behavior", "name: n\ndescription: d\nsteps:\n  - behavior: explode\n"},
		{"bad duration", "name: n\ndescription: d\nsteps:\n  - wait: soon\n"},
		{"bad name", "name: Not Snake\ndescription: d\nsteps:\n  - reset: true\n"},
		{"empty steps", "name: n\ndescription: d\nsteps: []\n"},
		{"missing steps", "name: n\ndescription: d\n"},
		{"string coordinate", "name: n\ndescription: d\nsteps:\n  - click: { x: left, y: 1 }\n"},
		{"negative count", "name: n\ndescription: d\nsteps:\n  - reset: true\nassertions:\n  - type: trace_count\n    kind: tap\n    count: -1\n"},
		{"bad outcome", "name: n\ndescription: d\nsteps:\n  - reset: true\nassertions:\n  - type: trace_order\n    outcomes: [done]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.yaml))
			require.Error(t, err)

			var se *ScenarioError
			assert.ErrorAs(t, err, &se)
		})
	}
}

func TestValidate_Accepts(t *testing.T) {
	err := Validate([]byte(`
name: ok
description: "Every step kind"
connect: false
steps:
  - connect: true
  - click: { x: 1, y: 1, press: 1.5ms }
    expect: true
  - swipe: { from: { x: 0, y: 0 }, to: { x: 5, y: 5 }, delay: 0 }
  - path: { points: [{ x: 0, y: 0 }, { x: 1, y: 1 }], move: 1m30s }
  - version: 20
  - event: com.example
  - reset: true
  - disconnect: true
assertions:
  - type: no_overlap
`))
	assert.NoError(t, err)
}

func TestScenarioError_Message(t *testing.T) {
	err := &ScenarioError{Path: "a.yaml", Field: "steps.0.tap", Message: "field not allowed", More: 2}
	assert.Equal(t, "a.yaml: steps.0.tap: field not allowed (and 2 more errors)", err.Error())

	err = &ScenarioError{Message: "scenario is empty"}
	assert.Equal(t, "scenario is empty", err.Error())
}
