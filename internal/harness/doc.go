// Package harness runs gesture scenarios against the dispatch engine and a
// simulated host.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: click_completes
//	description: "A tap on a healthy host completes"
//	host:
//	  version: 30
//	  behavior: complete
//	  latency: 5ms
//	engine:
//	  completion_timeout: 200ms
//	steps:
//	  - click: { x: 100, y: 200 }
//	    expect: true
//	  - behavior: cancel
//	  - swipe: { from: { x: 0, y: 0 }, to: { x: 0, y: 300 }, duration: 150ms }
//	    expect: false
//	expect_stats:
//	  dispatched: 2
//	  completed: 1
//	  cancelled: 1
//	assertions:
//	  - type: trace_order
//	    outcomes: [completed, cancelled]
//
// Files are decoded with unknown fields rejected and checked against an
// embedded CUE schema (see Validate) before they run.
//
// # Determinism
//
// Each run gets a fresh engine, simulated host and in-memory journal.
// Session ids come from testutil.SequentialIDs and timestamps from a
// testutil.DeterministicClock, so traces can be compared byte for byte
// against golden files (see RunWithGolden). Steps run one after another and
// every session is drained before the run returns, so late resolutions land
// in the trace too.
package harness
