// Package harness provides scenario testing for forge programs.
//
// The harness loads a program, compiles its blocks, executes it against a
// fresh in-memory run log with a deterministic clock and a fixed run id, and
// evaluates assertions over the firing trace and the final storage.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	program: ../programs/chain.yaml   # relative to the scenario file
//	max_steps: 1000
//	assertions:
//	  - type: state
//	    state: quiescent
//	  - type: final_storage
//	    expect: { y: 3, z: 3 }
//	  - type: firing_count
//	    count: 12
//
// A scenario may carry its program inline instead of by path:
//
//	source: |
//	  Initial storage:
//	  2 A
//
//	  Instructions:
//	  A -> B
//	format: text
//
// # Assertion Types
//
//   - state: the run ended quiescent or limited
//   - final_storage: listed items hold exactly the given quantities
//     (unlisted items are not checked)
//   - firing_count: exactly N firings
//   - recipe_count: recipe index I fired exactly N times
//   - firing_order: recipe indices first fire in the given order
//
// # Deterministic Testing
//
// Every scenario runs with testutil.DeterministicClock and a fixed run id
// (scenario.run_id, default "test-run-default"), so identical programs
// produce byte-identical golden traces.
package harness
