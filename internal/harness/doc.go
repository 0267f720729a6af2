// Package harness replays scripted action sequences through the project
// reducer and checks the outcome.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: resume_project
//	description: "Resume a saved project and resolve its bindings"
//	initial:
//	  project_hash: ""
//	  store:
//	    H0: { source: "0", type: "Int" }
//	steps:
//	  - action: StoreProjectHash
//	    hash: Hp
//	  - action: StoreProjectData
//	    project:
//	      hash: Hp
//	      bindings: { id: H1 }
//	  - action: FetchExpressionSuccess
//	    hash: H1
//	    project_hash: Hp
//	    expression: { source: "\\a -> a", type: "a -> a" }
//	expect:
//	  project_hash: Hp
//	  bindings: { id: H1 }
//	  resolved: [id]
//	  store_size: 2
//
// Every file is checked against an embedded CUE schema before it is
// decoded, so a misspelled action or field fails at load time.
//
// # Deterministic Replay
//
// Run applies steps with project.Reduce only; no effects execute and no
// backend is contacted. Each step gets a seq from a fresh engine.Clock, so
// the same scenario always yields the same trace and the trace can be
// compared against a golden file.
package harness
