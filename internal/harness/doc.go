// Package harness runs scene scenarios against a real store.
//
// A scenario names the windows of a scene, a list of steps (sync, paint,
// frame, reopen, ...) and assertions on the live scene and on the rows left
// in the store. Every step is followed by a writer flush, so assertions and
// traces see each step's writes.
//
// Scenarios are YAML:
//
//	name: paint-survives-reopen
//	description: an edit is restored by a new scene on the same store
//	windows:
//	  - id: me
//	steps:
//	  - op: sync
//	  - op: paint
//	    row: -0.5
//	    col: -0.5
//	    layer: -0.5
//	    color: "#00ff00"
//	  - op: reopen
//	assertions:
//	  - type: subcube_color
//	    cube: me
//	    cell: 0,0,0
//	    color: "#00ff00"
//
// Traces record, per step, the number of live cubes and of change
// notifications published. RunWithGolden compares them against
// testdata/golden/{name}.golden; regenerate with
//
//	go test ./internal/harness -update
package harness
