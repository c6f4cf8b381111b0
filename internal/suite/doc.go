// Package suite loads scripted test suites and runs them on the harness.
//
// A suite file (YAML or CUE, checked against an embedded CUE schema) lists
// cases whose handlers play back scripted calls: return a control, raise a
// failure, or deliver a validation now or after a delay. Run executes the
// suite on a virtual-time scheduler by default, recording a trace; Check
// compares the result with the suite's expect block and trace assertions.
package suite
