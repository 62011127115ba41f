// Package harness is a minimal sequential test-execution harness for
// exercising external programs.
//
// Each test runs in a freshly created sandbox directory with a snapshot of
// the process environment taken before the test and restored after it, on
// every exit path. Tests drive child processes through the capture helpers
// on T, which redirect the child's stdout and stderr to files in the
// sandbox and decode the wait status (exit code vs. signal termination).
//
// Tests are plain structs of hook functions collected into a Suite and run
// strictly in declaration order, one at a time. The suite aggregate maps to
// a process exit code: 0 when every test passed or was skipped, 1 when any
// test failed or a cleanup failed, 2 when the run was interrupted.
package harness
