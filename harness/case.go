package harness

// Test is one unit of work: a named set of lifecycle hooks. Only Run is
// required. Hooks receive the live T and may return an error to fail the
// test, return a *SkipError to skip it, or use the helpers on T, which
// abandon the hook directly.
type Test struct {
	// Name uniquely identifies the test within its suite and names its
	// sandbox directory.
	Name string

	// Setup prepares the test fixture. It runs inside the sandbox, after
	// construction. An error here fails the test; construction cleanups
	// still run.
	Setup func(t *T) error

	// Run is the main test body.
	Run func(t *T) error

	// Teardown releases fixture resources. It is registered on the
	// cleanup stack after construction, so it drains after any cleanups
	// the test body adds, while the sandbox and modified environment are
	// still active.
	Teardown func(t *T) error
}
