package harness

// Status classifies the outcome of one test case.
type Status int

const (
	// StatusOK means the test body and every cleanup completed.
	StatusOK Status = iota

	// StatusSkipped means a declared requirement was not met. Skips never
	// count against the suite aggregate.
	StatusSkipped

	// StatusFailed means an assertion failed or the test body returned an
	// error or panicked.
	StatusFailed

	// StatusInterrupted means an operator abort was observed during the
	// test or its cleanups. It halts the rest of the suite.
	StatusInterrupted

	// StatusCleanupError means the test body succeeded (or was skipped)
	// but a cleanup action failed.
	StatusCleanupError
)

// String returns the status label used in reports.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusSkipped:
		return "NOTRUN"
	case StatusFailed:
		return "FAIL"
	case StatusInterrupted:
		return "INTERRUPT"
	case StatusCleanupError:
		return "CLEANUP"
	default:
		return "UNKNOWN"
	}
}

// Cleanup drain codes. The worst code observed while draining a test's
// cleanup stack is recorded on the Result and folded into the aggregate.
const (
	cleanupClean       = 0
	cleanupFailed      = 1
	cleanupInterrupted = 2
)

// Result is the classified outcome of one test case.
type Result struct {
	// Name is the test's registered name.
	Name string

	// Status is the final classification. Precedence when several
	// conditions apply: Interrupted > Failed/CleanupError > Skipped > OK.
	Status Status

	// Reason explains a skip or failure. Empty for StatusOK.
	Reason string

	// Log is the accumulated test log (capture transcripts plus anything
	// the test wrote via Logf).
	Log string

	// CleanupCode is the worst code seen while draining cleanups:
	// 0 clean, 1 a cleanup failed, 2 interrupted during cleanups.
	CleanupCode int
}

// severity maps a result onto the suite aggregate contribution.
func (r Result) severity() int {
	switch r.Status {
	case StatusInterrupted:
		return 2
	case StatusFailed, StatusCleanupError:
		return 1
	default:
		return 0
	}
}
