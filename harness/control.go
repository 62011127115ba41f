package harness

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// The engine recovers these typed panics at the test boundary and maps
// them onto the outcome classification. They never escape runCase.
type (
	// skipPanic marks a declared requirement as unmet.
	skipPanic struct{ reason string }

	// failPanic marks an explicit assertion failure.
	failPanic struct{ reason string }

	// signalPanic marks a child process killed by a signal. Signal
	// termination always aborts the test; it is never treated as an
	// ordinary nonzero exit.
	signalPanic struct{ reason string }

	// interruptPanic marks an operator abort observed at a suspension
	// point.
	interruptPanic struct{}
)

// SkipError can be returned from a setup or run hook to skip the test with
// a reason instead of failing it.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("test not run: %s", e.Reason)
}

// Skipf abandons the test and reports it as not run.
func (t *T) Skipf(format string, args ...any) {
	panic(skipPanic{reason: fmt.Sprintf(format, args...)})
}

// Fatalf abandons the test and reports it as failed. The failure site's
// stack is recorded in the test log so the diagnostic dump shows where the
// assertion fired.
func (t *T) Fatalf(format string, args ...any) {
	reason := fmt.Sprintf(format, args...)
	t.Log(reason)
	t.Logf("stack:\n%s", callerStack())
	panic(failPanic{reason: reason})
}

// callerStack formats the goroutine stack with the harness's own control
// frames (Fatalf, the assertion helpers) stripped, so the dump starts at
// the test code that failed.
func callerStack() string {
	pc := make([]uintptr, 32)

	// Skip runtime.Callers, callerStack and Fatalf.
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])

	var b strings.Builder

	for {
		frame, more := frames.Next()

		if !strings.HasPrefix(frame.Function, "github.com/ordeal-dev/ordeal/harness.(*T).") {
			fmt.Fprintf(&b, "\t%s\n\t\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}

		if !more {
			break
		}
	}

	return b.String()
}

// Require checks a precondition for running this test. If the predicate is
// false the test is skipped with the given reason rather than failed.
func (t *T) Require(pred bool, reason string) {
	if !pred {
		panic(skipPanic{reason: reason})
	}
}

// RequireRoot skips the test unless it is running as root.
func (t *T) RequireRoot() {
	t.Require(os.Getuid() == 0, "must be root to run this test")
}

// checkInterrupt panics with an interrupt marker if the run context has
// been canceled. Called at the designed suspension points.
func (t *T) checkInterrupt() {
	if t.ctx.Err() != nil {
		panic(interruptPanic{})
	}
}
