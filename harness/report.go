package harness

import (
	"fmt"
	"strings"

	"github.com/ordeal-dev/ordeal/internal/output"
)

// Reporter receives progress and outcome events from the lifecycle engine.
// The harness core exposes, per test, a name, a status tag, an optional
// reason and the accumulated log; how those are rendered is the
// collaborator's business.
type Reporter interface {
	// CaseStarted fires before the test case is constructed.
	CaseStarted(name string)

	// CaseResult fires once per test with the body classification, before
	// cleanups run.
	CaseResult(name string, status Status, reason string)

	// Diagnostic fires with a dump (log, stack context, cleanup trouble)
	// for every abnormal outcome, and on success in verbose runs.
	Diagnostic(text string)
}

const diagnosticRule = "-----------------------------------------------------------------"

// ConsoleReporter renders one status line per test:
//
//	<name>  OK|FAIL|NOTRUN, <reason>
//
// In quiet (subtest) mode the per-test line is suppressed and only
// abnormal outcomes are printed, bracketed with the test's name, for the
// parent context to pick up.
type ConsoleReporter struct {
	out   *output.Writer
	quiet bool

	spin *output.Spinner
}

// NewConsoleReporter returns a reporter writing through w. When quiet is
// true only abnormal outcomes are rendered.
func NewConsoleReporter(w *output.Writer, quiet bool) *ConsoleReporter {
	return &ConsoleReporter{out: w, quiet: quiet}
}

// CaseStarted announces the running test. On a TTY a spinner shows which
// test is in flight; otherwise the name is printed immediately so long
// running tests are easier to follow.
func (r *ConsoleReporter) CaseStarted(name string) {
	if r.quiet {
		return
	}

	if r.out.Terminal().SpinnersEnabled() {
		r.spin = r.out.Spinner(name)
		r.spin.Start()

		return
	}

	r.out.Print("%-30s ", name)
}

// CaseResult renders the status line for one test.
func (r *ConsoleReporter) CaseResult(name string, status Status, reason string) {
	if r.quiet {
		if status != StatusOK {
			r.out.Error("[%s %s]\n", name, statusLine(status, reason))
		}

		return
	}

	if r.spin != nil {
		r.spin.Stop()
		r.spin = nil
		r.out.Print("%-30s ", name)
	}

	line := statusLine(status, reason)

	switch status {
	case StatusOK:
		r.out.Statusln(output.ToneSuccess, line)
	case StatusSkipped:
		r.out.Statusln(output.ToneWarning, line)
	default:
		r.out.Statusln(output.ToneError, line)
	}
}

// Diagnostic dumps failure context bracketed by rule lines so it stands
// out from the status lines.
func (r *ConsoleReporter) Diagnostic(text string) {
	r.out.Error("%s\n", diagnosticRule)
	r.out.Error("%s", ensureNewline(text))
	r.out.Error("%s\n", diagnosticRule)
}

func statusLine(status Status, reason string) string {
	if status == StatusSkipped && reason != "" {
		return fmt.Sprintf("%s, %s", status, reason)
	}

	return status.String()
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}

	return s + "\n"
}
