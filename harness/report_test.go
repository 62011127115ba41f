package harness

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/ordeal-dev/ordeal/internal/output"
	"github.com/ordeal-dev/ordeal/internal/terminal"
)

func consoleReporter(quiet bool) (*ConsoleReporter, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer

	w := output.NewWriter(&stdout, &stderr, &terminal.Info{})
	w.Quiet = quiet

	return NewConsoleReporter(w, quiet), &stdout, &stderr
}

func TestConsoleReporterStatusLines(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		reason string
		want   string
	}{
		{"pass", StatusOK, "", "OK\n"},
		{"fail", StatusFailed, "assertion failed", "FAIL\n"},
		{"skip with reason", StatusSkipped, "must be root", "NOTRUN, must be root\n"},
		{"skip without reason", StatusSkipped, "", "NOTRUN\n"},
		{"interrupt", StatusInterrupted, "interrupted", "INTERRUPT\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, stdout, _ := consoleReporter(false)

			r.CaseStarted("some-test")
			r.CaseResult("some-test", tt.status, tt.reason)

			got := stdout.String()
			want := fmt.Sprintf("%-30s ", "some-test") + tt.want

			if got != want {
				t.Errorf("output = %q, want %q", got, want)
			}
		})
	}
}

func TestConsoleReporterQuietMode(t *testing.T) {
	r, stdout, stderr := consoleReporter(true)

	r.CaseStarted("passing")
	r.CaseResult("passing", StatusOK, "")

	r.CaseStarted("failing")
	r.CaseResult("failing", StatusFailed, "broke")

	r.CaseStarted("skipping")
	r.CaseResult("skipping", StatusSkipped, "no fixture")

	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want nothing in quiet mode", stdout.String())
	}

	got := stderr.String()

	if strings.Contains(got, "passing") {
		t.Errorf("stderr = %q, passing tests must stay silent", got)
	}

	for _, want := range []string{"[failing FAIL]", "[skipping NOTRUN, no fixture]"} {
		if !strings.Contains(got, want) {
			t.Errorf("stderr = %q, want %q", got, want)
		}
	}
}

func TestConsoleReporterDiagnostic(t *testing.T) {
	r, _, stderr := consoleReporter(false)

	r.Diagnostic("something went wrong\ntest_log:\ndetail")

	got := stderr.String()

	if strings.Count(got, diagnosticRule) != 2 {
		t.Fatalf("diagnostic = %q, want it bracketed by rule lines", got)
	}

	if !strings.Contains(got, "something went wrong") {
		t.Errorf("diagnostic = %q, missing the dump body", got)
	}
}

func TestStatusStrings(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusOK, "OK"},
		{StatusSkipped, "NOTRUN"},
		{StatusFailed, "FAIL"},
		{StatusInterrupted, "INTERRUPT"},
		{StatusCleanupError, "CLEANUP"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}
