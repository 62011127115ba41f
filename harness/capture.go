//go:build unix

package harness

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// noExecExitCode is what the shell reports when a command cannot be
// executed. Indistinguishable from a command that itself exits 127.
const noExecExitCode = 127

// CapturedRun is the immutable record of one subprocess invocation.
type CapturedRun struct {
	// Command is the invocation as shown in the transcript.
	Command string

	// ExitCode is the child's exit code. Valid only when Signaled is
	// false.
	ExitCode int

	// Stdout and Stderr hold the captured stream contents, read back from
	// the capture files in the sandbox.
	Stdout string
	Stderr string

	// Signaled reports that the child was terminated by a signal; Signal
	// is then the signal number. The two numeric spaces are mutually
	// exclusive.
	Signaled bool
	Signal   unix.Signal
}

// RunShell runs a shell command line with stdout and stderr captured to
// files in the sandbox, blocking until the child terminates. A child
// killed by a signal aborts the test immediately.
func (t *T) RunShell(cmdline string) CapturedRun {
	return t.capture(cmdline, []string{"/bin/sh", "-c", cmdline})
}

// RunCaptured is RunShell for a literal argument vector, bypassing the
// shell.
func (t *T) RunCaptured(argv ...string) CapturedRun {
	if len(argv) == 0 {
		t.Fatalf("empty command")
	}

	return t.capture(strings.Join(argv, " "), argv)
}

// Run runs a shell command line and fails the test unless it exits 0.
// Returns the captured stdout and stderr.
func (t *T) Run(cmdline string) (string, string) {
	return t.RunExpect(0, cmdline)
}

// RunExpect runs a shell command line and fails the test, with the full
// transcript, unless the exit code equals expected.
func (t *T) RunExpect(expected int, cmdline string) (string, string) {
	r := t.RunShell(cmdline)
	if r.ExitCode != expected {
		t.Fatalf("command returned %d; expected %d: %q\nstdout:\n%sstderr:\n%s",
			r.ExitCode, expected, cmdline, block(r.Stdout), block(r.Stderr))
	}

	return r.Stdout, r.Stderr
}

// RunUnchecked runs a shell command line and hands the exit code back to
// the caller instead of asserting on it.
func (t *T) RunUnchecked(cmdline string) (int, string, string) {
	r := t.RunShell(cmdline)
	return r.ExitCode, r.Stdout, r.Stderr
}

// RunUncheckedSkipNoExec is RunUnchecked, except that exit code 127 skips
// the test: per system(3) there is no way to tell "could not execute" from
// a command that itself exited 127.
func (t *T) RunUncheckedSkipNoExec(cmdline string) (int, string, string) {
	r := t.RunShell(cmdline)
	if r.ExitCode == noExecExitCode {
		t.Skipf("could not execute %q", cmdline)
	}

	return r.ExitCode, r.Stdout, r.Stderr
}

// RunBackground starts a shell command attached to the real standard
// streams and returns its pid without waiting. The harness never reaps it;
// the test must terminate it via a registered cleanup, typically with
// KillBackground.
func (t *T) RunBackground(cmdline string) int {
	cmd := exec.Command("/bin/sh", "-c", cmdline)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start background command %q: %v", cmdline, err)
	}

	pid := cmd.Process.Pid
	t.backgroundPids = append(t.backgroundPids, pid)
	t.Logf("run in background: %q", cmdline)
	t.Logf("pid: %d", pid)

	return pid
}

// KillBackground sends SIGTERM to a background child started with
// RunBackground. A child that already exited is not an error.
func (t *T) KillBackground(pid int) {
	t.Logf("kill background pid %d", pid)

	if err := unix.Kill(pid, unix.SIGTERM); err != nil && err != unix.ESRCH {
		t.Fatalf("kill pid %d: %v", pid, err)
	}
}

// capture spawns argv with stdout and stderr redirected to
// <pid>.out/<pid>.err in the sandbox root and blocks until the child
// terminates. The capture files are exclusively created and left in place
// for post-mortem inspection.
func (t *T) capture(display string, argv []string) CapturedRun {
	outTmp, errTmp, err := t.captureFiles()
	if err != nil {
		t.Fatalf("create capture files: %v", err)
	}

	defer outTmp.Close()
	defer errTmp.Close()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = outTmp
	cmd.Stderr = errTmp

	if err := cmd.Start(); err != nil {
		os.Remove(outTmp.Name())
		os.Remove(errTmp.Name())
		t.Logf("run command: %s", display)
		t.Logf("could not execute: %v", err)

		return CapturedRun{Command: display, ExitCode: noExecExitCode, Stderr: err.Error() + "\n"}
	}

	pid := cmd.Process.Pid

	outPath, err := t.claimCaptureFile(outTmp.Name(), fmt.Sprintf("%d.out", pid))

	var errPath string
	if err == nil {
		errPath, err = t.claimCaptureFile(errTmp.Name(), fmt.Sprintf("%d.err", pid))
	}

	if err != nil {
		cmd.Wait()
		t.Fatalf("claim capture files for pid %d: %v", pid, err)
	}

	// The one designed suspension point: the caller blocks for the full
	// lifetime of the child.
	waitErr := cmd.Wait()
	t.checkInterrupt()

	ws, ok := waitStatus(cmd)
	if !ok {
		t.Fatalf("wait for %q: %v", display, waitErr)
	}

	r := CapturedRun{Command: display}
	r.Stdout = readCapture(t, outPath)
	r.Stderr = readCapture(t, errPath)

	t.Logf("run command: %s", display)

	switch {
	case ws.Signaled():
		r.Signaled = true
		r.Signal = unix.Signal(ws.Signal())
		t.Logf("wait status: %#04x (killed by signal %d (%s))",
			uint32(ws), int(r.Signal), unix.SignalName(r.Signal))
	default:
		r.ExitCode = ws.ExitStatus()
		t.Logf("wait status: %#04x (exit code %d)", uint32(ws), r.ExitCode)
	}

	t.Logf("stdout:\n%sstderr:\n%s", block(r.Stdout), block(r.Stderr))

	t.logger.Debug("captured run",
		slog.String("command", display),
		slog.Int("exit_code", r.ExitCode),
		slog.Bool("signaled", r.Signaled))

	if r.Signaled {
		// Signal termination is fatal to the test, distinct from an
		// ordinary nonzero exit: it cannot be matched by an expected
		// code.
		panic(signalPanic{reason: fmt.Sprintf("%q terminated by signal %d (%s)",
			display, int(r.Signal), unix.SignalName(r.Signal))})
	}

	return r
}

// captureFiles creates the two capture files under provisional names. The
// child's pid is only known after the spawn, so the files are renamed to
// their final <pid>.out/<pid>.err names by claimCaptureFile.
func (t *T) captureFiles() (*os.File, *os.File, error) {
	out, err := os.CreateTemp(t.runDir, ".capture-*.out")
	if err != nil {
		return nil, nil, err
	}

	errFile, err := os.CreateTemp(t.runDir, ".capture-*.err")
	if err != nil {
		out.Close()
		os.Remove(out.Name())

		return nil, nil, err
	}

	return out, errFile, nil
}

// claimCaptureFile moves a provisional capture file to its pid-derived
// name, refusing to clobber an existing file. A collision means a pid was
// reused within one test run and the earlier transcript would be lost.
func (t *T) claimCaptureFile(tmpName, finalName string) (string, error) {
	final := filepath.Join(t.runDir, finalName)

	if _, err := os.Lstat(final); err == nil {
		return "", fmt.Errorf("capture file %s already exists", finalName)
	}

	if err := os.Rename(tmpName, final); err != nil {
		return "", err
	}

	return final, nil
}

func readCapture(t *T, path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read capture file %s: %v", path, err)
	}

	return string(data)
}

// waitStatus decodes the platform wait status from a finished command.
func waitStatus(cmd *exec.Cmd) (unix.WaitStatus, bool) {
	if cmd.ProcessState == nil {
		return 0, false
	}

	ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus)
	if !ok {
		return 0, false
	}

	return unix.WaitStatus(ws), true
}

// block formats captured output for a transcript, guaranteeing a trailing
// newline so the next transcript field starts on its own line.
func block(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}

	return s + "\n"
}
