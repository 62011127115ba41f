package harness

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// sandboxRoot is the directory, relative to the suite's working directory,
// under which per-test sandboxes are created.
const sandboxRoot = "_testtmp"

// T carries the per-test state: the sandbox directory, the environment
// snapshot, the cleanup stack, and the test log. Exactly one T is live at a
// time; the harness never overlaps test bodies.
type T struct {
	name   string
	ctx    context.Context
	logger *slog.Logger

	baseDir string
	runDir  string
	tmpDir  string

	savedEnv []string
	cleanups []func()

	log bytes.Buffer

	backgroundPids []int
}

// newT constructs the test case: it snapshots the environment, creates a
// fresh sandbox and chdirs into it, forces a neutral locale, and registers
// the restore actions on the cleanup stack. Registration order is
// environment restore first, then directory restore, then the teardown
// hook, so that draining runs teardown while the sandbox and modified
// environment are still active, and restores the environment last.
//
// Even on error the returned T has whatever cleanups were already
// registered, so the caller can drain them.
func newT(ctx context.Context, name string, logger *slog.Logger) (*T, error) {
	if logger == nil {
		logger = slog.Default()
	}

	t := &T{name: name, ctx: ctx, logger: logger.With(slog.String("test", name))}

	t.savedEnv = os.Environ()
	t.AddCleanup(t.restoreEnvironment)

	base, err := os.Getwd()
	if err != nil {
		return t, fmt.Errorf("resolve working directory: %w", err)
	}

	t.baseDir = base
	t.AddCleanup(t.restoreDirectory)

	t.runDir = filepath.Join(base, sandboxRoot, name)
	t.tmpDir = filepath.Join(t.runDir, "tmp")

	if err := os.RemoveAll(t.runDir); err != nil {
		return t, fmt.Errorf("remove stale sandbox: %w", err)
	}

	if err := os.MkdirAll(t.tmpDir, 0o755); err != nil {
		return t, fmt.Errorf("create sandbox: %w", err)
	}

	if err := os.Chdir(t.runDir); err != nil {
		return t, fmt.Errorf("enter sandbox: %w", err)
	}

	// Prevent localization from interfering with attempts to parse child
	// output. LC_ALL has higher priority, but set both just in case.
	os.Setenv("LANG", "C")
	os.Setenv("LC_ALL", "C")

	t.logger.Debug("sandbox ready", slog.String("dir", t.runDir))

	return t, nil
}

// Name returns the test's registered name.
func (t *T) Name() string { return t.name }

// Context returns the run context. It is canceled when the operator
// interrupts the suite.
func (t *T) Context() context.Context { return t.ctx }

// RunDir returns the sandbox directory, which is also the working
// directory for the duration of the test.
func (t *T) RunDir() string { return t.runDir }

// TmpDir returns the test-owned scratch subdirectory inside the sandbox.
func (t *T) TmpDir() string { return t.tmpDir }

// AddCleanup queues an action to run when the test completes. Actions run
// in reverse registration order, each independently guarded so one
// failure does not prevent the rest from running.
func (t *T) AddCleanup(fn func()) {
	t.cleanups = append(t.cleanups, fn)
}

// Log appends a message to the test log. The log is displayed when the
// test fails, or on success when the suite runs verbose.
func (t *T) Log(msg string) {
	t.log.WriteString(msg)
	if !strings.HasSuffix(msg, "\n") {
		t.log.WriteByte('\n')
	}
}

// Logf appends a formatted message to the test log.
func (t *T) Logf(format string, args ...any) {
	t.Log(fmt.Sprintf(format, args...))
}

func (t *T) restoreDirectory() {
	if t.baseDir == "" {
		return
	}

	if err := os.Chdir(t.baseDir); err != nil {
		panic(fmt.Sprintf("restore working directory %s: %v", t.baseDir, err))
	}
}

// restoreEnvironment puts the process environment back bit-for-bit to the
// snapshot taken at construction. It is pushed first so it runs last.
func (t *T) restoreEnvironment() {
	os.Clearenv()

	for _, kv := range t.savedEnv {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}

		if err := os.Setenv(k, v); err != nil {
			panic(fmt.Sprintf("restore environment %s: %v", k, err))
		}
	}
}

// cleanupProblem describes one failed cleanup action.
type cleanupProblem struct {
	code   int
	detail string
}

// drainCleanups pops and runs every registered cleanup action,
// most-recent-first. It returns the worst code observed (0 clean, 1 a
// cleanup failed, 2 interrupted) plus a description of each problem.
// Draining continues past failures so every action runs exactly once.
func (t *T) drainCleanups() (int, []cleanupProblem) {
	code := cleanupClean

	var problems []cleanupProblem

	for len(t.cleanups) > 0 {
		last := len(t.cleanups) - 1
		fn := t.cleanups[last]
		t.cleanups = t.cleanups[:last]

		if p := runGuarded(fn); p != nil {
			if _, interrupted := p.(interruptPanic); interrupted || t.ctx.Err() != nil {
				code = max(code, cleanupInterrupted)
				problems = append(problems, cleanupProblem{cleanupInterrupted, "interrupted during cleanups"})

				continue
			}

			code = max(code, cleanupFailed)
			problems = append(problems, cleanupProblem{cleanupFailed, fmt.Sprintf("error during cleanups: %v", p)})
		}
	}

	return code, problems
}

// runGuarded invokes fn and converts a panic into a returned value.
func runGuarded(fn func()) (recovered any) {
	defer func() {
		recovered = recover()
	}()

	fn()

	return nil
}
