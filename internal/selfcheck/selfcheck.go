//go:build unix

// Package selfcheck is the suite behind the ordeal binary: a set of
// conformance tests that exercise the harness against standard unix
// tools. It doubles as the reference for how suites are written.
package selfcheck

import (
	"fmt"
	"os"
	"strings"

	"github.com/ordeal-dev/ordeal/harness"
)

// Suite returns the self-check suite.
func Suite() *harness.Suite {
	s := harness.NewSuite()

	s.Add(
		harness.Test{Name: "true-exits-zero", Run: runTrue},
		harness.Test{Name: "false-returns-one", Run: runFalse},
		harness.Test{Name: "stdout-captured", Run: runStdoutCaptured},
		harness.Test{Name: "stderr-captured", Run: runStderrCaptured},
		harness.Test{Name: "capture-files-persist", Run: runCaptureFilesPersist},
		harness.Test{Name: "sandbox-starts-empty", Run: runSandboxEmpty},
		harness.Test{Name: "locale-neutralized", Run: runLocale},
		harness.Test{Name: "scratch-dir", Run: runScratchDir},
		harness.Test{
			Name:     "fixture-lifecycle",
			Setup:    setupFixture,
			Run:      runFixture,
			Teardown: teardownFixture,
		},
		harness.Test{Name: "background-companion", Run: runBackground},
	)

	s.AddExtra(
		harness.Test{Name: "root-only-noop", Run: runRootOnly},
	)

	return s
}

func runTrue(t *harness.T) error {
	t.Run("true")
	return nil
}

func runFalse(t *harness.T) error {
	code, _, _ := t.RunUnchecked("false")
	t.AssertEqual(code, 1)

	return nil
}

func runStdoutCaptured(t *harness.T) error {
	stdout, stderr := t.Run("echo hello")
	t.AssertEqual(stdout, "hello\n")
	t.AssertEqual(stderr, "")

	return nil
}

func runStderrCaptured(t *harness.T) error {
	r := t.RunShell("echo oops >&2; exit 3")
	t.AssertEqual(r.ExitCode, 3)
	t.AssertEqual(r.Stderr, "oops\n")
	t.AssertEqual(r.Stdout, "")

	return nil
}

func runCaptureFilesPersist(t *harness.T) error {
	t.Run("echo one")
	t.Run("echo two")

	entries, err := os.ReadDir(t.RunDir())
	if err != nil {
		return err
	}

	var outs, errs int

	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".out"):
			outs++
		case strings.HasSuffix(e.Name(), ".err"):
			errs++
		}
	}

	t.AssertEqual(outs, 2)
	t.AssertEqual(errs, 2)

	return nil
}

func runSandboxEmpty(t *harness.T) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	t.AssertEqual(cwd, t.RunDir())

	entries, err := os.ReadDir(".")
	if err != nil {
		return err
	}

	// Only the scratch subdirectory exists in a fresh sandbox.
	t.AssertEqual(len(entries), 1)
	t.AssertEqual(entries[0].Name(), "tmp")

	return nil
}

func runLocale(t *harness.T) error {
	t.AssertEqual(os.Getenv("LANG"), "C")
	t.AssertEqual(os.Getenv("LC_ALL"), "C")

	stdout, _ := t.Run("echo $LC_ALL")
	t.AssertEqual(stdout, "C\n")

	return nil
}

func runScratchDir(t *harness.T) error {
	path := t.TmpDir() + "/scratch.txt"

	if err := os.WriteFile(path, []byte("scratch\n"), 0o644); err != nil {
		return err
	}

	stdout, _ := t.Run("cat " + path)
	t.AssertEqual(stdout, "scratch\n")

	return nil
}

const fixtureFile = "fixture.txt"

func setupFixture(t *harness.T) error {
	return os.WriteFile(fixtureFile, []byte("fixture\n"), 0o644)
}

func runFixture(t *harness.T) error {
	stdout, _ := t.Run("cat " + fixtureFile)
	t.AssertEqual(stdout, "fixture\n")

	return nil
}

func teardownFixture(t *harness.T) error {
	// Teardown runs before the directory restore, so relative paths still
	// resolve inside the sandbox.
	return os.Remove(fixtureFile)
}

func runBackground(t *harness.T) error {
	pid := t.RunBackground("sleep 30")
	t.AddCleanup(func() { t.KillBackground(pid) })

	t.Assert(pid > 0, fmt.Sprintf("background pid %d", pid))

	return nil
}

func runRootOnly(t *harness.T) error {
	t.RequireRoot()
	t.Run("id -u")

	return nil
}
