package harness

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func passing(name string) Test {
	return Test{Name: name, Run: func(*T) error { return nil }}
}

func failing(name string) Test {
	return Test{Name: name, Run: func(*T) error { return errors.New(name + " broke") }}
}

// runSuite executes the suite inside a temp directory with a recording
// reporter and returns the aggregate plus results.
func runSuite(t *testing.T, s *Suite, names []string) (int, []Result, *recordReporter) {
	t.Helper()
	t.Chdir(t.TempDir())

	rec := &recordReporter{}
	opts := RunOptions{Reporter: rec, Logger: slog.New(slog.DiscardHandler)}

	code, results, err := s.Results(t.Context(), names, opts)
	if err != nil {
		t.Fatalf("suite run: %v", err)
	}

	return code, results, rec
}

func TestSuiteRunsInDeclarationOrder(t *testing.T) {
	s := NewSuite()
	s.Add(passing("alpha"), passing("beta"), passing("gamma"))

	code, _, rec := runSuite(t, s, nil)

	if code != 0 {
		t.Fatalf("aggregate = %d, want 0", code)
	}

	want := []string{"alpha", "beta", "gamma"}
	if len(rec.started) != 3 {
		t.Fatalf("started = %v, want %v", rec.started, want)
	}

	for i := range want {
		if rec.started[i] != want[i] {
			t.Fatalf("started = %v, want %v", rec.started, want)
		}
	}
}

func TestSuiteAggregate(t *testing.T) {
	tests := []struct {
		name  string
		tests []Test
		want  int
	}{
		{
			name:  "all pass",
			tests: []Test{passing("a"), passing("b")},
			want:  0,
		},
		{
			name: "skip does not taint",
			tests: []Test{passing("a"), {Name: "b", Run: func(tc *T) error {
				tc.Skipf("unsupported")
				return nil
			}}},
			want: 0,
		},
		{
			name:  "one failure taints",
			tests: []Test{passing("a"), failing("b"), passing("c")},
			want:  1,
		},
		{
			name: "cleanup error taints",
			tests: []Test{{Name: "a", Run: func(tc *T) error {
				tc.AddCleanup(func() { panic("broken") })
				return nil
			}}},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSuite()
			s.Add(tt.tests...)

			code, _, _ := runSuite(t, s, nil)
			if code != tt.want {
				t.Errorf("aggregate = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestSuiteMixedOutcomes(t *testing.T) {
	s := NewSuite()
	s.Add(
		passing("build-artifacts"),
		Test{Name: "privileged-mount", Run: func(tc *T) error {
			tc.Require(false, "must be root to run this test")
			return nil
		}},
		Test{Name: "roundtrip", Run: func(tc *T) error {
			tc.AssertEqual("got", "want")
			return nil
		}},
	)

	code, results, rec := runSuite(t, s, nil)

	if code != 1 {
		t.Fatalf("aggregate = %d, want 1 (one failure, skip does not taint)", code)
	}

	wantStatus := []Status{StatusOK, StatusSkipped, StatusFailed}
	for i, want := range wantStatus {
		if results[i].Status != want {
			t.Errorf("results[%d].Status = %v, want %v", i, results[i].Status, want)
		}
	}

	if results[1].Reason != "must be root to run this test" {
		t.Errorf("skip reason = %q", results[1].Reason)
	}

	if len(rec.diags) == 0 {
		t.Error("expected a diagnostic dump for the failing test")
	}
}

func TestSuiteFailureDoesNotStopRun(t *testing.T) {
	s := NewSuite()
	s.Add(failing("a"), passing("b"))

	code, results, _ := runSuite(t, s, nil)

	if code != 1 {
		t.Fatalf("aggregate = %d, want 1", code)
	}

	if len(results) != 2 || results[1].Status != StatusOK {
		t.Fatalf("results = %+v, want the second test to have run", results)
	}
}

func TestSuiteInterruptStopsRun(t *testing.T) {
	t.Chdir(t.TempDir())

	ctx, cancel := context.WithCancel(t.Context())

	s := NewSuite()
	s.Add(
		Test{Name: "interrupter", Run: func(tc *T) error {
			cancel()
			tc.checkInterrupt()
			return nil
		}},
		Test{Name: "never-runs", Run: func(*T) error {
			panic("must not run after interrupt")
		}},
	)

	rec := &recordReporter{}
	opts := RunOptions{Reporter: rec, Logger: slog.New(slog.DiscardHandler)}

	code, results, err := s.Results(ctx, nil, opts)
	if err != nil {
		t.Fatal(err)
	}

	if code != 2 {
		t.Fatalf("aggregate = %d, want 2", code)
	}

	if len(results) != 1 || results[0].Status != StatusInterrupted {
		t.Fatalf("results = %+v, want a single interrupted result", results)
	}
}

func TestSuiteSelection(t *testing.T) {
	s := NewSuite()
	s.Add(passing("a"), passing("b"), passing("c"))
	s.AddExtra(passing("extra"))

	t.Run("caller order preserved", func(t *testing.T) {
		_, _, rec := runSuite(t, s, []string{"c", "a"})

		if len(rec.started) != 2 || rec.started[0] != "c" || rec.started[1] != "a" {
			t.Fatalf("started = %v, want [c a]", rec.started)
		}
	})

	t.Run("extras excluded from default run", func(t *testing.T) {
		_, _, rec := runSuite(t, s, nil)

		for _, name := range rec.started {
			if name == "extra" {
				t.Fatal("extra test ran without being selected")
			}
		}
	})

	t.Run("extras selectable by name", func(t *testing.T) {
		_, _, rec := runSuite(t, s, []string{"extra"})

		if len(rec.started) != 1 || rec.started[0] != "extra" {
			t.Fatalf("started = %v, want [extra]", rec.started)
		}
	})

	t.Run("repeated selection runs twice", func(t *testing.T) {
		_, _, rec := runSuite(t, s, []string{"a", "a"})

		if len(rec.started) != 2 {
			t.Fatalf("started = %v, want a twice", rec.started)
		}
	})
}

func TestSuiteUnknownSelectionRejectedBeforeAnyRun(t *testing.T) {
	t.Chdir(t.TempDir())

	ran := false

	s := NewSuite()
	s.Add(Test{Name: "real", Run: func(*T) error {
		ran = true
		return nil
	}})

	rec := &recordReporter{}
	opts := RunOptions{Reporter: rec, Logger: slog.New(slog.DiscardHandler)}

	_, err := s.Run(t.Context(), []string{"real", "bogus", "phantom"}, opts)

	var unknown *UnknownTestError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownTestError", err)
	}

	if len(unknown.Names) != 2 {
		t.Fatalf("unknown names = %v, want both bad names", unknown.Names)
	}

	if ran {
		t.Fatal("a test ran despite the selection error")
	}

	if !strings.Contains(unknown.Error(), "bogus") {
		t.Errorf("error text = %q", unknown.Error())
	}
}

func TestSuiteNames(t *testing.T) {
	s := NewSuite()
	s.Add(passing("b"), passing("a"))
	s.AddExtra(passing("z-extra"))

	names := s.Names()

	want := []string{"b", "a", "z-extra"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}

	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want declaration order then extras", names)
		}
	}
}

func TestSuiteRegistrationPanics(t *testing.T) {
	t.Run("duplicate name", func(t *testing.T) {
		s := NewSuite()
		s.Add(passing("dup"))

		if r := recovered(func() { s.AddExtra(passing("dup")) }); r == nil {
			t.Fatal("expected a panic on duplicate registration")
		}
	})

	t.Run("empty name", func(t *testing.T) {
		s := NewSuite()

		if r := recovered(func() { s.Add(Test{}) }); r == nil {
			t.Fatal("expected a panic on empty name")
		}
	})
}
