package harness

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ordeal-dev/ordeal/internal/observability"
	"github.com/ordeal-dev/ordeal/internal/output"
)

// Suite is an ordered collection of tests. Declaration order is
// significant: tests run strictly in the order they were added, one at a
// time, with no reordering and no parallelism.
type Suite struct {
	tests  []Test
	extras []Test
	byName map[string]Test
}

// NewSuite returns an empty suite.
func NewSuite() *Suite {
	return &Suite{byName: map[string]Test{}}
}

// Add appends tests to the default run list. Panics on a duplicate or
// empty name; suite composition is programmer error territory.
func (s *Suite) Add(tests ...Test) {
	for _, test := range tests {
		s.register(test)
		s.tests = append(s.tests, test)
	}
}

// AddExtra registers tests that are selectable by name but not part of
// the default run.
func (s *Suite) AddExtra(tests ...Test) {
	for _, test := range tests {
		s.register(test)
		s.extras = append(s.extras, test)
	}
}

func (s *Suite) register(test Test) {
	if test.Name == "" {
		panic("harness: test with empty name")
	}

	if _, dup := s.byName[test.Name]; dup {
		panic(fmt.Sprintf("harness: duplicate test name %q", test.Name))
	}

	s.byName[test.Name] = test
}

// Names lists every registered test, default list first (in declaration
// order), then extras.
func (s *Suite) Names() []string {
	names := make([]string, 0, len(s.tests)+len(s.extras))
	for _, test := range s.tests {
		names = append(names, test.Name)
	}

	for _, test := range s.extras {
		names = append(names, test.Name)
	}

	return names
}

// UnknownTestError reports selection names that did not resolve. It is
// returned before any test runs.
type UnknownTestError struct {
	Names     []string
	Available []string
}

func (e *UnknownTestError) Error() string {
	available := append([]string(nil), e.Available...)
	sort.Strings(available)

	return fmt.Sprintf("unknown test %s (available: %s)",
		strings.Join(e.Names, ", "), strings.Join(available, ", "))
}

// Select resolves a caller-ordered list of test names. Every name must be
// known; an unknown name is a configuration error detected here, before
// any test runs.
func (s *Suite) Select(names []string) ([]Test, error) {
	var unknown []string

	selected := make([]Test, 0, len(names))

	for _, name := range names {
		test, ok := s.byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}

		selected = append(selected, test)
	}

	if len(unknown) > 0 {
		return nil, &UnknownTestError{Names: unknown, Available: s.Names()}
	}

	return selected, nil
}

// RunOptions configures a suite run.
type RunOptions struct {
	// Verbose prints each test's log even on success.
	Verbose bool

	// Quiet enables subtest mode: no per-test status line, abnormal
	// outcomes bracketed with the test name.
	Quiet bool

	// Reporter overrides the console reporter.
	Reporter Reporter

	// Logger receives structured run records. Defaults to slog.Default.
	Logger *slog.Logger

	// OnError, when set, is invoked with the live T after a failure's
	// diagnostic dump, before cleanups run.
	OnError func(t *T)
}

// Run executes the named tests (or the full default list when names is
// empty) strictly in order and returns the aggregate exit code: 0 when
// every test was OK or skipped, 1 on any failure or cleanup error, 2 when
// interrupted. An interrupt stops the loop; no further tests run.
//
// Selection errors are returned before any test executes.
func (s *Suite) Run(ctx context.Context, names []string, opts RunOptions) (int, error) {
	selected := s.tests

	if len(names) > 0 {
		var err error

		selected, err = s.Select(names)
		if err != nil {
			return 0, err
		}
	}

	code, _ := s.runSelected(ctx, selected, opts)

	return code, nil
}

// Results runs like Run but also returns the per-test results, for
// callers that consume outcomes programmatically rather than through the
// reporter.
func (s *Suite) Results(ctx context.Context, names []string, opts RunOptions) (int, []Result, error) {
	selected := s.tests

	if len(names) > 0 {
		var err error

		selected, err = s.Select(names)
		if err != nil {
			return 0, nil, err
		}
	}

	code, results := s.runSelected(ctx, selected, opts)

	return code, results, nil
}

func (s *Suite) runSelected(ctx context.Context, selected []Test, opts RunOptions) (int, []Result) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reporter := opts.Reporter
	if reporter == nil {
		reporter = NewConsoleReporter(output.Default(), opts.Quiet)
	}

	ropts := &runOptions{
		verbose:  opts.Verbose,
		reporter: reporter,
		logger:   logger,
		onError:  opts.OnError,
	}

	tracer := observability.Tracer("github.com/ordeal-dev/ordeal/harness")

	runCtx, runSpan := tracer.Start(ctx, "suite run",
		trace.WithAttributes(attribute.Int("suite.selected", len(selected))))
	defer runSpan.End()

	aggregate := 0

	var results []Result

	for _, test := range selected {
		caseCtx, span := tracer.Start(runCtx, "test "+test.Name,
			trace.WithAttributes(attribute.String("test.name", test.Name)))

		res := runCase(caseCtx, test, ropts)
		results = append(results, res)

		span.SetAttributes(
			attribute.String("test.status", res.Status.String()),
			attribute.Int("test.cleanup_code", res.CleanupCode),
		)

		if res.severity() > 0 {
			span.SetStatus(codes.Error, res.Reason)
		}

		span.End()

		if res.Status == StatusInterrupted {
			aggregate = 2
			break
		}

		aggregate = max(aggregate, res.severity())
	}

	runSpan.SetAttributes(attribute.Int("suite.aggregate", aggregate))

	return aggregate, results
}
