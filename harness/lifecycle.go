package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// runOptions carries the per-run knobs threaded from the suite into the
// lifecycle engine.
type runOptions struct {
	verbose  bool
	reporter Reporter
	logger   *slog.Logger

	// onError is the configured failure hook (e.g. an attached debugger).
	// Invoked after the diagnostic dump, before cleanups run.
	onError func(t *T)
}

// bodyOutcome is the classification of the construct/setup/run phases,
// before cleanups are folded in.
type bodyOutcome struct {
	status Status
	reason string
}

// runCase drives one test through its full lifecycle: construct the
// sandboxed case, run setup and the test body, classify the outcome,
// report, and drain the cleanup stack regardless of which branch was
// taken.
func runCase(ctx context.Context, test Test, opts *runOptions) Result {
	opts.reporter.CaseStarted(test.Name)

	t, err := newT(ctx, test.Name, opts.logger)

	var body bodyOutcome
	if err != nil {
		body = bodyOutcome{status: StatusFailed, reason: err.Error()}
	} else {
		if test.Teardown != nil {
			t.AddCleanup(func() {
				if terr := test.Teardown(t); terr != nil {
					panic(fmt.Sprintf("teardown: %v", terr))
				}
			})
		}

		body = invokeCase(t, test)
	}

	opts.reporter.CaseResult(test.Name, body.status, body.reason)

	if body.status == StatusFailed || body.status == StatusInterrupted {
		opts.reporter.Diagnostic(diagnostic(t, body.reason))

		if opts.onError != nil {
			opts.onError(t)
		}
	}

	cleanupCode, problems := t.drainCleanups()
	for _, p := range problems {
		opts.reporter.Diagnostic(diagnostic(t, p.detail))
	}

	res := Result{
		Name:        test.Name,
		Status:      classify(body.status, cleanupCode),
		Reason:      body.reason,
		Log:         t.log.String(),
		CleanupCode: cleanupCode,
	}

	if res.Status == StatusOK && opts.verbose {
		opts.reporter.Diagnostic(testLogDump(t))
	}

	opts.logger.Info("test finished",
		slog.String("test", test.Name),
		slog.String("status", res.Status.String()),
		slog.Int("cleanup_code", cleanupCode))

	return res
}

// invokeCase runs the setup and run hooks, converting typed panics and
// returned errors into a classification.
func invokeCase(t *T, test Test) (out bodyOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = classifyPanic(r)
		}
	}()

	t.checkInterrupt()

	if test.Setup != nil {
		if err := test.Setup(t); err != nil {
			return classifyError(t, err)
		}
	}

	if test.Run != nil {
		if err := test.Run(t); err != nil {
			return classifyError(t, err)
		}
	}

	t.checkInterrupt()

	return bodyOutcome{status: StatusOK}
}

func classifyPanic(r any) bodyOutcome {
	switch p := r.(type) {
	case skipPanic:
		return bodyOutcome{status: StatusSkipped, reason: p.reason}
	case failPanic:
		return bodyOutcome{status: StatusFailed, reason: p.reason}
	case signalPanic:
		return bodyOutcome{status: StatusFailed, reason: p.reason}
	case interruptPanic:
		return bodyOutcome{status: StatusInterrupted, reason: "interrupted"}
	default:
		return bodyOutcome{
			status: StatusFailed,
			reason: fmt.Sprintf("panic: %v\n%s", r, debug.Stack()),
		}
	}
}

func classifyError(t *T, err error) bodyOutcome {
	var skip *SkipError
	if errors.As(err, &skip) {
		return bodyOutcome{status: StatusSkipped, reason: skip.Reason}
	}

	if errors.Is(err, context.Canceled) || t.ctx.Err() != nil {
		return bodyOutcome{status: StatusInterrupted, reason: "interrupted"}
	}

	return bodyOutcome{status: StatusFailed, reason: err.Error()}
}

// classify folds the cleanup drain code into the body outcome. Precedence:
// Interrupted > Failed/CleanupError > Skipped > OK. A clean body with a
// failing cleanup still taints the result.
func classify(body Status, cleanupCode int) Status {
	switch {
	case body == StatusInterrupted || cleanupCode == cleanupInterrupted:
		return StatusInterrupted
	case body == StatusFailed:
		return StatusFailed
	case cleanupCode == cleanupFailed:
		return StatusCleanupError
	case body == StatusSkipped:
		return StatusSkipped
	default:
		return StatusOK
	}
}

func diagnostic(t *T, reason string) string {
	return fmt.Sprintf("%s\n%s", reason, testLogDump(t))
}

func testLogDump(t *T) string {
	return "test_log:\n" + t.log.String()
}
