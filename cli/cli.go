// Package cli is the thin command layer over the harness: flag parsing,
// configuration, logging and telemetry setup, and mapping the suite
// aggregate onto a process exit code. Suite programs call Main from their
// own func main.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ordeal-dev/ordeal/harness"
	"github.com/ordeal-dev/ordeal/internal/buildinfo"
	"github.com/ordeal-dev/ordeal/internal/config"
	clierrors "github.com/ordeal-dev/ordeal/internal/errors"
	"github.com/ordeal-dev/ordeal/internal/observability"
	"github.com/ordeal-dev/ordeal/internal/output"
	"github.com/ordeal-dev/ordeal/internal/paths"
)

// Main runs the suite program: it parses os.Args, runs the selected tests
// (or the full default list) and returns the process exit code. Suite
// boilerplate:
//
//	func main() {
//		os.Exit(cli.Main("mysuite", suite))
//	}
func Main(name string, suite *harness.Suite) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return Execute(ctx, name, suite, os.Args[1:], output.Default())
}

// Execute is Main with injected context, arguments and writer, for tests
// and for embedding the runner in a larger program.
func Execute(ctx context.Context, name string, suite *harness.Suite, args []string, out *output.Writer) (exitCode int) {
	rootCmd := newRootCmd(name, suite, out, &exitCode)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out.Out)
	rootCmd.SetErr(out.Err)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return handleError(out, err)
	}

	return exitCode
}

// handleError formats and displays a CLI error, returning the appropriate
// exit code. For CLIError types, it displays the message and hint with
// styled output.
func handleError(out *output.Writer, err error) int {
	var cliErr *clierrors.CLIError
	if clierrors.As(err, &cliErr) {
		out.Failure("%s", cliErr.Message)

		if cliErr.Hint != "" {
			out.Info("%s", cliErr.Hint)
		}

		return cliErr.Code
	}

	errStr := err.Error()

	// Cobra's own flag errors are normally wrapped as CLIError by
	// SetFlagErrorFunc; anything else still lands here.
	if strings.HasPrefix(errStr, "unknown flag") ||
		strings.HasPrefix(errStr, "unknown shorthand flag") ||
		strings.Contains(errStr, "required flag") {
		out.Failure("%s", errStr)

		return clierrors.ExitUsage
	}

	out.Failure("%s", errStr)

	return clierrors.ExitFailure
}

func newRootCmd(name string, suite *harness.Suite, out *output.Writer, exitCode *int) *cobra.Command {
	var (
		listTests  bool
		jsonOutput bool
		verbose    bool
		quiet      bool
		noColor    bool
		logLevel   string
		logFile    string
		logStderr  string
	)

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   fmt.Sprintf("%s [flags] [TEST...]", name),
		Short: name + " - test suite runner",
		Long: fmt.Sprintf(`%s runs its test suite sequentially, each test in a fresh sandbox
directory under _testtmp/, with child process output captured to files
for post-mortem inspection.

With no arguments the full default suite runs in declaration order. Name
tests on the command line to run just those, in the given order.

Exit status: 0 if every test passed or was skipped, 1 on any failure or
cleanup error, 2 if the run was interrupted.`, name),
		Version:       buildinfo.Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			out.JSON = jsonOutput
			out.Quiet = pickBool(quiet, cfg.Quiet())
			out.Verbose = pickBool(verbose, cfg.Verbose())

			if noColor {
				out.SetNoColor(true)
			}

			logCfg := observability.Config{
				Level:       pickString(logLevel, cfg.LogLevel()),
				LogFile:     resolveLogFile(pickString(logFile, cfg.LogFile())),
				StderrMode:  pickString(logStderr, cfg.LogStderr()),
				SessionID:   uuid.NewString(),
				CommandPath: cmd.CommandPath(),
				Version:     buildinfo.Version,
				Commit:      buildinfo.Commit,
			}

			logger, cleanup, err := observability.NewLogger(&logCfg)
			if err != nil {
				return clierrors.LoggingSetup(err)
			}

			slog.SetDefault(logger)
			logger.Debug("configuration loaded", slog.Any("settings", cfg.All()))

			ctx := out.WithContext(cmd.Context())
			ctx = observability.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			if cleanup != nil {
				cmd.PostRunE = wrapPostRunCleanup(cmd.PostRunE, cleanup)
			}

			// Initialize OpenTelemetry tracing (opt-in).
			telemetryCfg := &observability.TelemetryConfig{
				Enabled:  observability.IsTelemetryEnabled() || cfg.TelemetryEnabled(),
				Endpoint: cfg.TelemetryEndpoint(),
				Version:  buildinfo.Version,
				Commit:   buildinfo.Commit,
			}

			telemetryShutdown, telemetryErr := observability.SetupTelemetry(ctx, telemetryCfg)
			if telemetryErr != nil {
				out.Warning("Telemetry disabled: %v", telemetryErr)
				logger.Warn("telemetry initialization failed", slog.String("error", telemetryErr.Error()))
			}

			if telemetryShutdown != nil {
				cmd.PostRunE = wrapPostRunCleanup(cmd.PostRunE, func() error {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()

					return telemetryShutdown(shutdownCtx)
				})
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if listTests {
				return printList(out, suite)
			}

			opts := harness.RunOptions{
				Verbose:  out.Verbose,
				Quiet:    out.Quiet,
				Reporter: harness.NewConsoleReporter(out, out.Quiet),
				Logger:   observability.FromContext(cmd.Context()),
			}

			code, err := suite.Run(cmd.Context(), args, opts)
			if err != nil {
				return selectionError(err)
			}

			*exitCode = code

			return nil
		},
	}

	rootCmd.Flags().BoolVarP(&listTests, "list", "l", false, "List available tests without running them")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the test list in JSON format")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show the test log even for passing tests")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Subtest mode: only report abnormal outcomes")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: error, warn, info, debug")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Structured log file path ('auto' for the default location)")
	rootCmd.PersistentFlags().StringVar(&logStderr, "log-stderr", "", "Structured logging to stderr: on, off")

	// Wrap Cobra's raw flag errors in CLIError so they get styled output
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return clierrors.BadFlag(err)
	})

	return rootCmd
}

// printList shows the registered tests, default list first, then extras.
func printList(out *output.Writer, suite *harness.Suite) error {
	names := suite.Names()

	if out.JSON {
		return out.PrintJSON(map[string]any{"tests": names})
	}

	for _, name := range names {
		out.Println("   ", name)
	}

	return nil
}

func selectionError(err error) error {
	var unknown *harness.UnknownTestError
	if errors.As(err, &unknown) {
		return clierrors.UnknownTests(unknown.Names, unknown.Available)
	}

	return clierrors.Wrap(clierrors.ExitConfig, "Test selection failed", err)
}

func pickBool(flag, cfgValue bool) bool {
	return flag || cfgValue
}

func pickString(flag, cfgValue string) string {
	if flag != "" {
		return flag
	}

	return cfgValue
}

// resolveLogFile expands the "auto" sentinel to the state-dir default.
func resolveLogFile(value string) string {
	if value != "auto" {
		return value
	}

	path, err := paths.DefaultLogFile()
	if err != nil {
		return ""
	}

	return path
}

func wrapPostRunCleanup(existing func(*cobra.Command, []string) error, cleanup func() error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var firstErr error
		if existing != nil {
			firstErr = existing(cmd, args)
		}

		if err := cleanup(); err != nil && firstErr == nil {
			firstErr = err
		}

		return firstErr
	}
}
