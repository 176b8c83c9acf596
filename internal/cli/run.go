package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"permutest/internal/ledger"
	"permutest/internal/runlog"
	"permutest/internal/runner"
	"permutest/internal/ui/live"
)

// runExperiment is a test seam for executing runs.
var runExperiment = runner.Run

// runRun builds the handler for the run command.
func runRun(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return runOrRetry(cmd, false)
}

// runRetry builds the handler for the retry command, which skips the initial
// phase and processes only the retry queue.
func runRetry(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return runOrRetry(cmd, true)
}

func runOrRetry(cmd *Command, retryOnly bool) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		configPath := fs.String("config", "", "Path to config file (default: search for .permutest.yml)")
		uiMode := fs.String("ui", "", "UI mode: auto, live, or plain (default: config setting)")
		workers := fs.Int("workers", 0, "Override worker count")
		verbose := fs.Bool("verbose", false, "Mirror warnings and errors to the console")
		var experimentFlag *string
		if retryOnly {
			experimentFlag = fs.String("experiment", "", "Expected experiment id")
		}
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		if fs.NArg() > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		cfg, baseDir, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
			return ExitError
		}
		if *workers > 0 {
			cfg.Concurrency.Workers = *workers
		}

		experimentID := runner.ExperimentID(cfg)
		if experimentFlag != nil {
			if err := checkExperimentFlag(*experimentFlag, experimentID); err != nil {
				fmt.Fprintf(stderr, "%v\n", err)
				return ExitError
			}
		}

		mode := *uiMode
		if mode == "" {
			mode = cfg.UI
		}
		decision, err := resolveUIMode(mode, *verbose, stdout)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitUsage
		}
		if decision.warning != "" {
			fmt.Fprintln(stderr, decision.warning)
		}

		paths := experimentPaths(cfg, baseDir)
		if err := os.MkdirAll(paths.Dir, 0o755); err != nil {
			fmt.Fprintf(stderr, "Failed to create output dir: %v\n", err)
			return ExitError
		}
		var mirror io.Writer
		if *verbose {
			mirror = stderr
		}
		logger, err := runlog.New(runlog.Options{
			Path:   paths.Log,
			Level:  cfg.Logging.Level,
			Mirror: mirror,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open run log: %v\n", err)
			return ExitError
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		runCtx, cancelRun := context.WithCancel(ctx)
		defer cancelRun()

		var observer runner.RunObserver
		var controller *live.Controller
		if decision.useLive {
			controller = live.Start(stdout, live.Options{Cancel: cancelRun})
			observer = controller
		} else {
			observer = newPlainObserver(stdout)
		}

		summary, err := runExperiment(runCtx, cfg, runner.Params{
			BaseDir:   baseDir,
			RetryOnly: retryOnly,
			Deps: runner.Dependencies{
				Logger:   logger,
				Observer: observer,
			},
		})
		if controller != nil {
			controller.Close()
			controller.Wait()
		}
		if err != nil {
			fmt.Fprintf(stderr, "Run failed: %v\n", err)
			return ExitError
		}
		if !decision.useLive {
			fmt.Fprint(stdout, live.FormatSummary(summary))
		}
		if summary.Status == ledger.StatusInterrupted {
			fmt.Fprintln(stdout, "Interrupted; run again to resume.")
		}
		return ExitOK
	}
}
