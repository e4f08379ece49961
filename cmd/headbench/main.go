// Package main provides the CLI entry point for headbench, which measures
// the cost of launching a browser headful versus headless.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/weiihann/headbench/config"
	"github.com/weiihann/headbench/fixture"
	"github.com/weiihann/headbench/harness"
	"github.com/weiihann/headbench/report"
	"github.com/weiihann/headbench/results"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root := newRootCmd(logger, level, cfg, defaultDeps())
	if err := root.ExecuteContext(ctx); err != nil {
		logFailure(logger, err)
		stop()
		os.Exit(1)
	}

	stop()
}

func logFailure(logger *slog.Logger, err error) {
	var te *harness.TrialError
	if errors.As(err, &te) {
		logger.Error("benchmark aborted",
			slog.String("mode", string(te.Mode)),
			slog.Int("trial", te.Trial),
			slog.String("step", te.Step),
			slog.String("error", te.Err.Error()),
		)

		return
	}

	logger.Error("headbench failed", slog.String("error", err.Error()))
}

// deps are the collaborators the commands need from the outside world.
type deps struct {
	fs       afero.Fs
	stdout   io.Writer
	resolve  func(explicit string) (string, error)
	launcher func(execPath string, logger *slog.Logger) harness.Launcher
	probe    func(ctx context.Context) (harness.Probe, error)
}

func defaultDeps() deps {
	return deps{
		fs:      afero.NewOsFs(),
		stdout:  os.Stdout,
		resolve: harness.ResolveExecPath,
		launcher: func(execPath string, logger *slog.Logger) harness.Launcher {
			return harness.NewChromeLauncher(execPath, logger)
		},
		probe: func(ctx context.Context) (harness.Probe, error) {
			return harness.NewProcessProbe(ctx)
		},
	}
}

func newRootCmd(
	logger *slog.Logger,
	level *slog.LevelVar,
	cfg config.Config,
	d deps,
) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "headbench",
		Short: "Measure the cost of launching a browser headful vs headless",
		Long: `Headbench launches Chrome repeatedly in headful and headless mode,
loads a fixed page in each trial, and records the CPU time, memory delta and
wall-clock time of every launch. Per-mode trimmed means are written to a JSON
results file that the render command turns into bar charts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				level.Set(slog.LevelDebug)
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	root.AddCommand(newRunCmd(logger, cfg, d))
	root.AddCommand(newRenderCmd(logger, cfg, d))
	root.AddCommand(newSmokeCmd(logger, cfg, d))

	return root
}

func newRunCmd(logger *slog.Logger, cfg config.Config, d deps) *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the launch benchmark and write the results file",
		Long: `Run a fixed number of launch trials per mode, headful first by default,
and write the trimmed-mean summary of each mode to benchmark-results.json in the
output directory. Any failed trial aborts the run without writing results.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchmark(cmd.Context(), logger, cfg, d, outputJSON)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.OutputDir, "out", cfg.OutputDir,
		"Output directory for results")
	flags.StringVar(&cfg.TargetURL, "url", cfg.TargetURL,
		"Page loaded by every trial")
	flags.DurationVar(&cfg.Settle, "settle", cfg.Settle,
		"Wait after the page load event before measuring")
	flags.IntVar(&cfg.Runs, "runs", cfg.Runs,
		"Trials per mode")
	flags.StringSliceVar(&cfg.Modes, "modes", cfg.Modes,
		"Mode order, both of headful and headless")
	flags.StringVar(&cfg.ChromePath, "chrome", cfg.ChromePath,
		"Chrome or Chromium executable (default: search PATH)")
	flags.DurationVar(&cfg.TrialTimeout, "trial-timeout", cfg.TrialTimeout,
		"Abort a trial that takes longer than this (0 = never)")
	flags.BoolVar(&cfg.KeepSamples, "keep-samples", cfg.KeepSamples,
		"Also write per-trial samples to benchmark-samples.json")
	flags.BoolVar(&cfg.Fixture, "fixture", cfg.Fixture,
		"Serve a generated page locally instead of loading --url; "+
			"the server runs in the measured process and adds its own CPU and memory")
	flags.Int64Var(&cfg.FixtureSeed, "fixture-seed", cfg.FixtureSeed,
		"Seed of the generated fixture page")
	flags.BoolVar(&outputJSON, "json", false,
		"Print results as JSON instead of a table")

	return cmd
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.Config,
	d deps,
	outputJSON bool,
) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	order, err := cfg.ModeOrder()
	if err != nil {
		return err
	}

	store := results.NewStore(d.fs, cfg.OutputDir)
	if err := store.EnsureDir(); err != nil {
		return err
	}

	execPath, err := d.resolve(cfg.ChromePath)
	if err != nil {
		return fmt.Errorf("locate browser: %w", err)
	}

	probe, err := d.probe(ctx)
	if err != nil {
		return fmt.Errorf("open process probe: %w", err)
	}

	if cfg.Fixture {
		fixtureCfg := fixture.DefaultConfig()
		fixtureCfg.Seed = cfg.FixtureSeed

		srv, err := fixture.Start(ctx, fixtureCfg, logger)
		if err != nil {
			return fmt.Errorf("start fixture: %w", err)
		}

		defer func() {
			if err := srv.Close(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("fixture shutdown failed", slog.String("error", err.Error()))
			}
		}()

		cfg.TargetURL = srv.URL()
	}

	logger.InfoContext(ctx, "starting benchmark",
		slog.String("browser", execPath),
		slog.String("url", cfg.TargetURL),
		slog.Int("runs", cfg.Runs),
		slog.Duration("settle", cfg.Settle),
		slog.Any("modes", order),
	)

	runner := harness.NewRunner(
		d.launcher(execPath, logger), probe, cfg.RunConfig(), logger,
	)

	set := make(harness.ResultSet, 0, len(order))

	var samples []harness.RawSample

	for _, mode := range order {
		if !cfg.KeepSamples {
			rec, err := runner.Run(ctx, mode, cfg.Runs)
			if err != nil {
				return fmt.Errorf("benchmark %s: %w", mode, err)
			}

			set = append(set, rec)

			continue
		}

		modeSamples, err := runner.RunTrials(ctx, mode, cfg.Runs)
		if err != nil {
			return fmt.Errorf("benchmark %s: %w", mode, err)
		}

		rec, err := harness.Summarize(mode, modeSamples)
		if err != nil {
			return fmt.Errorf("benchmark %s: %w", mode, err)
		}

		set = append(set, rec)
		samples = append(samples, modeSamples...)
	}

	path, err := store.Save(set)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "averaged results saved", slog.String("path", path))

	if cfg.KeepSamples {
		samplesPath, err := store.SaveSamples(samples)
		if err != nil {
			return err
		}

		logger.InfoContext(ctx, "raw samples saved", slog.String("path", samplesPath))
	}

	if outputJSON {
		if err := report.GenerateJSON(d.stdout, set); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	} else {
		if err := report.Generate(d.stdout, set); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	}

	logger.InfoContext(ctx, "benchmark complete")

	return nil
}
