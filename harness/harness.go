package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

const (
	// DefaultTargetURL is the page every trial loads.
	DefaultTargetURL = "https://www.wikipedia.org"
	// DefaultSettle is how long a trial waits after the load event before
	// taking its end measurement.
	DefaultSettle = 3 * time.Second
	// DefaultRuns is the number of trials per mode.
	DefaultRuns = 5
)

// RunConfig holds parameters shared by every trial of a run.
type RunConfig struct {
	TargetURL string
	Settle    time.Duration
	// TrialTimeout bounds a single trial. Zero means no bound.
	TrialTimeout time.Duration
}

// TrialError reports the failure of one step of one trial. Any trial
// failure invalidates the whole run.
type TrialError struct {
	Mode  Mode
	Trial int
	Step  string
	Err   error
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("%s trial %d: %s: %v", e.Mode, e.Trial, e.Step, e.Err)
}

func (e *TrialError) Unwrap() error {
	return e.Err
}

// Runner measures browser launches one trial at a time.
type Runner struct {
	Launcher Launcher
	Probe    Probe
	Config   RunConfig
	Logger   *slog.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewRunner creates a Runner. An empty cfg.TargetURL takes
// DefaultTargetURL.
func NewRunner(
	launcher Launcher,
	probe Probe,
	cfg RunConfig,
	logger *slog.Logger,
) *Runner {
	if cfg.TargetURL == "" {
		cfg.TargetURL = DefaultTargetURL
	}

	return &Runner{
		Launcher: launcher,
		Probe:    probe,
		Config:   cfg,
		Logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Run performs runs trials in mode and summarizes them. No record is
// returned if any trial fails.
func (r *Runner) Run(ctx context.Context, mode Mode, runs int) (SummaryRecord, error) {
	samples, err := r.RunTrials(ctx, mode, runs)
	if err != nil {
		return SummaryRecord{}, err
	}

	rec, err := Summarize(mode, samples)
	if err != nil {
		return SummaryRecord{}, err
	}

	r.Logger.InfoContext(ctx, "mode summarized",
		slog.String("mode", string(mode)),
		slog.Int64("cpu_ms", rec.CPUTotal),
		slog.Int64("memory_kb", rec.Memory),
		slog.Int64("time_ms", rec.TimeMs),
	)

	return rec, nil
}

// RunTrials performs runs sequential trials and returns their samples in
// trial order. The first failure aborts the remaining trials and no
// samples are returned.
func (r *Runner) RunTrials(ctx context.Context, mode Mode, runs int) ([]RawSample, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	if runs < 1 {
		return nil, fmt.Errorf("runs must be at least 1, got %d", runs)
	}

	logger := r.Logger.With(slog.String("mode", string(mode)))
	samples := make([]RawSample, 0, runs)

	for i := 1; i <= runs; i++ {
		sample, err := r.runTrial(ctx, mode, i)
		if err != nil {
			return nil, err
		}

		logger.InfoContext(ctx, "trial finished",
			slog.Int("trial", i),
			slog.Int("of", runs),
			slog.Int64("cpu_ms", sample.CPUTimeMs),
			slog.Int64("memory_kb", sample.MemoryDeltaKB),
			slog.Int64("elapsed_ms", sample.ElapsedMs),
		)

		samples = append(samples, sample)
	}

	return samples, nil
}

// RunTrial launches the browser once in mode, loads the target page,
// waits for the settle interval and closes the browser, measuring the
// cost of the whole cycle.
func (r *Runner) RunTrial(ctx context.Context, mode Mode) (RawSample, error) {
	if !mode.Valid() {
		return RawSample{}, fmt.Errorf("unknown mode %q", mode)
	}

	return r.runTrial(ctx, mode, 1)
}

func (r *Runner) runTrial(ctx context.Context, mode Mode, trial int) (RawSample, error) {
	fail := func(step string, cause error) error {
		return &TrialError{Mode: mode, Trial: trial, Step: step, Err: cause}
	}

	if r.Config.TrialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Config.TrialTimeout)
		defer cancel()
	}

	cpuStart, err := r.Probe.CPUTime(ctx)
	if err != nil {
		return RawSample{}, fail("probe", err)
	}

	memStart, err := r.Probe.RSS(ctx)
	if err != nil {
		return RawSample{}, fail("probe", err)
	}

	wallStart := r.now()

	browser, err := r.Launcher.Launch(ctx, mode.Headless())
	if err != nil {
		return RawSample{}, fail("launch", err)
	}

	// The browser is released on every failure path below. On success it
	// is closed explicitly so the close cost is measured.
	closed := false
	defer func() {
		if !closed {
			if cerr := browser.Close(); cerr != nil {
				r.Logger.Warn("failed to close browser after trial failure",
					slog.String("mode", string(mode)),
					slog.String("error", cerr.Error()),
				)
			}
		}
	}()

	page, err := browser.NewPage(ctx)
	if err != nil {
		return RawSample{}, fail("open page", err)
	}

	if err := page.Navigate(ctx, r.Config.TargetURL); err != nil {
		return RawSample{}, fail("navigate", err)
	}

	if err := r.sleep(ctx, r.Config.Settle); err != nil {
		return RawSample{}, fail("settle", err)
	}

	memEnd, err := r.Probe.RSS(ctx)
	if err != nil {
		return RawSample{}, fail("probe", err)
	}

	closed = true
	if err := browser.Close(); err != nil {
		return RawSample{}, fail("close", err)
	}

	wallElapsed := r.now().Sub(wallStart)

	cpuEnd, err := r.Probe.CPUTime(ctx)
	if err != nil {
		return RawSample{}, fail("probe", err)
	}

	return RawSample{
		Mode:          mode,
		CPUTimeMs:     durationToMs(cpuEnd - cpuStart),
		MemoryDeltaKB: bytesDeltaToKB(memStart, memEnd),
		ElapsedMs:     durationToMs(wallElapsed),
	}, nil
}

// durationToMs rounds d to whole milliseconds from microsecond
// resolution.
func durationToMs(d time.Duration) int64 {
	return int64(math.Round(float64(d.Microseconds()) / 1000))
}

func bytesDeltaToKB(start, end uint64) int64 {
	delta := float64(end) - float64(start)

	return int64(math.Round(delta / 1024))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsTrialFailure reports whether err was caused by a failed trial.
func IsTrialFailure(err error) bool {
	var te *TrialError

	return errors.As(err, &te)
}
