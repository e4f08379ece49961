// Package config resolves headbench settings from defaults and the
// environment. Command-line flags are applied on top by the CLI.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mstoykov/envconfig"

	"github.com/weiihann/headbench/harness"
	"github.com/weiihann/headbench/results"
)

// Config holds every tunable of a benchmark run and of rendering.
type Config struct {
	OutputDir    string        `envconfig:"HEADBENCH_OUTPUT_DIR"`
	TargetURL    string        `envconfig:"HEADBENCH_TARGET_URL"`
	Settle       time.Duration `envconfig:"HEADBENCH_SETTLE"`
	Runs         int           `envconfig:"HEADBENCH_RUNS"`
	Modes        []string      `envconfig:"HEADBENCH_MODES"`
	ChromePath   string        `envconfig:"HEADBENCH_CHROME_PATH"`
	TrialTimeout time.Duration `envconfig:"HEADBENCH_TRIAL_TIMEOUT"`
	KeepSamples  bool          `envconfig:"HEADBENCH_KEEP_SAMPLES"`
	Combined     bool          `envconfig:"HEADBENCH_COMBINED"`

	// Fixture replaces TargetURL with a generated page served locally.
	Fixture     bool  `envconfig:"HEADBENCH_FIXTURE"`
	FixtureSeed int64 `envconfig:"HEADBENCH_FIXTURE_SEED"`
}

// Default returns the built-in configuration: five trials per mode,
// headful first, a three second settle and no trial timeout.
func Default() Config {
	return Config{
		OutputDir:   results.DefaultDir,
		TargetURL:   harness.DefaultTargetURL,
		Settle:      harness.DefaultSettle,
		Runs:        harness.DefaultRuns,
		Modes:       []string{"headful", "headless"},
		Combined:    true,
		FixtureSeed: 1,
	}
}

// FromEnv returns Default overridden by any HEADBENCH_* variables set.
func FromEnv() (Config, error) {
	cfg := Default()
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	return cfg, nil
}

// ModeOrder parses Modes. The result always covers both modes exactly
// once so that a completed run yields one record per mode.
func (c Config) ModeOrder() ([]harness.Mode, error) {
	order := make([]harness.Mode, 0, len(c.Modes))
	seen := make(map[harness.Mode]bool, len(c.Modes))

	for _, s := range c.Modes {
		m, err := harness.ParseMode(s)
		if err != nil {
			return nil, err
		}

		if seen[m] {
			return nil, fmt.Errorf("mode %s listed twice", m)
		}

		seen[m] = true
		order = append(order, m)
	}

	if len(order) != len(harness.Modes()) {
		return nil, fmt.Errorf(
			"mode order must list both headful and headless, got %q",
			strings.Join(c.Modes, ","),
		)
	}

	return order, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Runs < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", c.Runs)
	}

	if c.Settle < 0 {
		return fmt.Errorf("settle must not be negative, got %s", c.Settle)
	}

	if c.TrialTimeout < 0 {
		return fmt.Errorf("trial timeout must not be negative, got %s", c.TrialTimeout)
	}

	if c.TargetURL == "" {
		return fmt.Errorf("target url must not be empty")
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output dir must not be empty")
	}

	if _, err := c.ModeOrder(); err != nil {
		return err
	}

	return nil
}

// RunConfig returns the per-trial settings for the harness.
func (c Config) RunConfig() harness.RunConfig {
	return harness.RunConfig{
		TargetURL:    c.TargetURL,
		Settle:       c.Settle,
		TrialTimeout: c.TrialTimeout,
	}
}
