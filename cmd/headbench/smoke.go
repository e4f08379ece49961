package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/weiihann/headbench/config"
	"github.com/weiihann/headbench/harness"
)

func newSmokeCmd(logger *slog.Logger, cfg config.Config, d deps) *cobra.Command {
	var headful bool

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Launch the browser once to check the setup",
		Long: `Launch the browser, load the target page and close it again without
measuring anything. Use it to check that a browser is installed and reachable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode := harness.Headless
			if headful {
				mode = harness.Headful
			}

			return smokeTest(cmd.Context(), logger, cfg, d, mode)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.TargetURL, "url", cfg.TargetURL,
		"Page to load")
	flags.StringVar(&cfg.ChromePath, "chrome", cfg.ChromePath,
		"Chrome or Chromium executable (default: search PATH)")
	flags.BoolVar(&headful, "headful", false,
		"Launch with a visible window")

	return cmd
}

func smokeTest(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.Config,
	d deps,
	mode harness.Mode,
) error {
	execPath, err := d.resolve(cfg.ChromePath)
	if err != nil {
		return fmt.Errorf("locate browser: %w", err)
	}

	logger = logger.With(slog.String("mode", string(mode)))
	logger.InfoContext(ctx, "launching browser", slog.String("browser", execPath))

	browser, err := d.launcher(execPath, logger).Launch(ctx, mode.Headless())
	if err != nil {
		return &harness.TrialError{Mode: mode, Trial: 1, Step: "launch", Err: err}
	}

	page, err := browser.NewPage(ctx)
	if err != nil {
		closeAfterFailure(ctx, logger, browser)

		return &harness.TrialError{Mode: mode, Trial: 1, Step: "open page", Err: err}
	}

	if err := page.Navigate(ctx, cfg.TargetURL); err != nil {
		closeAfterFailure(ctx, logger, browser)

		return &harness.TrialError{Mode: mode, Trial: 1, Step: "navigate", Err: err}
	}

	logger.InfoContext(ctx, "page loaded", slog.String("url", cfg.TargetURL))

	if err := browser.Close(); err != nil {
		return &harness.TrialError{Mode: mode, Trial: 1, Step: "close", Err: err}
	}

	logger.InfoContext(ctx, "browser closed")

	return nil
}

func closeAfterFailure(ctx context.Context, logger *slog.Logger, browser harness.Browser) {
	if err := browser.Close(); err != nil {
		logger.WarnContext(ctx, "failed to close browser after smoke failure",
			slog.String("error", err.Error()),
		)
	}
}
