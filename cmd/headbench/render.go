package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/weiihann/headbench/chart"
	"github.com/weiihann/headbench/config"
	"github.com/weiihann/headbench/report"
	"github.com/weiihann/headbench/results"
)

func newRenderCmd(logger *slog.Logger, cfg config.Config, d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render bar charts from the results file",
		Long: `Read benchmark-results.json from the output directory and write one PNG
bar chart per metric (CPU, memory, time) plus a combined side-by-side image.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return renderCharts(cmd.Context(), logger, cfg, d)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.OutputDir, "out", cfg.OutputDir,
		"Directory holding the results file; charts are written here too")
	flags.BoolVar(&cfg.Combined, "combined", cfg.Combined,
		"Also write the side-by-side combined chart")

	return cmd
}

func renderCharts(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.Config,
	d deps,
) error {
	store := results.NewStore(d.fs, cfg.OutputDir)
	if err := store.EnsureDir(); err != nil {
		return err
	}

	set, paths, err := chart.Render(store, cfg.Combined)
	if err != nil {
		return fmt.Errorf("render charts: %w", err)
	}

	for _, p := range paths {
		logger.InfoContext(ctx, "chart saved", slog.String("path", p))
	}

	return report.Generate(d.stdout, set)
}
