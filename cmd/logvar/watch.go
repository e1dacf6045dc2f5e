package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/logflow/logvar/pkg/driver"
	"github.com/logflow/logvar/pkg/source"
	"github.com/logflow/logvar/pkg/watch"
)

var debounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [name=]<log>",
	Short: "Recompute the metrics whenever a local log changes",
	Long: `Analyze a local event log, then watch it and print a fresh report each
time the file is rewritten. Remote logs cannot be watched.`,
	Example: `  logvar watch exports/orders.csv
  logvar watch orders=exports/orders.csv --debounce 2s`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Wait this long after the last change before recomputing")
	watchCmd.Flags().BoolVar(&jsonOutput, "json", false, "Write each report as JSON")
}

func runWatch(cmd *cobra.Command, args []string) error {
	specs, err := buildSpecs(args, nil)
	if err != nil {
		return err
	}
	spec := specs[0]
	if source.IsS3(spec.Path) {
		return fmt.Errorf("cannot watch %s: only local files can be watched", spec.Path)
	}

	w, err := watch.NewWatcher(watch.WithDebounce(debounce), watch.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer w.Close()

	out := cmd.OutOrStdout()
	d := newDriver(cfg, false)
	analyze := func(ctx context.Context) error {
		r := d.Run(ctx, []driver.LogSpec{spec})
		if err := writeReport(out, r, jsonOutput); err != nil {
			return err
		}
		return r.Err()
	}

	w.OnChange = func(ctx context.Context, path string) error {
		slog.Info("log changed, recomputing", "path", path)
		return analyze(ctx)
	}
	w.OnError = func(path string, err error) {
		slog.Warn("watch error", "path", path, "error", err)
	}

	if err := w.Watch(spec.Path); err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	// Initial run
	if err := analyze(ctx); err != nil {
		slog.Warn("initial analysis failed", "error", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for changes...\n", spec.Path)
	fmt.Fprintln(cmd.ErrOrStderr(), "Press Ctrl+C to stop")

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
