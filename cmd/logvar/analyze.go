package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/logflow/logvar/pkg/config"
	"github.com/logflow/logvar/pkg/driver"
	"github.com/logflow/logvar/pkg/loader"
	"github.com/logflow/logvar/pkg/report"
	"github.com/logflow/logvar/pkg/variability"
)

// Analyze flags
var (
	jsonOutput   bool
	workers      int
	showProgress bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [name=]<log>...",
	Short: "Compute the variability metrics of one or more event logs",
	Long: `Compute variant, edit distance and custom variability for each log.

Logs may be local paths (optionally .gz) or s3://bucket/key URIs. A
name=path argument labels the log in the report. With no arguments the
logs listed in the configuration file are analyzed.

A log that fails to load or compute is reported and skipped. The command
fails only when every log fails.`,
	Example: `  logvar analyze hospital.xes
  logvar analyze before=q1.csv after=q2.csv --workers 2
  logvar analyze s3://bucket/logs/orders.parquet --json`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Write the report as JSON")
	analyzeCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Logs analyzed concurrently")
	analyzeCmd.Flags().BoolVar(&showProgress, "progress", false, "Show pairwise comparison progress")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	specs, err := buildSpecs(args, cfg.Logs)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Analysis.Workers = workers
	}
	if cmd.Flags().Changed("progress") {
		cfg.Analysis.Progress = showProgress
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	d := newDriver(cfg, !jsonOutput)
	r := d.Run(ctx, specs)
	if err := writeReport(cmd.OutOrStdout(), r, jsonOutput); err != nil {
		return err
	}

	if r.AllFailed() {
		return fmt.Errorf("no log could be analyzed: %w", r.Err())
	}
	return nil
}

// buildSpecs turns arguments into log specs, falling back to the logs of
// the configuration file.
func buildSpecs(args []string, configured []config.LogEntry) ([]driver.LogSpec, error) {
	format, err := parseFormatFlag()
	if err != nil {
		return nil, err
	}

	var specs []driver.LogSpec
	for _, arg := range args {
		spec := driver.ParseSpec(arg)
		spec.Format = format
		specs = append(specs, spec)
	}
	if len(specs) > 0 {
		return specs, nil
	}

	for _, entry := range configured {
		spec := driver.ParseSpec(entry.Path)
		if entry.Name != "" {
			spec.Name = entry.Name
		}
		if entry.Format != "" {
			spec.Format = loader.ParseFormat(entry.Format)
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, errors.New("no logs given: pass log paths or list them under logs: in the config file")
	}
	return specs, nil
}

// newDriver wires the loader, engine and progress bars. Progress bars are
// only drawn when the report goes to a terminal-style renderer.
func newDriver(c *config.Config, interactive bool) *driver.Driver {
	opts := []driver.Option{
		driver.WithWorkers(c.Analysis.Workers),
		driver.WithLogger(slog.Default()),
	}
	if c.Analysis.Progress && interactive {
		opts = append(opts, driver.WithProgress(func(spec driver.LogSpec) variability.ProgressFunc {
			return report.NewProgress(os.Stderr, spec.Name)
		}))
	}
	return driver.New(newLoader(c), nil, opts...)
}

func writeReport(w io.Writer, r *driver.Report, asJSON bool) error {
	if asJSON {
		return report.WriteJSON(w, r)
	}
	report.Render(w, r)
	return nil
}
