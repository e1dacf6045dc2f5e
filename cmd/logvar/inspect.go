package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logflow/logvar/pkg/inspect"
	"github.com/logflow/logvar/pkg/report"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [name=]<log>",
	Short: "Check an event log for data quality problems",
	Long: `Profile an event log before measuring it: completeness of activity,
timestamp and resource attributes, trace length distribution, duplicate and
out-of-order events. Events without an activity label are reported as errors
because they prevent the variability metrics from being computed.`,
	Example: `  logvar inspect hospital.xes
  logvar inspect orders.csv --case-id order_id --json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&jsonOutput, "json", false, "Write the profile as JSON")
}

func runInspect(cmd *cobra.Command, args []string) error {
	specs, err := buildSpecs(args, nil)
	if err != nil {
		return err
	}
	spec := specs[0]

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	log, err := newLoader(cfg).Load(ctx, spec.Path, spec.Format)
	if err != nil {
		return fmt.Errorf("error loading %s: %w", spec.Name, err)
	}
	log.Name = spec.Name

	r := inspect.Inspect(log)
	if jsonOutput {
		return report.WriteInspectionJSON(cmd.OutOrStdout(), r)
	}
	report.RenderInspection(cmd.OutOrStdout(), r)
	return nil
}
