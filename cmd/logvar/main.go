// logvar measures the behavioral variability of process-mining event logs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/logflow/logvar/pkg/config"
	"github.com/logflow/logvar/pkg/loader"
	"github.com/logflow/logvar/pkg/logging"
	"github.com/logflow/logvar/pkg/source"
	"github.com/logflow/logvar/pkg/telemetry"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// Global flags
var (
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	verbose    bool

	// Loader flags
	formatFlag      string
	engineFlag      string
	delimiter       string
	caseIDColumn    string
	activityColumn  string
	timestampColumn string
	resourceColumn  string
	timestampFormat string
	noSort          bool
)

// Run state shared by subcommands, set up in PersistentPreRunE.
var (
	cfg      *config.Config
	shutdown telemetry.ShutdownFunc
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "logvar",
	Short: "logvar - measure the variability of process event logs",
	Long: `logvar computes three variability metrics for process-mining event logs
(XES, CSV, JSON, XLSX, Parquet; local or s3://):

  Variant Variability        number of distinct activity sequences
  Edit Distance Variability  mean pairwise similarity ratio of traces
  Custom Variability         standard deviation of trace lengths

Configuration is read from /etc/logvar/config.yaml, ~/.logvar/config.yaml,
./.logvar.yaml, --config, .env and LOGVAR_* environment variables, in that
order; flags override everything.`,
	Version:           fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdown == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdown(ctx)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "logvar %s (%s)\n", version, commit)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (YAML)")
	pf.StringVar(&envFile, "env-file", ".env", "Dotenv file read before the environment")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "Log format (text, json)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Shorthand for --log-level debug")

	pf.StringVarP(&formatFlag, "format", "f", "", "Input format (xes, csv, json, xlsx, parquet) - auto-detected if not specified")
	pf.StringVar(&engineFlag, "engine", "", "Tabular loading engine (native, duckdb)")
	pf.StringVar(&delimiter, "delimiter", "", "CSV field delimiter")
	pf.StringVar(&caseIDColumn, "case-id", "", "Case ID column name")
	pf.StringVar(&activityColumn, "activity", "", "Activity column name")
	pf.StringVar(&timestampColumn, "timestamp", "", "Timestamp column name")
	pf.StringVar(&resourceColumn, "resource", "", "Resource column name")
	pf.StringVar(&timestampFormat, "timestamp-format", "", "Timestamp format (Go time layout)")
	pf.BoolVar(&noSort, "no-sort", false, "Keep row order instead of sorting cases by timestamp")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration, applies flag overrides and installs the
// logger and tracer.
func setup(cmd *cobra.Command, args []string) error {
	if cmd == versionCmd {
		return nil
	}

	m := config.NewManager(config.WithFile(configPath), config.WithEnvFile(envFile))
	if err := m.Load(); err != nil {
		return err
	}
	cfg = m.Get()
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	logger.Debug("configuration loaded", "paths", m.GetPaths())

	shutdown, err = telemetry.Setup(cmd.Context(), cfg.Telemetry)
	return err
}

// applyFlags overrides configuration with flags the user set explicitly.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	set := func(name string, dst *string, val string) {
		if flags.Changed(name) {
			*dst = val
		}
	}

	set("log-level", &c.Logging.Level, logLevel)
	set("log-format", &c.Logging.Format, logFormat)
	if verbose {
		c.Logging.Level = "debug"
	}

	set("engine", &c.Loader.Engine, engineFlag)
	set("delimiter", &c.Loader.Delimiter, delimiter)
	set("case-id", &c.Loader.CaseIDColumn, caseIDColumn)
	set("activity", &c.Loader.ActivityColumn, activityColumn)
	set("timestamp", &c.Loader.TimestampColumn, timestampColumn)
	set("resource", &c.Loader.ResourceColumn, resourceColumn)
	set("timestamp-format", &c.Loader.TimestampFormat, timestampFormat)
	if noSort {
		c.Loader.SortByTimestamp = false
	}
}

// newLoader builds a loader from the effective configuration.
func newLoader(c *config.Config) *loader.Loader {
	return loader.New(c.Loader, source.NewOpener(c.S3))
}

// parseFormatFlag returns the --format value, or FormatUnknown to detect.
func parseFormatFlag() (loader.Format, error) {
	if formatFlag == "" {
		return loader.FormatUnknown, nil
	}
	f := loader.ParseFormat(formatFlag)
	if f == loader.FormatUnknown {
		return f, fmt.Errorf("unknown format %q", formatFlag)
	}
	return f, nil
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			slog.Info("interrupted, stopping")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
