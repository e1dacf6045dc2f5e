package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logflow/logvar/pkg/config"
)

var saveConfig bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging config files, .env, the
environment and flags. With --save it is written to ~/.logvar/config.yaml.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&saveConfig, "save", false, "Write the effective configuration to the user config file")
}

func runConfig(cmd *cobra.Command, args []string) error {
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(data); err != nil {
		return err
	}

	if !saveConfig {
		return nil
	}
	path, err := config.UserConfigPath()
	if err != nil {
		return err
	}
	m := config.NewManager()
	*m.Get() = *cfg
	if err := m.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Saved to %s\n", path)
	return nil
}
