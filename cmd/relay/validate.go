package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"helmsman-ai/relay/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load a configuration file, apply defaults and environment variable
overrides, and report whether the result is valid.

Examples:
  # Validate the default config
  relay validate

  # Validate a specific file
  relay validate --config /etc/relay/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
	fmt.Printf("  Providers: %d configured, %d enabled\n",
		len(cfg.Providers), len(cfg.EnabledProviders()))
	fmt.Printf("  Strategy:  %s\n", cfg.Routing.Strategy)
	if cfg.Budget.DailyLimit > 0 {
		fmt.Printf("  Budget:    $%.2f/day\n", cfg.Budget.DailyLimit)
	}
	if verbose {
		for _, p := range cfg.Providers {
			state := "disabled"
			if p.Enabled {
				state = "enabled"
			}
			fmt.Printf("  - %s (%s, priority %d, model %s)\n",
				p.Name, state, p.Priority, p.Model)
		}
	}
	return nil
}
