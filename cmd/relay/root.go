package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay - multi-provider LLM routing and resilience runtime",
	Long: `Relay routes text-generation requests across interchangeable backend
providers with automatic fallback, budget enforcement, and health tracking.

It provides:
  - Strategy-based provider ordering (fail-fast, retry-primary,
    round-robin, cost-optimized, smart-fallback)
  - Per-provider sliding-window rate limits and circuit breakers
  - Calendar-period cost budgets with threshold alerts and a durable
    cost ledger
  - Background health monitoring with alerting
  - A stable, classified error taxonomy regardless of backend`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
