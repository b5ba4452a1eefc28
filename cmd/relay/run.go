package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"helmsman-ai/relay/pkg/client"
	"helmsman-ai/relay/pkg/config"
	"helmsman-ai/relay/pkg/costs"
	"helmsman-ai/relay/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watch         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay runtime",
	Long: `Start the relay runtime with the specified configuration.

The runtime launches the health-check and pause-recovery loops, opens the
cost ledger when enabled, and serves monitoring endpoints (Prometheus
metrics, liveness, dashboard, and cost export) on the configured address.

Examples:
  # Start with default config
  relay run

  # Start with custom config
  relay run --config /etc/relay/config.yaml

  # Override the monitoring listen address
  relay run --listen 0.0.0.0:9090

  # Validate config without starting
  relay run --dry-run`,
	RunE: runRuntime,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override monitoring listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", true, "reload budget limits and strategy on config file changes")
}

func runRuntime(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		cfg.Metrics.ListenAddr = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if _, err := logging.Setup(cfg.Logging); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := client.Initialize(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize runtime: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown error", "error", err)
		}
	}()

	fmt.Printf("✓ Runtime initialized (%d providers configured)\n", len(cfg.Providers))
	if len(cfg.EnabledProviders()) == 0 {
		slog.Warn("no providers enabled")
	}

	if runFlags.watch {
		watcher, err := config.NewWatcher(cfgFile, func(next *config.Config) {
			c.ApplyRuntimeConfig(next)
		})
		if err != nil {
			slog.Warn("config watch unavailable", "error", err)
		} else {
			watcher.Start(ctx)
			slog.Info("watching config for changes", "path", cfgFile)
		}
	}

	srv := &http.Server{
		Addr:              cfg.Metrics.ListenAddr,
		Handler:           monitoringMux(c, cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("monitoring server listening", "address", cfg.Metrics.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	fmt.Printf("✓ Monitoring endpoints on http://%s\n", cfg.Metrics.ListenAddr)
	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case err := <-errChan:
		return fmt.Errorf("monitoring server: %w", err)
	case <-ctx.Done():
	}

	fmt.Println("\nShutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server shutdown error", "error", err)
	}
	return nil
}

// monitoringMux builds the ops surface: metrics, liveness, readiness,
// dashboard, and cost export.
func monitoringMux(c *client.Client, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	if collector := c.Metrics(); collector != nil {
		mux.Handle("/metrics", collector.Handler())
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if c.IsPipelinePaused() {
			http.Error(w, "pipeline paused", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	mux.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(c.Dashboard()); err != nil {
			slog.Warn("dashboard encode failed", "error", err)
		}
	})

	mux.HandleFunc("/api/costs/export", func(w http.ResponseWriter, r *http.Request) {
		format := costs.Format(r.URL.Query().Get("format"))
		if format == "" {
			format = costs.FormatJSON
		}

		data, err := c.ExportCostData(format)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		switch format {
		case costs.FormatCSV:
			w.Header().Set("Content-Type", "text/csv")
		default:
			w.Header().Set("Content-Type", "application/json")
		}
		w.Write(data)
	})

	return mux
}
