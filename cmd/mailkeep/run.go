package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"mailkeep-hq/mailkeep/pkg/cli"
	"mailkeep-hq/mailkeep/pkg/config"
	"mailkeep-hq/mailkeep/pkg/engine"
	"mailkeep-hq/mailkeep/pkg/server"
	"mailkeep-hq/mailkeep/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watch         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Mailkeep daemon",
	Long: `Start the Mailkeep daemon with the specified configuration.

The daemon reconciles any jobs interrupted by the previous shutdown,
starts the scheduled, continuous, and event-triggered cleanup loops,
and serves the status API.

Examples:
  # Start with default config
  mailkeep run

  # Start with custom config
  mailkeep run --config /etc/mailkeep/config.yaml

  # Override the status server address
  mailkeep run --listen 0.0.0.0:8385

  # Validate config without starting the daemon
  mailkeep run --dry-run

  # Reload engine settings when the config file changes
  mailkeep run --watch`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override status server listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the daemon")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "reload engine settings on config file changes")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, closeLog, err := logging.Setup(logging.Config{
		Level:           cfg.Telemetry.Logging.Level,
		Format:          cfg.Telemetry.Logging.Format,
		Output:          cfg.Telemetry.Logging.Output,
		RedactAddresses: true,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	defer closeLog()

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx := cli.SetupSignalHandler()

	var metrics *engine.Metrics
	if cfg.Telemetry.MetricsEnabled == nil || *cfg.Telemetry.MetricsEnabled {
		metrics = engine.NewMetrics()
	}

	a, err := buildApp(ctx, cfg, metrics, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer a.Close()

	if err := a.engine.Start(ctx); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("starting engine: %w", err))
	}
	defer a.engine.Stop()

	fmt.Printf("✓ Policies loaded (%d policies)\n", len(a.registry.List()))
	fmt.Println("✓ Cleanup engine started")

	errChan := make(chan error, 1)

	if cfg.Server.Enabled == nil || *cfg.Server.Enabled {
		var metricsHandler http.Handler
		if metrics != nil {
			metricsHandler = promhttp.Handler()
		}
		srv, err := server.NewServer(&cfg.Server, server.Dependencies{
			Engine:   a.engine,
			Store:    a.store,
			Registry: a.registry,
			Checker:  a.checker,
			Metrics:  metricsHandler,
			Logger:   logger,
		})
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		go func() {
			if err := srv.Start(ctx); err != nil {
				errChan <- fmt.Errorf("status server: %w", err)
			}
		}()
		fmt.Printf("✓ Status server listening on %s\n", cfg.Server.ListenAddress)
		fmt.Printf("✓ Health endpoint: http://%s/healthz\n", cfg.Server.ListenAddress)
		if metricsHandler != nil {
			fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Server.ListenAddress)
		}
	}

	if runFlags.watch {
		watcher, err := config.NewFileWatcher(cfgFile, logger)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		go func() {
			err := watcher.Watch(ctx, func() error {
				fresh, err := config.LoadConfigWithEnvOverrides(cfgFile)
				if err != nil {
					return err
				}
				return a.engine.UpdateConfiguration(ctx, engineConfigFrom(&fresh.Engine))
			})
			if err != nil {
				logger.Error("config watcher exited", "error", err)
			}
		}()
		fmt.Println("✓ Watching configuration for changes")
	}

	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case <-ctx.Done():
		fmt.Println("\nShutdown signal received, stopping gracefully...")
	}
	return nil
}
