package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/contre95/pew/src/features/config"
	"github.com/contre95/pew/src/features/hosting"
	"github.com/contre95/pew/src/features/logging"
	"github.com/contre95/pew/src/features/metrics"
	"github.com/contre95/pew/src/features/watching"
	"github.com/contre95/pew/src/infra/database"
	"github.com/contre95/pew/src/infra/process"
	"github.com/contre95/pew/src/infra/queue"
	"github.com/contre95/pew/src/infra/watcher"
	"github.com/contre95/pew/src/reload"
	"github.com/spf13/cobra"
)

var (
	configPath string
	genConfig  bool
)

var rootCmd = &cobra.Command{
	Use:   "pew",
	Short: "Watch a directory and restart a script when its files change",
	Long: `pew watches the configured directories, and when a matching file changes
it stops the running script (SIGTERM, then SIGKILL after a timeout) and
starts it again. Bursts of changes are folded into a single restart.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to config file (.toml, .yaml)")
	rootCmd.Flags().BoolVarP(&genConfig, "gen-config", "g", false, "Generate a default config file and exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("pew stopped", "error", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if genConfig {
		if err := config.GenerateDefault(configPath); err != nil {
			return err
		}
		fmt.Printf("Default configuration file generated at %s\n", configPath)
		return nil
	}

	// Load configuration
	path := config.FindPath(configPath, cmd.Flags().Changed("config"))
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	cfgManager := config.NewManager(path, cfg)

	// Setup default logger with slog
	logger := logging.SetupLogger(cfg.LogLevel(), cfg.Logger.Format)
	slog.SetDefault(logger)
	logger.Info("Configuration loaded", "path", path)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Process history
	var history reload.History
	if cfg.History.Path != "" {
		db, err := database.NewSqliteHistory(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
		history = db
	} else {
		history = queue.NewInMemoryHistory()
	}

	recorder := metrics.NewRecorder()
	runner := watching.NewRunner(cfgManager, process.NewExecSpawner(logger), logger,
		watching.WithMetrics(recorder),
		watching.WithHistory(history),
	)

	// Reload the configuration when its file changes
	if cfg.ReloadConfig {
		cfgWatcher, err := watcher.NewFileWatcher(path, watcher.DefaultSettle, logger)
		if err != nil {
			return fmt.Errorf("failed to watch config file: %w", err)
		}
		if err := cfgWatcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to watch config file: %w", err)
		}
		defer cfgWatcher.Stop()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-cfgWatcher.Events():
					logger.Info("Config file changed, reloading", "path", ev.Path)
					runner.Reload()
				}
			}
		}()
	}

	// Status server
	if cfg.Status.Enabled {
		handler := watching.NewHandler(runner, history, cfg.History.Limit)
		server := hosting.NewServer(cfgManager, handler, recorder, logger)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("Status server stopped", "error", err)
			}
		}()
		defer func() {
			if err := server.Shutdown(); err != nil {
				logger.Warn("Failed to shut down status server", "error", err)
			}
		}()
	}

	if err := exitError(runner.Run(ctx)); err != nil {
		return err
	}
	logger.Info("Shut down cleanly")
	return nil
}

// exitError turns the result of a run into the error main reports before
// exiting with status 1. A nil result is a clean shutdown.
func exitError(err error) error {
	var spawnErr *reload.SpawnError
	var exited *reload.ProcessExited
	switch {
	case err == nil:
		return nil
	case errors.As(err, &spawnErr):
		return fmt.Errorf("could not start %s: %w", spawnErr.Command, spawnErr.Err)
	case errors.As(err, &exited):
		return fmt.Errorf("%s exited: code %d signal %q", exited.Command, exited.Status.Code, exited.Status.Signal)
	default:
		return err
	}
}
