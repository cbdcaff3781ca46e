package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/your-org/faceaccess/internal/config"
	"github.com/your-org/faceaccess/internal/observability"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "faceadmin",
	Short: "Manage the face access registry",
	Long: `faceadmin talks directly to the face access database. It enrolls
people in bulk from a directory of photos, applies schema migrations and
inspects the registry and the access log.

Settings come from the same YAML file and FACEACCESS_* environment
variables as the API server. A .env file in the working directory is
loaded when present.`,
	SilenceUsage: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (env and defaults only when empty)")
}

// loadConfig loads settings and sets up logging. Logs go to stderr so they
// don't interleave with command output.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}
