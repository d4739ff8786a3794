package main

import (
	"fmt"
	"os"

	"configurator/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newLogger builds the process logger from the configured level and mode.
func newLogger(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.LogDevelopment {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zcfg.Level = level
	return zcfg.Build()
}

// cli carries the state shared by every command.
type cli struct {
	cfg      config.Config
	logger   *zap.Logger
	inMemory bool
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "configurator",
		Short: "Vehicle configurator order service",
		Long: `configurator serves the order configurator API: catalog, order drafts,
mock payment, order history with status tracking, and the admin dashboard.

Orders that cannot reach the database are kept in local storage and synced
back once the database is reachable again.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.cfg, c.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}
	rootCmd.PersistentFlags().BoolVar(&c.inMemory, "in-memory", false, "use in-process stores instead of the database and local files")

	rootCmd.AddCommand(
		c.serveCmd(),
		c.exportCmd(),
		c.statusCmd(),
		c.watchCmd(),
		c.syncCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
