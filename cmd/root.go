// Package cmd defines the CLI commands for the upc-harvester executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pmercier/upc-harvester/internal/config"
	"github.com/pmercier/upc-harvester/internal/logging"
)

var (
	cfgFile string

	// Initialized by the root command's PersistentPreRunE; every
	// subcommand runs with these in place.
	cfg    config.Config
	logger *zap.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upc-harvester",
		Short: "Harvests, stores and indexes Unified Patent Court decisions.",
		Long: `upc-harvester walks the UPC decisions listing page by page, maintains a
deduplicated local dataset across repeated runs, downloads the decision
documents and keeps a full-text search index over them.`,
		SilenceUsage: true,

		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err = logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(
		newHarvestCmd(),
		newDownloadCmd(),
		newIndexCmd(),
		newSearchCmd(),
		newServeCmd(),
	)
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
