package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pmercier/upc-harvester/internal/index"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rebuilds the full-text index from downloaded documents",
		RunE:  runIndex,
	}
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, closeStore, err := newDatasetStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	existing, err := store.Load(ctx)
	if err != nil {
		return err
	}

	idx, err := index.Open(cfg.Index.Dir)
	if err != nil {
		return err
	}
	defer idx.Close()

	indexed, err := idx.IndexDataset(ctx, existing, logger)
	if err != nil {
		return fmt.Errorf("index dataset: %w", err)
	}
	logger.Info("index updated",
		zap.Int("indexed", indexed),
		zap.Int("dataset_size", existing.Len()),
	)
	return nil
}
