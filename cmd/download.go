package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pmercier/upc-harvester/internal/clock/system"
	"github.com/pmercier/upc-harvester/internal/harvest"
	"github.com/pmercier/upc-harvester/internal/id/uuid"
	"github.com/pmercier/upc-harvester/internal/metrics"
)

func newDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Downloads documents for records already in the dataset",
		Long: `Fetches the decision document for every dataset record that has a
document URL. Documents already on disk are skipped, so re-running after
a partial failure only fetches what is missing.`,
		RunE: runDownload,
	}
}

func runDownload(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, closeStore, err := newDatasetStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	manager, err := newDownloadManager(ctx)
	if err != nil {
		return err
	}

	existing, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if existing.Len() == 0 {
		logger.Info("dataset is empty, nothing to download")
		return nil
	}

	runID, err := uuid.New().NewID()
	if err != nil {
		return err
	}
	run := harvest.NewRunContext(runID, logger, metrics.NewObserver(), system.New())

	updated := manager.AcquireAll(ctx, run, existing.Records)
	merged := store.Merge(harvest.Dataset{}, updated)
	if err := store.Persist(ctx, merged); err != nil {
		return err
	}

	logger.Info("download complete",
		zap.Int("downloaded", run.Counters.DownloadsOK),
		zap.Int("already_present", run.Counters.DownloadsCached),
		zap.Int("failed", run.Counters.DownloadsFailed),
	)
	return nil
}
