package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pmercier/upc-harvester/internal/clock/system"
	"github.com/pmercier/upc-harvester/internal/fetcher/headless"
	"github.com/pmercier/upc-harvester/internal/harvest"
	"github.com/pmercier/upc-harvester/internal/id/uuid"
	"github.com/pmercier/upc-harvester/internal/metrics"
)

func newHarvestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Walks the decisions listing and updates the dataset",
		Long: `Resumes from the highest page already persisted, walks listing pages
until the configured empty-page or error threshold, optionally downloads
the decision documents, then merges and persists the dataset. An aborted
run still persists everything gathered before the failures.`,
		RunE: runHarvest,
	}
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, closeStore, err := newDatasetStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	session, err := headless.NewSession(headless.Config{
		UserAgent:         cfg.Harvest.UserAgent,
		RowSelector:       cfg.Harvest.RowSelector,
		NavigationTimeout: cfg.Harvest.NavTimeout(),
	})
	if err != nil {
		return fmt.Errorf("start browser session: %w", err)
	}
	defer session.Close()

	var downloader harvest.Downloader
	if cfg.Harvest.DownloadAfter {
		manager, err := newDownloadManager(ctx)
		if err != nil {
			return err
		}
		downloader = manager
	}

	publisher, err := newPublisher(ctx)
	if err != nil {
		return err
	}

	runID, err := uuid.New().NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	run := harvest.NewRunContext(runID, logger, metrics.NewObserver(), system.New())

	runner := harvest.NewRunner(
		store,
		session,
		harvest.NewExtractor(cfg.Harvest.BaseURL),
		downloader,
		publisher,
		cfg.Publisher.Topic,
		cfg.Harvest.BaseURL,
		run,
	)
	summary, err := runner.Execute(ctx, harvest.Thresholds{
		MaxEmptyPages: cfg.Harvest.MaxEmptyPages,
		MaxErrors:     cfg.Harvest.MaxErrors,
		WaitTimeout:   cfg.Harvest.WaitTimeout(),
	})
	if err != nil {
		return err
	}
	metrics.ObserveRun(string(summary.Reason))
	metrics.SetDatasetSize(summary.DatasetSize)

	if summary.Reason == harvest.ReasonAborted {
		// The dataset is persisted; the exit code still reflects the
		// truncated run.
		return fmt.Errorf("harvest aborted after repeated page failures (kept %d records)", summary.DatasetSize)
	}
	logger.Info("harvest complete", zap.Int("dataset_size", summary.DatasetSize))
	return nil
}
