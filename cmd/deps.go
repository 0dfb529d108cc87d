package cmd

import (
	"context"
	"fmt"

	gcsclient "cloud.google.com/go/storage"
	pubsubclient "cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/pmercier/upc-harvester/internal/dataset"
	datasetpg "github.com/pmercier/upc-harvester/internal/dataset/postgres"
	"github.com/pmercier/upc-harvester/internal/download"
	collytransport "github.com/pmercier/upc-harvester/internal/fetcher/colly"
	"github.com/pmercier/upc-harvester/internal/harvest"
	"github.com/pmercier/upc-harvester/internal/hash/sha256"
	"github.com/pmercier/upc-harvester/internal/publisher/pubsub"
	"github.com/pmercier/upc-harvester/internal/storage"
	"github.com/pmercier/upc-harvester/internal/storage/gcs"
	"github.com/pmercier/upc-harvester/internal/storage/local"
)

// newDatasetStore builds the configured dataset backend. The returned
// cleanup func is always safe to call.
func newDatasetStore(ctx context.Context) (harvest.Store, func(), error) {
	policy := dataset.DedupPolicy(cfg.Dataset.DedupPolicy)
	switch cfg.Dataset.Backend {
	case "postgres":
		store, err := datasetpg.New(ctx, datasetpg.Config{
			DSN:    cfg.Dataset.DSN,
			Table:  cfg.Dataset.Table,
			Policy: policy,
		})
		if err != nil {
			return nil, func() {}, fmt.Errorf("init postgres dataset store: %w", err)
		}
		return store, store.Close, nil
	default:
		store, err := dataset.NewFileStore(cfg.Dataset.Path, policy)
		if err != nil {
			return nil, func() {}, fmt.Errorf("init dataset store: %w", err)
		}
		return store, func() {}, nil
	}
}

// newBlobStore builds the artifact store: local disk, optionally mirrored
// to a GCS bucket.
func newBlobStore(ctx context.Context) (storage.BlobStore, error) {
	blobs, err := local.New(local.Config{BaseDir: cfg.Download.Dir})
	if err != nil {
		return nil, fmt.Errorf("init document store: %w", err)
	}
	if cfg.Download.GCSBucket == "" {
		return blobs, nil
	}
	client, err := gcsclient.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("init gcs client: %w", err)
	}
	mirror, err := gcs.New(client, gcs.Config{Bucket: cfg.Download.GCSBucket})
	if err != nil {
		return nil, fmt.Errorf("init gcs mirror: %w", err)
	}
	return &storage.Mirror{
		Primary:   blobs,
		Secondary: mirror,
		OnSecondaryError: func(path string, err error) {
			logger.Warn("gcs mirror write failed", zap.String("path", path), zap.Error(err))
		},
	}, nil
}

// newDownloadManager wires the document acquisition stage.
func newDownloadManager(ctx context.Context) (*download.Manager, error) {
	blobs, err := newBlobStore(ctx)
	if err != nil {
		return nil, err
	}
	transport := collytransport.New(collytransport.Config{
		UserAgent: cfg.Harvest.UserAgent,
		Timeout:   cfg.Download.Timeout(),
	})
	return download.New(transport, blobs, sha256.New(), download.Config{
		Concurrency: cfg.Download.Concurrency,
		MaxAttempts: cfg.Download.MaxAttempts,
		RetryDelay:  cfg.Download.RetryDelay(),
		Timeout:     cfg.Download.Timeout(),
		UserAgent:   cfg.Harvest.UserAgent,
	}), nil
}

// newPublisher builds the run-summary publisher, or nil when unconfigured.
func newPublisher(ctx context.Context) (harvest.Publisher, error) {
	if cfg.Publisher.Topic == "" {
		return nil, nil
	}
	client, err := pubsubclient.NewClient(ctx, cfg.Publisher.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("init pubsub client: %w", err)
	}
	return pubsub.New(client)
}
