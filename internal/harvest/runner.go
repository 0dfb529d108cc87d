package harvest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Downloader is the document acquisition stage.
type Downloader interface {
	AcquireAll(ctx context.Context, run *RunContext, records []Record) []Record
}

// Runner executes one full harvesting run: resume, paginate, download,
// merge, persist. Every exit path attempts to persist what was gathered.
type Runner struct {
	store      Store
	fetcher    PageFetcher
	extractor  *Extractor
	downloader Downloader
	publisher  Publisher
	topic      string
	baseURL    string
	run        *RunContext
}

// NewRunner wires a Runner. downloader and publisher may be nil to skip
// those stages.
func NewRunner(
	store Store,
	fetcher PageFetcher,
	extractor *Extractor,
	downloader Downloader,
	publisher Publisher,
	topic string,
	baseURL string,
	run *RunContext,
) *Runner {
	return &Runner{
		store:      store,
		fetcher:    fetcher,
		extractor:  extractor,
		downloader: downloader,
		publisher:  publisher,
		topic:      topic,
		baseURL:    baseURL,
		run:        run,
	}
}

// Summary is the run report published and logged after persistence.
type Summary struct {
	RunID        string         `json:"run_id"`
	Reason       TerminalReason `json:"reason"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	StartPage    int            `json:"start_page"`
	NewRecords   int            `json:"new_records"`
	DatasetSize  int            `json:"dataset_size"`
	Counters     RunCounters    `json:"counters"`
}

// Execute performs the run. The returned Summary is valid even when err is
// non-nil: an abort surfaces in Reason while the persisted dataset keeps
// whatever was gathered.
func (r *Runner) Execute(ctx context.Context, th Thresholds) (Summary, error) {
	started := r.run.Clock.Now()

	existing, err := r.store.Load(ctx)
	if err != nil {
		return Summary{RunID: r.run.RunID}, fmt.Errorf("load dataset: %w", err)
	}
	startPage := existing.StartPage()
	r.run.Logger.Info("run starting",
		zap.Int("existing_records", existing.Len()),
		zap.Int("start_page", startPage),
	)

	paginator := NewPaginator(r.fetcher, r.extractor, r.baseURL, r.run)
	records, reason := paginator.Run(ctx, startPage, th)
	r.run.Logger.Info("pagination finished",
		zap.String("reason", string(reason)),
		zap.Int("new_records", len(records)),
	)

	if r.downloader != nil && len(records) > 0 {
		records = r.downloader.AcquireAll(ctx, r.run, records)
	}

	merged := r.store.Merge(existing, records)
	if persistErr := r.store.Persist(ctx, merged); persistErr != nil {
		return Summary{RunID: r.run.RunID, Reason: reason}, fmt.Errorf("persist dataset: %w", persistErr)
	}

	summary := Summary{
		RunID:       r.run.RunID,
		Reason:      reason,
		StartedAt:   started,
		FinishedAt:  r.run.Clock.Now(),
		StartPage:   startPage,
		NewRecords:  len(records),
		DatasetSize: merged.Len(),
		Counters:    r.run.Counters,
	}
	r.publishSummary(ctx, summary)

	log := r.run.Logger.Info
	if reason == ReasonAborted {
		log = r.run.Logger.Error
	}
	log("run finished",
		zap.String("reason", string(reason)),
		zap.Int("new_records", summary.NewRecords),
		zap.Int("dataset_size", summary.DatasetSize),
	)
	return summary, nil
}

func (r *Runner) publishSummary(ctx context.Context, summary Summary) {
	if r.publisher == nil || r.topic == "" {
		return
	}
	if _, err := r.publisher.Publish(ctx, r.topic, summary); err != nil {
		// A lost notification never fails the run; the dataset is already
		// safe on disk.
		r.run.Logger.Warn("run summary publish failed", zap.Error(err))
	}
}
