package harvest

import (
	"time"

	"go.uber.org/zap"
)

// Observer receives pipeline milestones, typically backed by Prometheus.
type Observer interface {
	PageFetched(outcome string)
	RecordsExtracted(n int)
	DownloadFinished(outcome string)
	DownloadRetried()
}

// RunContext carries per-run identity, logging and instrumentation through
// the pipeline stages. It replaces module-level loggers and counters; every
// stage receives it explicitly.
type RunContext struct {
	RunID    string
	Logger   *zap.Logger
	Observer Observer
	Clock    Clock
	Counters RunCounters
}

// NewRunContext builds a RunContext, substituting no-op collaborators for
// nil ones so pipeline code never guards.
func NewRunContext(runID string, logger *zap.Logger, obs Observer, clock Clock) *RunContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	if obs == nil {
		obs = nopObserver{}
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &RunContext{
		RunID:    runID,
		Logger:   logger.With(zap.String("run_id", runID)),
		Observer: obs,
		Clock:    clock,
	}
}

type nopObserver struct{}

func (nopObserver) PageFetched(string)     {}
func (nopObserver) RecordsExtracted(int)   {}
func (nopObserver) DownloadFinished(string) {}
func (nopObserver) DownloadRetried()       {}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
