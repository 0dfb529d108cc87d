// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesTotal       *prometheus.CounterVec
	recordsTotal     prometheus.Counter
	downloadsTotal   *prometheus.CounterVec
	downloadRetries  prometheus.Counter
	runsTotal        *prometheus.CounterVec
	datasetSize      prometheus.Gauge
	searchAPIQueries prometheus.Counter

	once sync.Once
)

// Init registers the collectors against the default registry. It is safe to
// call multiple times.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_pages_total",
				Help: "Listing pages processed, labeled by outcome (ok, empty, error).",
			},
			[]string{"outcome"},
		)
		recordsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_records_extracted_total",
				Help: "Records extracted from listing pages.",
			},
		)
		downloadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_downloads_total",
				Help: "Document downloads, labeled by outcome (ok, skipped, failed).",
			},
			[]string{"outcome"},
		)
		downloadRetries = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_download_retries_total",
				Help: "Download attempts beyond the first.",
			},
		)
		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_runs_total",
				Help: "Harvest runs, labeled by terminal reason.",
			},
			[]string{"reason"},
		)
		datasetSize = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_dataset_records",
				Help: "Records in the persisted dataset after the last merge.",
			},
		)
		searchAPIQueries = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_search_queries_total",
				Help: "Queries served by the search API.",
			},
		)
	})
}

// Handler returns an http.Handler exposing the Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Observer adapts the collectors to the pipeline's Observer interface.
type Observer struct{}

// NewObserver initializes the collectors and returns an Observer.
func NewObserver() *Observer {
	Init()
	return &Observer{}
}

// PageFetched counts one processed listing page.
func (Observer) PageFetched(outcome string) {
	pagesTotal.WithLabelValues(outcome).Inc()
}

// RecordsExtracted counts extracted records.
func (Observer) RecordsExtracted(n int) {
	recordsTotal.Add(float64(n))
}

// DownloadFinished counts one settled download task.
func (Observer) DownloadFinished(outcome string) {
	downloadsTotal.WithLabelValues(outcome).Inc()
}

// DownloadRetried counts one retry attempt.
func (Observer) DownloadRetried() {
	downloadRetries.Inc()
}

// ObserveRun counts a finished run by terminal reason.
func ObserveRun(reason string) {
	Init()
	runsTotal.WithLabelValues(reason).Inc()
}

// SetDatasetSize records the persisted dataset size.
func SetDatasetSize(n int) {
	Init()
	datasetSize.Set(float64(n))
}

// ObserveSearchQuery counts one search API query.
func ObserveSearchQuery() {
	Init()
	searchAPIQueries.Inc()
}
