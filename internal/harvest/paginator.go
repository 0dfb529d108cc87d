package harvest

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Observer outcome labels for page fetches.
const (
	pageOutcomeOK    = "ok"
	pageOutcomeEmpty = "empty"
	pageOutcomeError = "error"
)

// Paginator walks the listing pages sequentially, tolerating a bounded run
// of failures and stopping once the listing trails off into empty pages.
// The page fetcher is a single stateful session; Run never touches it from
// more than one goroutine.
type Paginator struct {
	fetcher   PageFetcher
	extractor *Extractor
	baseURL   string
	run       *RunContext
}

// NewPaginator wires a Paginator over one fetcher session.
func NewPaginator(fetcher PageFetcher, extractor *Extractor, baseURL string, run *RunContext) *Paginator {
	return &Paginator{
		fetcher:   fetcher,
		extractor: extractor,
		baseURL:   baseURL,
		run:       run,
	}
}

// Run fetches and parses pages starting at startPage until a terminal
// condition. Whatever records were accumulated before an abort are still
// returned; a failed run is a short run, never data loss.
func (p *Paginator) Run(ctx context.Context, startPage int, th Thresholds) ([]Record, TerminalReason) {
	var (
		records    []Record
		emptyCount int
		errorCount int
	)

	for page := startPage; ; page++ {
		if ctx.Err() != nil {
			p.run.Logger.Warn("pagination canceled", zap.Int("page", page))
			return records, ReasonCanceled
		}

		url := PageURL(p.baseURL, page)
		if err := p.loadPage(ctx, url, th); err != nil {
			errorCount++
			p.run.Counters.PageErrors++
			p.run.Observer.PageFetched(pageOutcomeError)
			p.run.Logger.Error("page load failed",
				zap.Int("page", page),
				zap.Int("consecutive_errors", errorCount),
				zap.Int("max_errors", th.MaxErrors),
				zap.Error(err),
			)
			if errorCount >= th.MaxErrors {
				p.run.Logger.Error("maximum consecutive errors reached, aborting")
				return records, ReasonAborted
			}
			// The page is treated as unrecoverable: advance rather than
			// retry in place, trading one page of records for forward
			// progress.
			continue
		}
		errorCount = 0

		rows, err := p.fetcher.ExtractRows(ctx)
		if err != nil {
			errorCount++
			p.run.Counters.PageErrors++
			p.run.Observer.PageFetched(pageOutcomeError)
			p.run.Logger.Error("row extraction failed", zap.Int("page", page), zap.Error(err))
			if errorCount >= th.MaxErrors {
				return records, ReasonAborted
			}
			continue
		}

		p.run.Counters.PagesFetched++
		pageRecords := p.extractor.Extract(rows, page)
		if len(pageRecords) == 0 {
			emptyCount++
			p.run.Counters.PagesEmpty++
			p.run.Observer.PageFetched(pageOutcomeEmpty)
			p.run.Logger.Info("page empty",
				zap.Int("page", page),
				zap.Int("consecutive_empty", emptyCount),
				zap.Int("max_empty_pages", th.MaxEmptyPages),
			)
			if emptyCount >= th.MaxEmptyPages {
				p.run.Logger.Info("maximum empty pages reached, stopping pagination")
				return records, ReasonStopped
			}
			continue
		}

		emptyCount = 0
		records = append(records, pageRecords...)
		p.run.Counters.RecordsFound += len(pageRecords)
		p.run.Observer.PageFetched(pageOutcomeOK)
		p.run.Observer.RecordsExtracted(len(pageRecords))
		p.run.Logger.Info("page parsed",
			zap.Int("page", page),
			zap.Int("records", len(pageRecords)),
		)
	}
}

func (p *Paginator) loadPage(ctx context.Context, url string, th Thresholds) error {
	if err := p.fetcher.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.fetcher.WaitForRows(ctx, th.WaitTimeout); err != nil {
		return fmt.Errorf("wait for listing table: %w", err)
	}
	return nil
}

// PageURL builds the listing URL for a zero-based page index. Page zero is
// the bare base URL.
func PageURL(base string, page int) string {
	if page <= 0 {
		return base
	}
	return fmt.Sprintf("%s?page=%d", base, page)
}
