// Package download acquires decision documents for harvested records. It is
// the only parallel stage of the pipeline: a fixed worker pool drains a task
// queue of independent per-URL fetch-and-save jobs, joined by an explicit
// completion barrier before results flow back to the dataset.
package download

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pmercier/upc-harvester/internal/harvest"
	"github.com/pmercier/upc-harvester/internal/storage"
)

// Outcome labels reported to the observer.
const (
	outcomeOK      = "ok"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

const pdfContentType = "application/pdf"

// Config controls Manager behavior.
type Config struct {
	// Concurrency is the worker pool size.
	Concurrency int
	// MaxAttempts bounds fetches per URL; at least one attempt is made.
	MaxAttempts int
	// RetryDelay is the fixed pause between attempts. No backoff: the
	// upstream is a single court site, not a fleet.
	RetryDelay time.Duration
	// Timeout applies to each individual attempt.
	Timeout time.Duration
	// UserAgent is sent with every document request.
	UserAgent string
}

// Manager downloads documents for records that carry a document URL.
type Manager struct {
	transport harvest.Transport
	blobs     storage.BlobStore
	hasher    harvest.Hasher
	cfg       Config
}

// New constructs a Manager.
func New(transport harvest.Transport, blobs storage.BlobStore, hasher harvest.Hasher, cfg Config) *Manager {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Manager{
		transport: transport,
		blobs:     blobs,
		hasher:    hasher,
		cfg:       cfg,
	}
}

// taskOutcome is the per-task result, attributed by index rather than by
// completion order.
type taskOutcome struct {
	label   string
	retries int
}

// AcquireAll fetches the document for every record with a document URL and
// returns the records with LocalPath filled in on success. A target already
// present on disk counts as success without a network request. Individual
// failures degrade that one record; the batch always runs to completion.
func (m *Manager) AcquireAll(ctx context.Context, run *harvest.RunContext, records []harvest.Record) []harvest.Record {
	results := make([]harvest.Record, len(records))
	copy(results, records)
	outcomes := make([]taskOutcome, len(records))

	tasks := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < m.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				outcomes[i] = m.acquire(ctx, run, &results[i])
			}
		}()
	}
	for i := range results {
		tasks <- i
	}
	close(tasks)
	wg.Wait()

	// Tally only after the barrier; workers share nothing but their own
	// slice slots.
	for _, o := range outcomes {
		for r := 0; r < o.retries; r++ {
			run.Observer.DownloadRetried()
		}
		switch o.label {
		case outcomeOK:
			run.Counters.DownloadsOK++
			run.Observer.DownloadFinished(outcomeOK)
		case outcomeSkipped:
			run.Counters.DownloadsCached++
			run.Observer.DownloadFinished(outcomeSkipped)
		case outcomeFailed:
			run.Counters.DownloadsFailed++
			run.Observer.DownloadFinished(outcomeFailed)
		}
	}
	return results
}

func (m *Manager) acquire(ctx context.Context, run *harvest.RunContext, record *harvest.Record) taskOutcome {
	if record.DocumentURL == "" {
		return taskOutcome{}
	}
	name := TargetName(*record)

	exists, err := m.blobs.Exists(ctx, name)
	if err != nil {
		run.Logger.Warn("artifact existence check failed", zap.String("target", name), zap.Error(err))
	} else if exists {
		record.LocalPath = m.blobs.Location(name)
		return taskOutcome{label: outcomeSkipped}
	}

	body, res := m.fetch(ctx, run, record.DocumentURL)
	if !res.ok {
		run.Logger.Warn("document download failed",
			zap.String("url", record.DocumentURL),
			zap.Int("attempts", res.attempts),
			zap.String("reason", res.reason),
		)
		return taskOutcome{label: outcomeFailed, retries: res.attempts - 1}
	}

	location, err := m.blobs.PutObject(ctx, name, pdfContentType, body)
	if err != nil {
		run.Logger.Error("artifact write failed", zap.String("target", name), zap.Error(err))
		return taskOutcome{label: outcomeFailed, retries: res.attempts - 1}
	}
	record.LocalPath = location
	if m.hasher != nil {
		if digest, err := m.hasher.Hash(body); err == nil {
			record.ContentSHA256 = digest
		}
	}
	return taskOutcome{label: outcomeOK, retries: res.attempts - 1}
}

// fetchResult is an explicit retry outcome: callers can tell exhausted
// retries apart from other failures without inspecting error types.
type fetchResult struct {
	ok       bool
	attempts int
	reason   string
}

func (m *Manager) fetch(ctx context.Context, run *harvest.RunContext, url string) ([]byte, fetchResult) {
	headers := http.Header{}
	if m.cfg.UserAgent != "" {
		headers.Set("User-Agent", m.cfg.UserAgent)
	}

	var reason string
	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, fetchResult{attempts: attempt, reason: "canceled"}
		}
		status, body, err := m.transport.Get(ctx, url, m.cfg.Timeout, headers)
		switch {
		case err != nil:
			reason = fmt.Sprintf("transport: %v", err)
		case status < 200 || status > 299:
			reason = fmt.Sprintf("status %d", status)
		default:
			return body, fetchResult{ok: true, attempts: attempt}
		}
		run.Logger.Debug("download attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.String("reason", reason),
		)
		if attempt < m.cfg.MaxAttempts {
			m.pause(ctx)
		}
	}
	return nil, fetchResult{attempts: m.cfg.MaxAttempts, reason: "retries exhausted: " + reason}
}

func (m *Manager) pause(ctx context.Context) {
	if m.cfg.RetryDelay <= 0 {
		return
	}
	t := time.NewTimer(m.cfg.RetryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// TargetName derives the deterministic artifact filename for a record from
// its sanitized date, parties, registry and court. Identical metadata always
// maps to the same name, which is what makes re-runs idempotent.
func TargetName(r harvest.Record) string {
	parts := []string{
		Sanitize(r.Date),
		Sanitize(r.Parties),
		Sanitize(strings.Join(r.Registry, " ")),
		Sanitize(r.Court),
	}
	joined := strings.Trim(strings.Join(parts, "_"), "_")
	if joined == "" {
		joined = "document"
	}
	return joined + ".pdf"
}

// Sanitize keeps alphanumerics, '-' and '_', maps spaces to '_' and strips
// everything else, so no path separators or punctuation leak into
// filenames.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	return b.String()
}
