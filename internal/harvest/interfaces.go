package harvest

import (
	"context"
	"net/http"
	"time"
)

// PageFetcher is the single stateful browser session that delivers listing
// pages. Implementations are not safe for concurrent use; the pagination
// loop drives one session sequentially.
type PageFetcher interface {
	Navigate(ctx context.Context, url string) error
	// WaitForRows blocks until the listing table has rendered at least one
	// row, or the timeout elapses. A timeout is returned as an error and
	// feeds the pagination error counter.
	WaitForRows(ctx context.Context, timeout time.Duration) error
	ExtractRows(ctx context.Context) ([]RawRow, error)
}

// Transport performs one document GET. Used by the download stage only.
type Transport interface {
	Get(ctx context.Context, url string, timeout time.Duration, headers http.Header) (status int, body []byte, err error)
}

// Store owns the persisted dataset for the duration of a run.
type Store interface {
	Load(ctx context.Context) (Dataset, error)
	Merge(old Dataset, records []Record) Dataset
	Persist(ctx context.Context, d Dataset) error
}

// Publisher pushes run summaries to an external topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for downloaded document bodies.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (swapped out in tests).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
