// Package harvest defines the core types shared across the harvesting pipeline.
package harvest

import (
	"strings"
	"time"
)

// Record is one harvested decision entry with its document reference.
type Record struct {
	// Date holds the decision date formatted as DD/MM/YYYY, or the raw
	// listing text verbatim when it does not parse.
	Date           string   `json:"date"`
	Registry       []string `json:"registry"`
	FullDetailsURL string   `json:"full_details_url"`
	Court          string   `json:"court"`
	ActionType     string   `json:"action_type"`
	Parties        string   `json:"parties"`
	DocumentURL    string   `json:"document_url"`
	// LocalPath is set only after the document has been downloaded.
	LocalPath string `json:"local_path,omitempty"`
	// ContentSHA256 is the hex digest of the downloaded document body.
	ContentSHA256 string `json:"content_sha256,omitempty"`
	// PageIndex is the zero-based listing page the record was found on.
	PageIndex int `json:"page_index"`
}

// Key returns the deduplication key: the registry lines joined with the
// document URL. Two persisted records never share a key.
func (r Record) Key() string {
	return strings.Join(r.Registry, "\n") + "\x00" + r.DocumentURL
}

// RegistryText returns the registry lines as a single newline-joined string,
// the form used in the persisted dataset.
func (r Record) RegistryText() string {
	return strings.Join(r.Registry, "\n")
}

// Dataset is the ordered collection of persisted records.
type Dataset struct {
	Records []Record
}

// StartPage computes the resume point: one past the highest page index seen,
// or zero for an empty dataset.
func (d Dataset) StartPage() int {
	start := 0
	for _, r := range d.Records {
		if r.PageIndex+1 > start {
			start = r.PageIndex + 1
		}
	}
	return start
}

// Len returns the number of records in the dataset.
func (d Dataset) Len() int {
	return len(d.Records)
}

// RawRow is one table row as delivered by the page fetcher, before any
// interpretation. Cells holds the visible text of each <td>; the two href
// fields carry link targets exactly as they appear in the DOM, possibly
// relative.
type RawRow struct {
	Cells           []string `json:"cells"`
	FullDetailsHref string   `json:"full_details_href"`
	DocumentHref    string   `json:"document_href"`
}

// TerminalReason describes why a pagination run ended.
type TerminalReason string

// Pagination terminal states.
const (
	// ReasonStopped is the normal termination: the listing trailed off into
	// consecutive empty pages.
	ReasonStopped TerminalReason = "stopped"
	// ReasonAborted means the consecutive error threshold was reached.
	// Records accumulated before the failures are still returned.
	ReasonAborted TerminalReason = "aborted"
	// ReasonCanceled means the surrounding context ended the run.
	ReasonCanceled TerminalReason = "canceled"
)

// Thresholds bounds the pagination loop's tolerance for failures.
type Thresholds struct {
	// MaxEmptyPages stops the run after this many consecutive zero-record
	// pages.
	MaxEmptyPages int
	// MaxErrors aborts the run after this many consecutive page failures.
	MaxErrors int
	// WaitTimeout bounds the wait for the listing table on each page.
	WaitTimeout time.Duration
}

// RunCounters tracks per-run statistics reported in the summary.
type RunCounters struct {
	PagesFetched    int `json:"pages_fetched"`
	PagesEmpty      int `json:"pages_empty"`
	PageErrors      int `json:"page_errors"`
	RecordsFound    int `json:"records_found"`
	DownloadsOK     int `json:"downloads_ok"`
	DownloadsCached int `json:"downloads_cached"`
	DownloadsFailed int `json:"downloads_failed"`
}

// Result is the outcome of one harvesting run.
type Result struct {
	Records  []Record
	Reason   TerminalReason
	Counters RunCounters
}
