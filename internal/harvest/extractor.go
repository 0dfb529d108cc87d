package harvest

import (
	"net/url"
	"strings"
	"time"
)

// Table rows with fewer cells than this are malformed and skipped.
const minRowCells = 6

// Listing dates look like "4 March 2024".
const listingDateLayout = "2 January 2006"

// Dates are persisted as DD/MM/YYYY.
const datasetDateLayout = "02/01/2006"

// Cell positions within a listing row.
const (
	cellDate = iota
	cellRegistry
	cellCourt
	cellActionType
	cellParties
	cellDocument
)

// registryBoilerplate marks registry-cell lines that belong to the details
// link, not to a docket number.
const registryBoilerplate = "Full Details"

// Extractor turns raw listing rows into Records. It is pure: no I/O, never
// an error. Malformed rows are dropped, malformed fields degrade to their
// raw form.
type Extractor struct {
	base *url.URL
}

// NewExtractor builds an Extractor that resolves relative links against
// baseURL. An unparseable baseURL leaves links as found.
func NewExtractor(baseURL string) *Extractor {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}
	return &Extractor{base: base}
}

// Extract converts one page of raw rows into records tagged with pageIndex.
func (e *Extractor) Extract(rows []RawRow, pageIndex int) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		if len(row.Cells) < minRowCells {
			continue
		}
		records = append(records, Record{
			Date:           normalizeDate(row.Cells[cellDate]),
			Registry:       registryLines(row.Cells[cellRegistry]),
			FullDetailsURL: e.resolve(row.FullDetailsHref),
			Court:          strings.TrimSpace(row.Cells[cellCourt]),
			ActionType:     strings.TrimSpace(row.Cells[cellActionType]),
			Parties:        strings.TrimSpace(row.Cells[cellParties]),
			DocumentURL:    e.resolve(row.DocumentHref),
			PageIndex:      pageIndex,
		})
	}
	return records
}

// normalizeDate reformats a listing date, keeping the raw text verbatim when
// it does not parse. Unparseable dates are data, not errors.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	parsed, err := time.Parse(listingDateLayout, raw)
	if err != nil {
		return raw
	}
	return parsed.Format(datasetDateLayout)
}

// registryLines splits the registry cell into docket numbers, discarding
// empty lines and the details-link boilerplate.
func registryLines(cell string) []string {
	lines := make([]string, 0, 2)
	for _, line := range strings.Split(cell, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, registryBoilerplate) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// resolve makes href absolute against the listing base URL. Absent links and
// garbage hrefs resolve to the empty string or the raw href respectively.
func (e *Extractor) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() || e.base == nil {
		return ref.String()
	}
	return e.base.ResolveReference(ref).String()
}
