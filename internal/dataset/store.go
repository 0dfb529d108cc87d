package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pmercier/upc-harvester/internal/harvest"
)

// Dataset column names. Older files may miss trailing columns added in
// later versions; Load backfills them as empty.
const (
	colDate        = "date"
	colRegistry    = "registry"
	colFullDetails = "full_details"
	colCourt       = "court"
	colActionType  = "action_type"
	colParties     = "parties"
	colDocumentURL = "document_url"
	colLocalPath   = "local_path"
	colContentSHA  = "content_sha256"
	colPageIndex   = "page_index"
)

var columns = []string{
	colDate,
	colRegistry,
	colFullDetails,
	colCourt,
	colActionType,
	colParties,
	colDocumentURL,
	colLocalPath,
	colContentSHA,
	colPageIndex,
}

// FileStore persists the dataset as a CSV file. The file is read once at
// the start of a run and replaced atomically at the end; no locking beyond
// replace-on-write is needed.
type FileStore struct {
	path   string
	policy DedupPolicy
}

// NewFileStore builds a FileStore over path with the given dedup policy.
func NewFileStore(path string, policy DedupPolicy) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("dataset path is required")
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("unknown dedup policy %q", policy)
	}
	return &FileStore{path: path, policy: policy}, nil
}

// Load reads the persisted dataset. A missing file yields an empty dataset;
// files written by older versions without the newer columns load with those
// fields empty.
func (s *FileStore) Load(_ context.Context) (harvest.Dataset, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return harvest.Dataset{}, nil
		}
		return harvest.Dataset{}, fmt.Errorf("open dataset %s: %w", s.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return harvest.Dataset{}, fmt.Errorf("read dataset %s: %w", s.path, err)
	}
	if len(rows) == 0 {
		return harvest.Dataset{}, nil
	}

	index := headerIndex(rows[0])
	records := make([]harvest.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, rowToRecord(row, index))
	}
	return harvest.Dataset{Records: records}, nil
}

// Merge delegates to the package merge with the store's policy.
func (s *FileStore) Merge(old harvest.Dataset, records []harvest.Record) harvest.Dataset {
	return Merge(old, records, s.policy)
}

// Persist writes the dataset atomically: the new content lands in a temp
// file in the same directory and replaces the old file via rename, so a
// crash mid-save never corrupts the previously valid dataset.
func (s *FileStore) Persist(_ context.Context, d harvest.Dataset) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create dataset dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp dataset file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := writeCSV(tmp, d); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp dataset file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace dataset %s: %w", s.path, err)
	}
	return nil
}

func writeCSV(f *os.File, d harvest.Dataset) error {
	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write dataset header: %w", err)
	}
	for _, r := range d.Records {
		row := []string{
			r.Date,
			r.RegistryText(),
			r.FullDetailsURL,
			r.Court,
			r.ActionType,
			r.Parties,
			r.DocumentURL,
			r.LocalPath,
			r.ContentSHA256,
			strconv.Itoa(r.PageIndex),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write dataset row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush dataset: %w", err)
	}
	return nil
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.ToLower(name))] = i
	}
	return index
}

func rowToRecord(row []string, index map[string]int) harvest.Record {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	r := harvest.Record{
		Date:           field(colDate),
		FullDetailsURL: field(colFullDetails),
		Court:          field(colCourt),
		ActionType:     field(colActionType),
		Parties:        field(colParties),
		DocumentURL:    field(colDocumentURL),
		LocalPath:      field(colLocalPath),
		ContentSHA256:  field(colContentSHA),
	}
	if registry := field(colRegistry); registry != "" {
		r.Registry = strings.Split(registry, "\n")
	}
	if page, err := strconv.Atoi(strings.TrimSpace(field(colPageIndex))); err == nil && page >= 0 {
		r.PageIndex = page
	}
	return r
}
