// Package index maintains the full-text search index over downloaded
// decision documents.
package index

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/pmercier/upc-harvester/internal/harvest"
)

// Dates inside the dataset use DD/MM/YYYY.
const datasetDateLayout = "02/01/2006"

// Index wraps a bleve index keyed by artifact path, mirroring the dataset's
// "one document per downloaded decision" shape.
type Index struct {
	idx bleve.Index
}

// Open opens the index at dir, creating it when absent.
func Open(dir string) (*Index, error) {
	idx, err := bleve.Open(dir)
	if err == nil {
		return &Index{idx: idx}, nil
	}
	if err != bleve.ErrorIndexPathDoesNotExist {
		return nil, fmt.Errorf("open index %s: %w", dir, err)
	}
	idx, err = bleve.New(dir, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create index %s: %w", dir, err)
	}
	return &Index{idx: idx}, nil
}

// Close releases the index.
func (i *Index) Close() error {
	return i.idx.Close()
}

func buildMapping() *mapping.IndexMappingImpl {
	mapping := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	dateField := bleve.NewDateTimeFieldMapping()
	doc.AddFieldMappingsAt("date", dateField)

	for _, name := range []string{"registry", "parties", "court", "action"} {
		doc.AddFieldMappingsAt(name, bleve.NewTextFieldMapping())
	}
	content := bleve.NewTextFieldMapping()
	content.Store = false
	doc.AddFieldMappingsAt("content", content)

	mapping.DefaultMapping = doc
	return mapping
}

// IndexRecord upserts one record with its extracted document text. The
// artifact path is the document ID, so re-indexing the same dataset updates
// in place.
func (i *Index) IndexRecord(rec harvest.Record, text string) error {
	if rec.LocalPath == "" {
		return fmt.Errorf("record has no local artifact")
	}
	doc := map[string]any{
		"registry": rec.RegistryText(),
		"parties":  rec.Parties,
		"court":    rec.Court,
		"action":   rec.ActionType,
		"content":  text,
	}
	// An unparseable date stays out of the index; the record itself keeps
	// its raw text in the dataset.
	if dt, err := time.Parse(datasetDateLayout, rec.Date); err == nil {
		doc["date"] = dt
	}
	if err := i.idx.Index(rec.LocalPath, doc); err != nil {
		return fmt.Errorf("index %s: %w", rec.LocalPath, err)
	}
	return nil
}

// IndexDataset extracts text from every record's downloaded artifact and
// indexes it. Records without an artifact on local disk are skipped, not
// errors.
func (i *Index) IndexDataset(ctx context.Context, d harvest.Dataset, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	indexed := 0
	for _, rec := range d.Records {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		if rec.LocalPath == "" {
			continue
		}
		if _, err := os.Stat(rec.LocalPath); err != nil {
			logger.Debug("artifact missing, skipping", zap.String("path", rec.LocalPath))
			continue
		}
		text, err := ExtractText(rec.LocalPath)
		if err != nil {
			logger.Warn("text extraction failed", zap.String("path", rec.LocalPath), zap.Error(err))
			continue
		}
		if err := i.IndexRecord(rec, text); err != nil {
			return indexed, err
		}
		indexed++
	}
	return indexed, nil
}

// Hit is one search result.
type Hit struct {
	Path     string  `json:"path"`
	Date     string  `json:"date,omitempty"`
	Registry string  `json:"registry"`
	Parties  string  `json:"parties"`
	Court    string  `json:"court"`
	Action   string  `json:"action"`
	Score    float64 `json:"score"`
}

// Search runs a query string over the indexed fields, optionally bounded by
// a date range. Zero times leave the corresponding bound open.
func (i *Index) Search(ctx context.Context, query string, start, end time.Time, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 50
	}
	var full bleveQuery.Query = bleve.NewQueryStringQuery(query)
	if !start.IsZero() || !end.IsZero() {
		dr := bleve.NewDateRangeQuery(start, end)
		dr.SetField("date")
		full = bleve.NewConjunctionQuery(full, dr)
	}

	req := bleve.NewSearchRequestOptions(full, limit, 0, false)
	req.Fields = []string{"date", "registry", "parties", "court", "action"}
	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{
			Path:     h.ID,
			Registry: stringField(h.Fields, "registry"),
			Parties:  stringField(h.Fields, "parties"),
			Court:    stringField(h.Fields, "court"),
			Action:   stringField(h.Fields, "action"),
			Score:    h.Score,
		}
		if raw := stringField(h.Fields, "date"); raw != "" {
			if dt, err := time.Parse(time.RFC3339, raw); err == nil {
				hit.Date = dt.Format("2006-01-02")
			} else {
				hit.Date = raw
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func stringField(fields map[string]any, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}
