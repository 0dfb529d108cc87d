// Package dataset persists the harvested decision dataset and owns the
// merge/dedup step that keeps it idempotent across runs.
package dataset

import (
	"sort"

	"github.com/pmercier/upc-harvester/internal/harvest"
)

// DedupPolicy selects which record survives when two share a key.
type DedupPolicy string

// Supported tie-break policies. Observed upstream behavior is ambiguous
// between the two, so the choice is explicit configuration rather than a
// silent default baked into the merge.
const (
	KeepFirst DedupPolicy = "keep-first"
	KeepLast  DedupPolicy = "keep-last"
)

// Valid reports whether p names a known policy.
func (p DedupPolicy) Valid() bool {
	return p == KeepFirst || p == KeepLast
}

// Merge concatenates old and new records and deduplicates by record key,
// keeping exactly one record per key according to policy. The result is
// stable-sorted by page index so the resume point stays well-defined.
// Merge is idempotent: merging the same records twice yields the same
// dataset.
func Merge(old harvest.Dataset, records []harvest.Record, policy DedupPolicy) harvest.Dataset {
	combined := make([]harvest.Record, 0, len(old.Records)+len(records))
	combined = append(combined, old.Records...)
	combined = append(combined, records...)

	byKey := make(map[string]int, len(combined))
	kept := make([]harvest.Record, 0, len(combined))
	for _, r := range combined {
		key := r.Key()
		if at, seen := byKey[key]; seen {
			if policy == KeepLast {
				kept[at] = r
			}
			continue
		}
		byKey[key] = len(kept)
		kept = append(kept, r)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].PageIndex < kept[j].PageIndex
	})
	return harvest.Dataset{Records: kept}
}
