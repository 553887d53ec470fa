// Package dedup merges recommendations that refer to the same underlying
// opportunity, reported independently by more than one provider.
package dedup

import (
	"hash/fnv"
	"io"
	"sort"

	"github.com/opscart/cost-advisor/pkg/models"
)

// Key builds a stable hash over (service, category, sorted resource ids).
// Records sharing a key describe the same opportunity.
func Key(rec *models.CostRecommendation) uint64 {
	ids := rec.ResourceIDs()
	sort.Strings(ids)

	h := fnv.New64a()
	io.WriteString(h, rec.Service)
	io.WriteString(h, "\x00")
	io.WriteString(h, string(rec.Category))
	for _, id := range ids {
		io.WriteString(h, "\x00")
		io.WriteString(h, id)
	}
	return h.Sum64()
}

// Merge collapses duplicates, retaining the record with the higher
// monthly savings. On a savings tie the first-seen record stays. Output
// preserves first-occurrence order.
func Merge(recs []models.CostRecommendation) []models.CostRecommendation {
	out := make([]models.CostRecommendation, 0, len(recs))
	position := make(map[uint64]int, len(recs))

	for _, rec := range recs {
		key := Key(&rec)
		if idx, seen := position[key]; seen {
			if rec.MonthlySavings > out[idx].MonthlySavings {
				out[idx] = rec
			}
			continue
		}
		position[key] = len(out)
		out = append(out, rec)
	}

	return out
}
