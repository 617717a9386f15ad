package retrieval

import (
	"sort"

	"docqa/internal/models"
)

// Fuse combines dense similarities and sparse scores over the union of
// their candidates. The fused score is the raw sum; a side that did not
// surface a chunk contributes zero. No normalization is applied: BM25
// scores are allowed to dominate when a query term is rare and literal.
// Ties rank the earlier chunk first so results are deterministic.
func Fuse(dense, sparse map[int]float64, k int) []models.ScoredChunk {
	if k <= 0 {
		return nil
	}
	combined := make(map[int]float64, len(dense)+len(sparse))
	for ord, s := range dense {
		combined[ord] += s
	}
	for ord, s := range sparse {
		combined[ord] += s
	}
	out := make([]models.ScoredChunk, 0, len(combined))
	for ord, s := range combined {
		out = append(out, models.ScoredChunk{Ordinal: ord, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Ordinal < out[j].Ordinal
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
