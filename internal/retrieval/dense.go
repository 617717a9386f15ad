// Package retrieval implements the hybrid search core: an exact L2 vector
// index, an Okapi BM25 index, additive score fusion and the lifecycle
// manager that owns the single loaded document.
package retrieval

import (
	"errors"
	"fmt"
	"sort"

	"github.com/viant/vec/search"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrEmptyIndex        = errors.New("no vectors to index")
)

// DenseIndex holds one vector per chunk and answers exact nearest-neighbor
// queries by Euclidean distance.
type DenseIndex struct {
	dim  int
	vecs [][]float32
}

// NewDenseIndex validates that all vectors share one dimension.
func NewDenseIndex(vecs [][]float32) (*DenseIndex, error) {
	if len(vecs) == 0 {
		return nil, ErrEmptyIndex
	}
	dim := len(vecs[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: vector 0 is empty", ErrDimensionMismatch)
	}
	for i, v := range vecs {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dim %d, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return &DenseIndex{dim: dim, vecs: vecs}, nil
}

func (d *DenseIndex) Len() int { return len(d.vecs) }
func (d *DenseIndex) Dim() int { return d.dim }

// Search returns the k nearest chunks as ordinal -> similarity, with
// similarity = 1 / (1 + distance). Distance ties prefer the earlier chunk.
func (d *DenseIndex) Search(query []float32, k int) (map[int]float64, error) {
	if len(query) != d.dim {
		return nil, fmt.Errorf("%w: query has dim %d, index has %d", ErrDimensionMismatch, len(query), d.dim)
	}
	if k <= 0 || len(d.vecs) == 0 {
		return map[int]float64{}, nil
	}
	type cand struct {
		ord  int
		dist float32
	}
	q := search.Float32s(query)
	cands := make([]cand, len(d.vecs))
	for i, v := range d.vecs {
		cands[i] = cand{ord: i, dist: q.EuclideanDistance(v)}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].ord < cands[j].ord
	})
	if k > len(cands) {
		k = len(cands)
	}
	out := make(map[int]float64, k)
	for _, c := range cands[:k] {
		out[c.ord] = 1.0 / (1.0 + float64(c.dist))
	}
	return out, nil
}

// Release drops the vector storage. The manager calls this once a replaced
// index has no more readers.
func (d *DenseIndex) Release() {
	d.vecs = nil
}
