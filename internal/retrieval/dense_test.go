package retrieval

import (
	"errors"
	"math"
	"testing"
)

func TestDenseIndexRejectsMixedDims(t *testing.T) {
	_, err := NewDenseIndex([][]float32{{1, 0}, {1, 0, 0}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("want ErrDimensionMismatch, got %v", err)
	}
}

func TestDenseIndexRejectsEmptyBuild(t *testing.T) {
	if _, err := NewDenseIndex(nil); !errors.Is(err, ErrEmptyIndex) {
		t.Fatalf("want ErrEmptyIndex, got %v", err)
	}
	if _, err := NewDenseIndex([][]float32{{}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("want ErrDimensionMismatch for empty vector, got %v", err)
	}
}

func TestDenseSearchSelfMatchScoresOne(t *testing.T) {
	idx, err := NewDenseIndex([][]float32{{1, 2, 2}, {5, 5, 5}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res, err := idx.Search([]float32{1, 2, 2}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	got, ok := res[0]
	if !ok {
		t.Fatalf("nearest neighbor missing: %v", res)
	}
	if got != 1.0 {
		t.Fatalf("self match similarity = %v, want 1.0", got)
	}
}

func TestDenseSearchSimilarityTransform(t *testing.T) {
	idx, err := NewDenseIndex([][]float32{{0, 0}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res, err := idx.Search([]float32{3, 4}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	// distance is 5, so similarity must be 1/(1+5)
	want := 1.0 / 6.0
	if math.Abs(res[0]-want) > 1e-6 {
		t.Fatalf("similarity = %v, want %v", res[0], want)
	}
}

func TestDenseSearchRanksNearestAndClamps(t *testing.T) {
	idx, err := NewDenseIndex([][]float32{{0, 0}, {1, 0}, {5, 0}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res, err := idx.Search([]float32{0, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("got %d results, want 2", len(res))
	}
	if _, ok := res[0]; !ok {
		t.Fatalf("ordinal 0 missing: %v", res)
	}
	if _, ok := res[1]; !ok {
		t.Fatalf("ordinal 1 missing: %v", res)
	}
	if res[0] <= res[1] {
		t.Fatalf("closer chunk must score higher: %v", res)
	}

	all, err := idx.Search([]float32{0, 0}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("k beyond index size must clamp to %d, got %d", 3, len(all))
	}
}

func TestDenseSearchQueryDimMismatch(t *testing.T) {
	idx, err := NewDenseIndex([][]float32{{1, 0, 0}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := idx.Search([]float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("want ErrDimensionMismatch, got %v", err)
	}
}

func TestDenseSearchNonPositiveK(t *testing.T) {
	idx, err := NewDenseIndex([][]float32{{1, 0}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res, err := idx.Search([]float32{1, 0}, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res) != 0 {
		t.Fatalf("k=0 must return nothing, got %v", res)
	}
}
