package retrieval

import (
	"reflect"
	"testing"
)

func TestFuseUnionWithMissingSideZero(t *testing.T) {
	dense := map[int]float64{0: 1.0, 1: 0.5}
	sparse := map[int]float64{1: 2.0, 2: 0.3}
	got := Fuse(dense, sparse, 3)
	if len(got) != 3 {
		t.Fatalf("union must keep 3 candidates, got %v", got)
	}
	if got[0].Ordinal != 1 || got[0].Score != 2.5 {
		t.Fatalf("chunk 1 must lead with 0.5+2.0: %+v", got)
	}
	if got[1].Ordinal != 0 || got[1].Score != 1.0 {
		t.Fatalf("dense-only chunk keeps its raw score: %+v", got)
	}
	if got[2].Ordinal != 2 || got[2].Score != 0.3 {
		t.Fatalf("sparse-only chunk keeps its raw score: %+v", got)
	}
}

func TestFuseTieBreaksByOrdinal(t *testing.T) {
	dense := map[int]float64{7: 1.0}
	sparse := map[int]float64{2: 1.0}
	got := Fuse(dense, sparse, 2)
	if len(got) != 2 || got[0].Ordinal != 2 || got[1].Ordinal != 7 {
		t.Fatalf("equal scores must order by ordinal: %+v", got)
	}
}

func TestFuseTruncatesToK(t *testing.T) {
	sparse := map[int]float64{0: 3, 1: 2, 2: 1}
	got := Fuse(nil, sparse, 2)
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Ordinal != 0 || got[1].Ordinal != 1 {
		t.Fatalf("truncation must keep the best: %+v", got)
	}
}

func TestFuseDeterministic(t *testing.T) {
	dense := map[int]float64{0: 0.4, 3: 0.4, 5: 0.4}
	sparse := map[int]float64{1: 0.4, 2: 0.4}
	first := Fuse(dense, sparse, 5)
	for i := 0; i < 20; i++ {
		if again := Fuse(dense, sparse, 5); !reflect.DeepEqual(first, again) {
			t.Fatalf("fusion order varies across runs: %+v vs %+v", first, again)
		}
	}
	// all tied at 0.4: pure ordinal order
	for i, want := range []int{0, 1, 2, 3, 5} {
		if first[i].Ordinal != want {
			t.Fatalf("tied ranking wrong at %d: %+v", i, first)
		}
	}
}

func TestFuseEmptyInputs(t *testing.T) {
	if got := Fuse(nil, nil, 3); len(got) != 0 {
		t.Fatalf("nothing in, nothing out: %+v", got)
	}
	if got := Fuse(map[int]float64{1: 1}, nil, 0); got != nil {
		t.Fatalf("k=0 must return nil, got %+v", got)
	}
}
