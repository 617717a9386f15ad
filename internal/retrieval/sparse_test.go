package retrieval

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	got := Tokenize("Hello  WORLD\nfoo\tBar")
	want := []string{"hello", "world", "foo", "bar"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
	if len(Tokenize("   ")) != 0 {
		t.Fatalf("whitespace-only text must yield no tokens")
	}
}

func TestSparseSearchKeepsPositiveScoresOnly(t *testing.T) {
	idx := NewSparseIndex([]string{"the cat sat", "dogs bark loudly", "fish swim"})
	res := idx.Search("crocodile", 5)
	if len(res) != 0 {
		t.Fatalf("absent term must score nothing, got %v", res)
	}
}

func TestSparseRareTermRanksItsChunkFirst(t *testing.T) {
	idx := NewSparseIndex([]string{
		"alpha beta gamma delta",
		"beta gamma zebra delta",
		"alpha gamma delta beta",
	})
	res := idx.Search("zebra", 3)
	if len(res) != 1 {
		t.Fatalf("only the containing chunk may score, got %v", res)
	}
	score, ok := res[1]
	if !ok || score <= 0 {
		t.Fatalf("chunk 1 must carry a positive score, got %v", res)
	}
}

func TestSparseHigherTermFrequencyScoresHigher(t *testing.T) {
	idx := NewSparseIndex([]string{
		"cat cat cat",
		"cat cat dog",
		"cat dog dog",
		"fish only here",
	})
	res := idx.Search("cat", 2)
	if len(res) != 2 {
		t.Fatalf("want top 2, got %v", res)
	}
	if _, ok := res[2]; ok {
		t.Fatalf("lowest-tf chunk must be trimmed at k=2: %v", res)
	}
	if res[0] <= res[1] {
		t.Fatalf("tf=3 chunk must outscore tf=2 chunk: %v", res)
	}
}

func TestSparseSearchCaseInsensitive(t *testing.T) {
	idx := NewSparseIndex([]string{"the zebra grazes"})
	res := idx.Search("ZEBRA", 1)
	if len(res) != 1 || res[0] <= 0 {
		t.Fatalf("case-folded match expected, got %v", res)
	}
}

func TestSparseSearchEmptyQueryAndEmptyIndex(t *testing.T) {
	idx := NewSparseIndex([]string{"some text"})
	if res := idx.Search("", 3); len(res) != 0 {
		t.Fatalf("empty query must match nothing, got %v", res)
	}
	if res := idx.Search("   ", 3); len(res) != 0 {
		t.Fatalf("blank query must match nothing, got %v", res)
	}
	empty := NewSparseIndex(nil)
	if res := empty.Search("anything", 3); len(res) != 0 {
		t.Fatalf("empty index must match nothing, got %v", res)
	}
}
