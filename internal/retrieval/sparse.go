package retrieval

import (
	"math"
	"sort"
	"strings"
)

// Okapi BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// SparseIndex scores chunks with Okapi BM25 over lowercased whitespace
// tokens.
type SparseIndex struct {
	docTF  []map[string]int
	docLen []int
	df     map[string]int
	avgLen float64
	n      int
}

func NewSparseIndex(chunks []string) *SparseIndex {
	s := &SparseIndex{df: make(map[string]int), n: len(chunks)}
	total := 0
	for _, c := range chunks {
		toks := Tokenize(c)
		tf := make(map[string]int, len(toks))
		for _, t := range toks {
			tf[t]++
		}
		for t := range tf {
			s.df[t]++
		}
		s.docTF = append(s.docTF, tf)
		s.docLen = append(s.docLen, len(toks))
		total += len(toks)
	}
	if s.n > 0 {
		s.avgLen = float64(total) / float64(s.n)
	}
	return s
}

// Tokenize lowercases text and splits it on whitespace.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Search scores every chunk against the query, keeps strictly positive
// scores only and returns the top k as ordinal -> score. Score ties prefer
// the earlier chunk.
func (s *SparseIndex) Search(query string, k int) map[int]float64 {
	toks := Tokenize(query)
	if len(toks) == 0 || s.n == 0 || k <= 0 {
		return map[int]float64{}
	}
	type cand struct {
		ord   int
		score float64
	}
	var cands []cand
	for i := 0; i < s.n; i++ {
		if score := s.score(toks, i); score > 0 {
			cands = append(cands, cand{ord: i, score: score})
		}
	}
	sort.Slice(cands, func(a, b int) bool {
		if cands[a].score != cands[b].score {
			return cands[a].score > cands[b].score
		}
		return cands[a].ord < cands[b].ord
	})
	if k > len(cands) {
		k = len(cands)
	}
	out := make(map[int]float64, k)
	for _, c := range cands[:k] {
		out[c.ord] = c.score
	}
	return out
}

func (s *SparseIndex) score(queryToks []string, ord int) float64 {
	tf := s.docTF[ord]
	dl := float64(s.docLen[ord])
	var score float64
	for _, t := range queryToks {
		f := float64(tf[t])
		if f == 0 {
			continue
		}
		df := float64(s.df[t])
		idf := math.Log(1 + (float64(s.n)-df+0.5)/(df+0.5))
		denom := f + bm25K1*(1-bm25B+bm25B*dl/s.avgLen)
		score += idf * f * (bm25K1 + 1) / denom
	}
	return score
}
