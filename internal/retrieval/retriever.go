package retrieval

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"docqa/internal/llm"
	"docqa/internal/models"
)

// Retriever bundles one document's chunks with its dense and sparse
// indexes. Built once per ingest and treated as immutable afterwards.
type Retriever struct {
	chunks []models.Chunk
	dense  *DenseIndex
	sparse *SparseIndex
	emb    llm.Embedder
	model  string
	doc    models.DocumentInfo
}

// New builds the aggregate from pre-embedded chunks. vectors[i] must be the
// embedding of chunks[i].
func New(chunks []models.Chunk, vectors [][]float32, emb llm.Embedder, model string, doc models.DocumentInfo) (*Retriever, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyIndex
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: %d chunks but %d vectors", ErrDimensionMismatch, len(chunks), len(vectors))
	}
	dense, err := NewDenseIndex(vectors)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	doc.ChunkCount = len(chunks)
	return &Retriever{
		chunks: chunks,
		dense:  dense,
		sparse: NewSparseIndex(texts),
		emb:    emb,
		model:  model,
		doc:    doc,
	}, nil
}

// Search embeds the query, runs dense and sparse retrieval concurrently and
// fuses the two score maps into the final ranking.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	var denseRes, sparseRes map[int]float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vecs, err := r.emb.Embeddings(gctx, r.model, []string{query})
		if err != nil {
			return err
		}
		if len(vecs) != 1 {
			return fmt.Errorf("%w: got %d query vectors", llm.ErrUnavailable, len(vecs))
		}
		denseRes, err = r.dense.Search(vecs[0], k)
		return err
	})
	g.Go(func() error {
		sparseRes = r.sparse.Search(query, k)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := Fuse(denseRes, sparseRes, k)
	for i := range out {
		out[i].Text = r.chunks[out[i].Ordinal].Text
	}
	return out, nil
}

// Document reports the ingested document's metadata.
func (r *Retriever) Document() models.DocumentInfo { return r.doc }

func (r *Retriever) ChunkCount() int { return len(r.chunks) }

func (r *Retriever) release() {
	if r.dense != nil {
		r.dense.Release()
	}
}
