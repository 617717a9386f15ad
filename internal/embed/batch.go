// Package embed fans chunk texts out to the embedding provider in bounded
// concurrent batches.
package embed

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"docqa/internal/llm"
)

// MaxBatchSize caps how many inputs go to the provider in one request.
const MaxBatchSize = 100

// Batcher slices inputs into provider-sized batches, embeds them on a
// bounded worker pool and reassembles the vectors in input order. A failure
// in any batch fails the whole call: partial results never escape.
type Batcher struct {
	emb     llm.Embedder
	model   string
	workers int
}

func New(emb llm.Embedder, model string, workers int) *Batcher {
	if workers <= 0 {
		workers = 1
	}
	return &Batcher{emb: emb, model: model, workers: workers}
}

// Embed returns one vector per input, in input order.
func (b *Batcher) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for start := 0; start < len(inputs); start += MaxBatchSize {
		start := start
		end := start + MaxBatchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		g.Go(func() error {
			vecs, err := b.emb.Embeddings(ctx, b.model, inputs[start:end])
			if err != nil {
				return err
			}
			if len(vecs) != end-start {
				return fmt.Errorf("%w: got %d vectors for %d inputs", llm.ErrUnavailable, len(vecs), end-start)
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
