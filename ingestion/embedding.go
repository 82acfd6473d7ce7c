package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/chronicler/ai"
	"github.com/poiesic/chronicler/core"
)

// embedBatcher turns chunks into vectors in bounded batches, retrying each
// batch on transient embedding API failures.
type embedBatcher struct {
	embedder    ai.Embedder
	batchSize   int
	maxRetries  int
	retryDelay  time.Duration
	callTimeout time.Duration
}

// embedBatch returns one vector per chunk, in chunk order. Each attempt
// runs under callTimeout so a hung API call is retried instead of blocking
// the worker.
func (b *embedBatcher) embedBatch(ctx context.Context, chunks []*core.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, b.callTimeout)
		defer cancel()

		var embedErr error
		vectors, embedErr = b.embedder.EmbedTexts(attemptCtx, texts)
		return embedErr
	}, b.maxRetries, b.retryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to embed batch of %d chunks: %w", len(chunks), err)
	}

	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding result mismatch: expected %d, received %d", len(chunks), len(vectors))
	}
	return vectors, nil
}

// batches splits chunks into slices of at most batchSize.
func (b *embedBatcher) batches(chunks []*core.Chunk) [][]*core.Chunk {
	var out [][]*core.Chunk
	for start := 0; start < len(chunks); start += b.batchSize {
		end := min(start+b.batchSize, len(chunks))
		out = append(out, chunks[start:end])
	}
	return out
}
