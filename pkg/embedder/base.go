// Package embedder provides interfaces for text embedding providers.
//
// Providers turn raw text into dense feature vectors that the estimator
// then trains on like any other feature matrix.
package embedder

import (
	"context"
	"fmt"
)

// Provider defines the interface for embedding providers.
type Provider interface {
	// Embed converts a text string into a vector embedding.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch converts multiple text strings into vector embeddings.
	//
	// The result has one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the dimension of embedding vectors produced by this provider.
	Dimensions() int

	// Close closes the provider and releases resources.
	Close() error
}

// EmbedAll embeds texts in chunks of at most batchSize, preserving order.
// A non-positive batchSize sends everything in one request.
func EmbedAll(ctx context.Context, p Provider, texts []string, batchSize int) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 || batchSize > len(texts) {
		batchSize = len(texts)
	}

	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := p.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed texts %d-%d: %w", start, end-1, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embed texts %d-%d: got %d vectors", start, end-1, len(vecs))
		}
		out = append(out, vecs...)
	}
	return out, nil
}
