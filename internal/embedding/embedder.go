// Package embedding turns query text into vectors comparable with the passage index.
package embedding

import (
	"context"
	"errors"
)

// ErrEmbeddingFailed is wrapped by remote embedders when the provider call fails.
var ErrEmbeddingFailed = errors.New("embedding generation failed")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}
