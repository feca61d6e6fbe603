// Package vector provides the read-only nearest-neighbour index over passage embeddings.
package vector

import (
	"context"

	"github.com/hyperjump/ayat/internal/models"
)

// VectorIndex searches passage embeddings by inner product. Row i of the index
// corresponds to row i of the passage store. Implementations are loaded once
// and must be safe for concurrent Search calls.
type VectorIndex interface {
	Search(ctx context.Context, query []float32, k int) ([]models.SearchHit, error)
	Size() int
	Dimensions() int
	Type() string
	Close() error
}
