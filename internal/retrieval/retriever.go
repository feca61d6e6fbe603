// Package retrieval finds passages relevant to a query and collapses nested verse spans.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/ayat/internal/embedding"
	"github.com/hyperjump/ayat/internal/models"
	"github.com/hyperjump/ayat/internal/storage"
	"github.com/hyperjump/ayat/internal/vector"
)

// Defaults used when Options fields are zero.
const (
	DefaultTopK          = 10
	DefaultMinSimilarity = 0.2
)

var (
	// ErrInvalidInput is returned for an empty query or a non-positive top-k.
	ErrInvalidInput = errors.New("invalid retrieval input")
	// ErrEmbedding wraps failures of the embedding function.
	ErrEmbedding = errors.New("query embedding failed")
	// ErrSearch wraps vector index failures.
	ErrSearch = errors.New("vector search failed")
)

// Options controls a single retrieval.
type Options struct {
	TopK int
	// MinSimilarity is a strict lower bound: hits scoring exactly this value are dropped.
	MinSimilarity float64
}

// Retriever embeds a query, searches the vector index and maps hits to passages.
type Retriever struct {
	embedder embedding.Embedder
	index    vector.VectorIndex
	store    storage.PassageStore
	defaults Options
	logger   *zap.Logger
}

// DefaultOptions returns DefaultTopK and DefaultMinSimilarity.
func DefaultOptions() Options {
	return Options{TopK: DefaultTopK, MinSimilarity: DefaultMinSimilarity}
}

// NewRetriever creates a retriever. A zero TopK falls back to DefaultTopK.
// MinSimilarity is used as given, so zero keeps every positive score; start
// from DefaultOptions for the usual threshold.
func NewRetriever(embedder embedding.Embedder, index vector.VectorIndex, store storage.PassageStore, defaults Options, logger *zap.Logger) *Retriever {
	if defaults.TopK == 0 {
		defaults.TopK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		store:    store,
		defaults: defaults,
		logger:   logger,
	}
}

// Defaults returns the options used by Retrieve.
func (r *Retriever) Defaults() Options {
	return r.defaults
}

// Retrieve runs RetrieveWithOptions with the configured defaults.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.Passage, error) {
	return r.RetrieveWithOptions(ctx, query, r.defaults)
}

// RetrieveWithOptions returns passages whose similarity to query is strictly
// above opts.MinSimilarity, in descending similarity order, at most opts.TopK.
// An empty result is not an error.
func (r *Retriever) RetrieveWithOptions(ctx context.Context, query string, opts Options) ([]models.Passage, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidInput)
	}
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidInput, opts.TopK)
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	hits, err := r.index.Search(ctx, vec, opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearch, err)
	}

	passages := FilterHits(hits, opts.MinSimilarity, r.store)
	r.logger.Debug("retrieved passages",
		zap.Int("hits", len(hits)),
		zap.Int("kept", len(passages)),
		zap.Int("top_k", opts.TopK),
		zap.Float64("min_similarity", opts.MinSimilarity),
	)
	return passages, nil
}

// FilterHits drops hits with similarity <= minSimilarity, then hits whose row
// is outside the store, and maps the rest to passages preserving hit order.
// Rows dropped by the threshold are never looked up.
//
// Scores are compared at float32, the precision both index types compute
// in, so a hit scoring float32(0.2) does not clear a 0.2 threshold.
func FilterHits(hits []models.SearchHit, minSimilarity float64, store storage.PassageStore) []models.Passage {
	threshold := float32(minSimilarity)
	passages := make([]models.Passage, 0, len(hits))
	for _, h := range hits {
		if float32(h.Similarity) <= threshold {
			continue
		}
		if h.Row < 0 || h.Row >= store.Len() {
			continue
		}
		p, ok := store.Get(h.Row)
		if !ok {
			continue
		}
		passages = append(passages, p)
	}
	return passages
}
