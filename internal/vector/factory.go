package vector

import (
	"fmt"
	"os"

	"github.com/hyperjump/ayat/internal/models"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory loads a FAISS IndexFlatIP file into memory and searches it by brute force in Go.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS hands the file to libfaiss, so any FAISS index type works.
	// Requires FAISS library and build tag -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// Open loads the index file at path with the given index type.
// A missing file is reported as models.ErrResourceUnavailable.
// When dimensions is positive the loaded index must match it.
func Open(indexType, path string, dimensions int) (VectorIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: vector index path is empty", models.ErrResourceUnavailable)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: vector index file %q not found", models.ErrResourceUnavailable, path)
		}
		return nil, fmt.Errorf("stat vector index: %w", err)
	}

	var (
		idx VectorIndex
		err error
	)
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		idx, err = LoadMemoryIndex(path)
	case IndexTypeFAISS:
		idx, err = OpenFAISSIndex(path)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, faiss)", indexType)
	}
	if err != nil {
		return nil, err
	}
	if dimensions > 0 && idx.Dimensions() != dimensions {
		_ = idx.Close()
		return nil, fmt.Errorf("dimension mismatch: index has %d, embedder produces %d", idx.Dimensions(), dimensions)
	}
	return idx, nil
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
// This is determined by the build tag -tags=faiss.
func IsFAISSAvailable() bool {
	return faissCompiled
}
