// Package storage loads the passage table that backs the vector index.
package storage

import (
	"context"
	"fmt"

	"github.com/hyperjump/ayat/internal/models"
)

// Passage table formats.
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// PassageStore maps vector index rows to passages. It is loaded once and
// never mutated, so concurrent readers need no locking.
type PassageStore interface {
	// Get returns the passage at row; ok is false when row is out of range.
	Get(row int) (models.Passage, bool)
	Len() int
	All() []models.Passage
}

// SliceStore is a PassageStore backed by an in-memory slice.
type SliceStore struct {
	passages []models.Passage
}

// NewSliceStore copies passages into a store and assigns RowIndex from position.
func NewSliceStore(passages []models.Passage) *SliceStore {
	cp := make([]models.Passage, len(passages))
	copy(cp, passages)
	for i := range cp {
		cp[i].RowIndex = i
	}
	return &SliceStore{passages: cp}
}

// Get returns the passage at row.
func (s *SliceStore) Get(row int) (models.Passage, bool) {
	if row < 0 || row >= len(s.passages) {
		return models.Passage{}, false
	}
	return s.passages[row], true
}

// Len returns the number of rows.
func (s *SliceStore) Len() int {
	return len(s.passages)
}

// All returns a copy of every passage in row order.
func (s *SliceStore) All() []models.Passage {
	cp := make([]models.Passage, len(s.passages))
	copy(cp, s.passages)
	return cp
}

// Open loads the passage table in the given format. csvPath is used for
// FormatCSV and dbPath for FormatSQLite. A missing file wraps models.ErrResourceUnavailable.
func Open(ctx context.Context, format, csvPath, dbPath string) (*SliceStore, error) {
	switch format {
	case FormatCSV, "":
		passages, err := LoadCSV(csvPath)
		if err != nil {
			return nil, err
		}
		return NewSliceStore(passages), nil
	case FormatSQLite:
		passages, err := LoadSQLite(ctx, dbPath)
		if err != nil {
			return nil, err
		}
		return NewSliceStore(passages), nil
	default:
		return nil, fmt.Errorf("unknown passages format: %s (supported: csv, sqlite)", format)
	}
}
