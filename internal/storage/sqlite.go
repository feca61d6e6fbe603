package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/ayat/internal/models"
)

// SQLiteStorage keeps the passage table in SQLite. Row order is the row_index column.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS passages (
		row_index INTEGER PRIMARY KEY,
		chapter_id INTEGER NOT NULL,
		verse_start INTEGER NOT NULL,
		verse_end INTEGER NOT NULL,
		text TEXT NOT NULL,
		CHECK (verse_start <= verse_end)
	);

	CREATE INDEX IF NOT EXISTS idx_passages_chapter ON passages(chapter_id, verse_start);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceAll deletes every passage and inserts passages in a single transaction.
// Each passage is stored at its slice position, which becomes its row_index.
func (s *SQLiteStorage) ReplaceAll(ctx context.Context, passages []models.Passage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM passages`); err != nil {
		return fmt.Errorf("clear passages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO passages (row_index, chapter_id, verse_start, verse_end, text)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range passages {
		if _, err := stmt.ExecContext(ctx, i, p.ChapterID, p.VerseStart, p.VerseEnd, p.Text); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// LoadAll returns every passage ordered by row_index. Row indexes must be
// contiguous from zero, since they address vector index rows.
func (s *SQLiteStorage) LoadAll(ctx context.Context) ([]models.Passage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT row_index, chapter_id, verse_start, verse_end, text
		 FROM passages ORDER BY row_index`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var passages []models.Passage
	for rows.Next() {
		var p models.Passage
		if err := rows.Scan(&p.RowIndex, &p.ChapterID, &p.VerseStart, &p.VerseEnd, &p.Text); err != nil {
			return nil, err
		}
		if p.RowIndex != len(passages) {
			return nil, fmt.Errorf("passage rows are not contiguous: expected row %d, got %d", len(passages), p.RowIndex)
		}
		passages = append(passages, p)
	}
	return passages, rows.Err()
}

// GetPassage returns the passage at row.
func (s *SQLiteStorage) GetPassage(ctx context.Context, row int) (*models.Passage, error) {
	var p models.Passage
	err := s.db.QueryRowContext(ctx,
		`SELECT row_index, chapter_id, verse_start, verse_end, text
		 FROM passages WHERE row_index = ?`, row,
	).Scan(&p.RowIndex, &p.ChapterID, &p.VerseStart, &p.VerseEnd, &p.Text)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("passage not found: %d", row)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CountPassages returns the total number of passages.
func (s *SQLiteStorage) CountPassages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// LoadSQLite reads the passage table from an existing database file.
// Unlike NewSQLiteStorage it never creates the file.
func LoadSQLite(ctx context.Context, dbPath string) ([]models.Passage, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: database path is empty", models.ErrResourceUnavailable)
	}
	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: database %q not found", models.ErrResourceUnavailable, dbPath)
		}
		return nil, fmt.Errorf("stat database: %w", err)
	}
	s, err := NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.LoadAll(ctx)
}
