package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/hyperjump/ayat/internal/models"
)

// Column names of the augmented dataset.
const (
	colChapter    = "surah_no"
	colVerseRange = "ayah_no_surah"
	colVerseFirst = "first_ayah_no_surah"
	colVerseLast  = "last_ayah_no_surah"
	colText       = "ayah_en"
)

// LoadCSV reads the passage table from a CSV file with a header row.
func LoadCSV(path string) ([]models.Passage, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: passages path is empty", models.ErrResourceUnavailable)
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: passages file %q not found", models.ErrResourceUnavailable, path)
		}
		return nil, fmt.Errorf("open passages: %w", err)
	}
	defer f.Close()

	passages, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return passages, nil
}

// ReadCSV parses passages from r. Columns are located by header name; surah_no
// and ayah_en are required. The verse span comes from first_ayah_no_surah and
// last_ayah_no_surah when present, otherwise from ayah_no_surah ("7" or "3-5").
// Rows with a start verse greater than the end verse are rejected.
func ReadCSV(r io.Reader) ([]models.Passage, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty passages file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	chapterCol, ok := cols[colChapter]
	if !ok {
		return nil, fmt.Errorf("missing column %q", colChapter)
	}
	textCol, ok := cols[colText]
	if !ok {
		return nil, fmt.Errorf("missing column %q", colText)
	}
	firstCol, hasFirst := cols[colVerseFirst]
	lastCol, hasLast := cols[colVerseLast]
	rangeCol, hasRange := cols[colVerseRange]
	explicit := hasFirst && hasLast
	if !explicit && !hasRange {
		return nil, fmt.Errorf("missing verse columns: need %q and %q, or %q", colVerseFirst, colVerseLast, colVerseRange)
	}

	var passages []models.Passage
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := func(i int) string {
			if i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		var p models.Passage
		if p.ChapterID, err = parseNumber(field(chapterCol)); err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, colChapter, err)
		}
		if explicit {
			if p.VerseStart, err = parseNumber(field(firstCol)); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, colVerseFirst, err)
			}
			if p.VerseEnd, err = parseNumber(field(lastCol)); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, colVerseLast, err)
			}
		} else {
			if p.VerseStart, p.VerseEnd, err = ParseVerseRange(field(rangeCol)); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, colVerseRange, err)
			}
		}
		if p.VerseStart > p.VerseEnd {
			return nil, fmt.Errorf("line %d: verse start %d after end %d", line, p.VerseStart, p.VerseEnd)
		}
		if textCol < len(rec) {
			p.Text = rec[textCol]
		}
		p.RowIndex = len(passages)
		passages = append(passages, p)
	}
	return passages, nil
}

// ParseVerseRange parses "7" as (7, 7) and "3-5" as (3, 5).
func ParseVerseRange(s string) (start, end int, err error) {
	s = strings.TrimSpace(s)
	if a, b, ok := strings.Cut(s, "-"); ok {
		if start, err = parseNumber(a); err != nil {
			return 0, 0, err
		}
		if end, err = parseNumber(b); err != nil {
			return 0, 0, err
		}
		return start, end, nil
	}
	start, err = parseNumber(s)
	return start, start, err
}

// parseNumber accepts integers and integral floats such as "12.0", which
// spreadsheet exports produce for numeric columns.
func parseNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("non-integral number %q", s)
	}
	return int(f), nil
}
