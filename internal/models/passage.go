// Package models defines core data structures for passages, search hits and ask requests.
package models

import "fmt"

// Passage is one row of the passage store: a contiguous verse span of a chapter.
// JSON names follow the columns of the source dataset so existing clients can read them.
type Passage struct {
	ChapterID  int    `json:"surah_no" db:"chapter_id"`
	VerseStart int    `json:"first_ayah_no_surah" db:"verse_start"`
	VerseEnd   int    `json:"last_ayah_no_surah" db:"verse_end"`
	Text       string `json:"ayah_en" db:"text"`
	RowIndex   int    `json:"row_index" db:"row_index"`
}

// Span returns the inclusive verse range covered by the passage.
func (p Passage) Span() Span {
	return Span{Start: p.VerseStart, End: p.VerseEnd}
}

// Reference formats the passage as "chapter:verse" or "chapter:start-end".
func (p Passage) Reference() string {
	if p.VerseStart == p.VerseEnd {
		return fmt.Sprintf("%d:%d", p.ChapterID, p.VerseStart)
	}
	return fmt.Sprintf("%d:%d-%d", p.ChapterID, p.VerseStart, p.VerseEnd)
}

// Span is an inclusive verse range within one chapter.
type Span struct {
	Start int
	End   int
}

// Contains reports whether o lies entirely within s. Equal spans contain each other.
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && s.End >= o.End
}

// SearchHit is a single nearest-neighbour result: a passage store row and its inner-product score.
type SearchHit struct {
	Row        int
	Similarity float64
}
