package retrieval

import (
	"sort"

	"github.com/hyperjump/ayat/internal/models"
)

// Deduplicate removes passages whose verse span lies inside another retained
// passage of the same chapter. Chapters are emitted in ascending id order;
// within a chapter passages are ordered by start verse ascending, then end
// verse descending. Equal spans collapse to the first one seen.
func Deduplicate(passages []models.Passage) []models.Passage {
	groups := make(map[int][]models.Passage)
	var chapters []int
	for _, p := range passages {
		if _, ok := groups[p.ChapterID]; !ok {
			chapters = append(chapters, p.ChapterID)
		}
		groups[p.ChapterID] = append(groups[p.ChapterID], p)
	}
	sort.Ints(chapters)

	out := make([]models.Passage, 0, len(passages))
	for _, c := range chapters {
		out = append(out, dedupChapter(groups[c])...)
	}
	return out
}

func dedupChapter(group []models.Passage) []models.Passage {
	sort.SliceStable(group, func(i, j int) bool {
		if group[i].VerseStart != group[j].VerseStart {
			return group[i].VerseStart < group[j].VerseStart
		}
		return group[i].VerseEnd > group[j].VerseEnd
	})

	var accepted []models.Span
	kept := make([]models.Passage, 0, len(group))
	for _, p := range group {
		span := p.Span()
		if covered(accepted, span) {
			continue
		}
		accepted = append(accepted, span)
		kept = append(kept, p)
	}
	return kept
}

func covered(accepted []models.Span, s models.Span) bool {
	for _, a := range accepted {
		if a.Contains(s) {
			return true
		}
	}
	return false
}
