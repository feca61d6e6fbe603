package retrieval

import (
	"reflect"
	"testing"

	"github.com/hyperjump/ayat/internal/models"
)

func p(chapter, start, end int) models.Passage {
	return models.Passage{ChapterID: chapter, VerseStart: start, VerseEnd: end}
}

func spans(ps []models.Passage) [][3]int {
	out := make([][3]int, len(ps))
	for i, x := range ps {
		out[i] = [3]int{x.ChapterID, x.VerseStart, x.VerseEnd}
	}
	return out
}

func TestDeduplicate(t *testing.T) {
	tests := []struct {
		name string
		in   []models.Passage
		want [][3]int
	}{
		{
			name: "subset elimination",
			in:   []models.Passage{p(2, 1, 5), p(2, 2, 3), p(2, 6, 8)},
			want: [][3]int{{2, 1, 5}, {2, 6, 8}},
		},
		{
			name: "same start keeps the longer span",
			in:   []models.Passage{p(1, 1, 3), p(1, 1, 5)},
			want: [][3]int{{1, 1, 5}},
		},
		{
			name: "chapters are independent",
			in:   []models.Passage{p(3, 1, 10), p(1, 2, 3)},
			want: [][3]int{{1, 2, 3}, {3, 1, 10}},
		},
		{
			name: "equal spans collapse",
			in:   []models.Passage{p(4, 5, 5), p(4, 5, 5)},
			want: [][3]int{{4, 5, 5}},
		},
		{
			name: "overlap without containment keeps both",
			in:   []models.Passage{p(1, 3, 6), p(1, 1, 4)},
			want: [][3]int{{1, 1, 4}, {1, 3, 6}},
		},
		{
			name: "single passage survives",
			in:   []models.Passage{p(7, 2, 2)},
			want: [][3]int{{7, 2, 2}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := spans(Deduplicate(tt.in))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Deduplicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeduplicate_Empty(t *testing.T) {
	got := Deduplicate(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Deduplicate(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestDeduplicate_Idempotent(t *testing.T) {
	in := []models.Passage{
		p(2, 1, 5), p(2, 2, 3), p(2, 6, 8), p(1, 1, 1), p(1, 1, 7), p(3, 4, 9), p(3, 4, 9), p(2, 4, 6),
	}
	once := Deduplicate(in)
	twice := Deduplicate(once)
	if !reflect.DeepEqual(spans(once), spans(twice)) {
		t.Errorf("not a fixed point: %v then %v", spans(once), spans(twice))
	}
}

// No retained passage may be contained in another retained passage of the same chapter.
func TestDeduplicate_NoContainmentInOutput(t *testing.T) {
	in := []models.Passage{
		p(1, 1, 3), p(1, 2, 2), p(1, 2, 6), p(1, 5, 9), p(1, 6, 7), p(2, 1, 1), p(2, 1, 2),
	}
	out := Deduplicate(in)
	for i, a := range out {
		for j, b := range out {
			if i != j && a.ChapterID == b.ChapterID && a.Span().Contains(b.Span()) {
				t.Errorf("%v contains %v", a.Span(), b.Span())
			}
		}
	}
}

func TestDeduplicate_DoesNotReorderInput(t *testing.T) {
	in := []models.Passage{p(1, 5, 6), p(1, 1, 2)}
	_ = Deduplicate(in)
	if in[0].VerseStart != 5 {
		t.Errorf("input slice was reordered: %v", spans(in))
	}
}
