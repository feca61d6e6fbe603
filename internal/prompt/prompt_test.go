package prompt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperjump/ayat/internal/models"
)

func TestSerializeHistory(t *testing.T) {
	turns := []models.ConversationTurn{
		{Speaker: "USER", Message: "What is patience?"},
		{Speaker: "AGENT", Message: "Patience is..."},
	}
	want := "USER: What is patience?\nAGENT: Patience is...\n"
	if got := SerializeHistory(turns); got != want {
		t.Errorf("SerializeHistory = %q, want %q", got, want)
	}
	if got := SerializeHistory(nil); got != "" {
		t.Errorf("SerializeHistory(nil) = %q", got)
	}
}

func TestTruncateHistory(t *testing.T) {
	long := strings.Repeat("a", 5000) + strings.Repeat("b", 7000)
	got := TruncateHistory(long, 10000)
	if utf8.RuneCountInString(got) != 10000 {
		t.Errorf("len = %d, want 10000", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(long, got) {
		t.Error("truncated history must be a suffix of the original")
	}

	short := "USER: hi\n"
	if TruncateHistory(short, 10000) != short {
		t.Error("history within the limit must be unchanged")
	}
	exact := strings.Repeat("x", 10000)
	if TruncateHistory(exact, 10000) != exact {
		t.Error("history of exactly the limit must be unchanged")
	}
}

func TestAssembler_Build(t *testing.T) {
	a := NewAssembler()
	passages := []models.Passage{
		{ChapterID: 1, VerseStart: 1, VerseEnd: 1, Text: "first"},
		{ChapterID: 2, VerseStart: 3, VerseEnd: 4, Text: "second"},
	}
	history := []models.ConversationTurn{{Speaker: "USER", Message: "hello"}}

	got := a.Build("what now?", passages, history)

	sections := []string{"Role: " + DefaultRole, "Goal: " + DefaultGoal, "Retrieved Ayah: first\n\nsecond", "History: USER: hello\n", "Query: what now?", "Answer:"}
	pos := 0
	for _, s := range sections {
		i := strings.Index(got[pos:], s)
		if i < 0 {
			t.Fatalf("section %q missing or out of order in:\n%s", s, got)
		}
		pos += i + len(s)
	}
	if !strings.HasSuffix(got, "Answer:") {
		t.Errorf("prompt must end with the answer cue: %q", got)
	}
}

func TestAssembler_BuildTruncatesHistory(t *testing.T) {
	a := &Assembler{HistoryLimit: 10}
	history := []models.ConversationTurn{{Speaker: "USER", Message: "0123456789abcdef"}}
	got := a.Build("q", nil, history)
	if !strings.Contains(got, "History: 789abcdef\n\nQuery: q") {
		t.Errorf("expected last 10 characters of history, got %q", got)
	}
	if !strings.Contains(got, "Role: "+DefaultRole) {
		t.Error("empty role should fall back to default")
	}
}
