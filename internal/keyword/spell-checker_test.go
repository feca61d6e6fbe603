package keyword

import (
	"errors"
	"testing"
)

// mockTermDictionary is a TermDictionary backed by a map of term -> frequency.
type mockTermDictionary struct {
	terms        map[string]int
	getAllError  error
	getFreqError error
}

func newMockTermDictionary(terms map[string]int) *mockTermDictionary {
	return &mockTermDictionary{terms: terms}
}

func (m *mockTermDictionary) GetAllTerms() ([]string, error) {
	if m.getAllError != nil {
		return nil, m.getAllError
	}
	result := make([]string, 0, len(m.terms))
	for term := range m.terms {
		result = append(result, term)
	}
	return result, nil
}

func (m *mockTermDictionary) GetTermFrequency(term string) (int, error) {
	if m.getFreqError != nil {
		return 0, m.getFreqError
	}
	return m.terms[term], nil
}

func TestSpellChecker_Defaults(t *testing.T) {
	sc := NewSpellChecker(newMockTermDictionary(nil))
	if sc.maxDistance != 2 || sc.minFreq != 1 || sc.maxSuggestions != 5 {
		t.Errorf("defaults = %d/%d/%d", sc.maxDistance, sc.minFreq, sc.maxSuggestions)
	}

	sc = NewSpellChecker(newMockTermDictionary(nil), WithMaxDistance(3), WithMinFrequency(5), WithMaxSuggestions(10))
	if sc.maxDistance != 3 || sc.minFreq != 5 || sc.maxSuggestions != 10 {
		t.Errorf("options = %d/%d/%d", sc.maxDistance, sc.minFreq, sc.maxSuggestions)
	}
}

func TestSpellChecker_Suggest(t *testing.T) {
	dict := newMockTermDictionary(map[string]int{
		"patience":  40,
		"patient":   10,
		"prayer":    60,
		"charity":   30,
		"righteous": 50,
	})
	sc := NewSpellChecker(dict)

	tests := []struct {
		term      string
		wantFirst string
	}{
		{"patiense", "patience"},
		{"prayr", "prayer"},
		{"charty", "charity"},
		{"xyzzy", ""},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got := sc.Suggest(tt.term)
			if tt.wantFirst == "" {
				if len(got) != 0 {
					t.Errorf("Suggest(%q) = %v, want none", tt.term, got)
				}
				return
			}
			if len(got) == 0 || got[0].Term != tt.wantFirst {
				t.Errorf("Suggest(%q) = %v, want first %q", tt.term, got, tt.wantFirst)
			}
		})
	}
}

func TestSpellChecker_Suggest_RespectsLimits(t *testing.T) {
	dict := newMockTermDictionary(map[string]int{
		"aaa": 1, "aab": 1, "aac": 1, "aad": 1, "rare": 0,
	})

	sc := NewSpellChecker(dict, WithMaxSuggestions(2))
	if got := sc.Suggest("aax"); len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}

	sc = NewSpellChecker(dict, WithMinFrequency(1))
	for _, s := range sc.Suggest("rane") {
		if s.Term == "rare" {
			t.Error("term below min frequency suggested")
		}
	}

	sc = NewSpellChecker(dict, WithMaxDistance(1))
	for _, s := range sc.Suggest("abc") {
		if s.Distance > 1 {
			t.Errorf("suggestion %q beyond max distance", s.Term)
		}
	}
}

func TestSpellChecker_Check(t *testing.T) {
	dict := newMockTermDictionary(map[string]int{"day": 80, "of": 200, "judgment": 20})
	sc := NewSpellChecker(dict)

	res, err := sc.Check("Day of judgmant")
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasCorrections {
		t.Fatal("expected corrections")
	}
	if res.CorrectedQuery != "day of judgment" {
		t.Errorf("CorrectedQuery = %q", res.CorrectedQuery)
	}
	if len(res.MisspelledTerms) != 1 || res.MisspelledTerms[0] != "judgmant" {
		t.Errorf("MisspelledTerms = %v", res.MisspelledTerms)
	}

	if got := sc.GetSuggestedQuery("day of judgment"); got != "" {
		t.Errorf("GetSuggestedQuery on valid query = %q, want empty", got)
	}
	if got := sc.GetSuggestedQuery("dya"); got != "day" {
		t.Errorf("GetSuggestedQuery(dya) = %q", got)
	}
}

func TestSpellChecker_DictionaryErrors(t *testing.T) {
	dict := newMockTermDictionary(map[string]int{"light": 5})
	dict.getAllError = errors.New("index closed")
	sc := NewSpellChecker(dict)

	if err := sc.RefreshCache(); err == nil {
		t.Error("RefreshCache should fail")
	}
	if _, err := sc.Check("lihgt"); err == nil {
		t.Error("Check should fail when the cache cannot load")
	}
	if got := sc.Suggest("lihgt"); got != nil {
		t.Errorf("Suggest = %v, want nil", got)
	}

	dict.getAllError = nil
	dict.getFreqError = errors.New("boom")
	if got := sc.Suggest("lihgt"); len(got) != 0 {
		t.Errorf("frequency errors must drop candidates, got %v", got)
	}
}
