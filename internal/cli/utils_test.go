package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/hyperjump/ayat/internal/models"
)

func sampleAskResponse() *models.AskResponse {
	return &models.AskResponse{
		Query:    "what is patience",
		Response: "Patience is steadfastness.",
		RetrievedDocs: []models.Passage{
			{ChapterID: 2, VerseStart: 153, VerseEnd: 154, Text: "Seek help through patience and prayer.", RowIndex: 7},
			{ChapterID: 103, VerseStart: 3, VerseEnd: 3, Text: "Urge one another to steadfastness.", RowIndex: 12},
		},
	}
}

func TestWriteAskResponse_JSON(t *testing.T) {
	resp := sampleAskResponse()
	var buf bytes.Buffer
	if err := WriteAskResponse(&buf, resp, OutputJSON); err != nil {
		t.Fatalf("WriteAskResponse(json): %v", err)
	}
	var decoded models.AskResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != resp.Query || decoded.Response != resp.Response {
		t.Errorf("decoded = %+v", decoded)
	}
	if len(decoded.RetrievedDocs) != 2 || decoded.RetrievedDocs[1].ChapterID != 103 {
		t.Errorf("retrieved_docs = %+v", decoded.RetrievedDocs)
	}
}

func TestWriteAskResponse_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAskResponse(&buf, sampleAskResponse(), OutputText); err != nil {
		t.Fatalf("WriteAskResponse(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"Patience is steadfastness.", "2 supporting passage(s)", "2:153-154 (row 7)", "103:3 (row 12)", "patience and prayer"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteAskResponse_textNoDocs(t *testing.T) {
	resp := &models.AskResponse{Query: "q", Response: "No relevant documents found.", RetrievedDocs: []models.Passage{}}
	var buf bytes.Buffer
	if err := WriteAskResponse(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "supporting") {
		t.Errorf("no passages header expected:\n%s", buf.String())
	}
}

func TestWritePassages(t *testing.T) {
	list := &PassageList{
		Query:      "patiense",
		Passages:   []models.Passage{{ChapterID: 2, VerseStart: 45, VerseEnd: 45, Text: "Seek help with patience", RowIndex: 3}},
		Scores:     []float64{1.25},
		Suggestion: "patience",
	}
	var buf bytes.Buffer
	if err := WritePassages(&buf, list, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 1 passages", "Did you mean: patience", "score 1.2500", "2:45 (row 3)"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}

	buf.Reset()
	if err := WritePassages(&buf, list, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded PassageList
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Suggestion != "patience" || len(decoded.Passages) != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := map[string]OutputFormat{
		"json":    OutputJSON,
		"JSON":    OutputJSON,
		"text":    OutputText,
		"":        OutputText,
		"unknown": OutputText,
	}
	for in, want := range tests {
		if got := ParseOutputFormat(in); got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"empty", "", 5, ""},
		{"short", "hi", 5, "hi"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 5, "hello..."},
		{"multibyte", "بسم الله", 3, "بسم..."},
		{"maxLen zero", "ab", 0, "ab"},
		{"maxLen negative", "ab", -1, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.s, tt.maxLen)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxWords int
		want     string
	}{
		{"empty", "", 3, ""},
		{"few words", "one two", 3, "one two"},
		{"exact", "one two three", 3, "one two three"},
		{"more", "one two three four", 3, "one two three..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateWords(tt.s, tt.maxWords); got != tt.want {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
			}
		})
	}
}

func TestPrintAskResponse(t *testing.T) {
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() {
		os.Stdout = oldStdout
		_ = w.Close()
	}()
	PrintAskResponse(&models.AskResponse{Query: "q", Response: "answer text"})
	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	if !strings.Contains(buf.String(), "answer text") {
		t.Errorf("PrintAskResponse should write to stdout; got %q", buf.String())
	}
}
