// Package cli provides output helpers for the ayat command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/ayat/internal/models"
	"github.com/hyperjump/ayat/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat. Unknown values fall back to text.
func ParseOutputFormat(s string) OutputFormat {
	if strings.EqualFold(s, string(OutputJSON)) {
		return OutputJSON
	}
	return OutputText
}

// WriteAskResponse writes an answer and its supporting passages to w.
func WriteAskResponse(w io.Writer, resp *models.AskResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\n%s\n\n", resp.Response)
	if len(resp.RetrievedDocs) == 0 {
		return nil
	}
	fmt.Fprintf(w, "--- %d supporting passage(s) ---\n", len(resp.RetrievedDocs))
	for _, p := range resp.RetrievedDocs {
		writePassage(w, p, 200)
	}
	return nil
}

// PassageList is a set of passages with optional scores, as returned by passage search.
type PassageList struct {
	Query      string           `json:"query"`
	Passages   []models.Passage `json:"passages"`
	Scores     []float64        `json:"scores,omitempty"`
	Suggestion string           `json:"suggestion,omitempty"`
}

// WritePassages writes a passage search result to w.
func WritePassages(w io.Writer, list *PassageList, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, list)
	}
	fmt.Fprintf(w, "\nFound %d passages for %q\n", len(list.Passages), list.Query)
	if list.Suggestion != "" {
		fmt.Fprintf(w, "Did you mean: %s\n", list.Suggestion)
	}
	fmt.Fprintln(w)
	for i, p := range list.Passages {
		if i < len(list.Scores) {
			fmt.Fprintf(w, "[%d] score %.4f\n", i+1, list.Scores[i])
		}
		writePassage(w, p, 0)
	}
	return nil
}

func writePassage(w io.Writer, p models.Passage, maxLen int) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "%s (row %d)\n", p.Reference(), p.RowIndex)
	fmt.Fprintf(w, "%s\n\n", Truncate(p.Text, maxLen))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintAskResponse prints an answer to stdout in text format.
func PrintAskResponse(resp *models.AskResponse) {
	_ = WriteAskResponse(os.Stdout, resp, OutputText)
}

// Truncate truncates s to maxLen characters and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	return utils.Truncate(s, maxLen)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
