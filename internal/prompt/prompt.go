// Package prompt builds the instruction text sent to the generative model.
package prompt

import (
	"strings"

	"github.com/hyperjump/ayat/internal/models"
	"github.com/hyperjump/ayat/pkg/utils"
)

// Defaults for Assembler fields left empty.
const (
	DefaultRole         = "You are an Islamic scholar answering a question about the Quran."
	DefaultGoal         = "Answer the following query based on the retrieved ayah (translated in English) and the chat history."
	DefaultHistoryLimit = 10000
)

// Assembler renders retrieved passages, history and the query into a prompt.
type Assembler struct {
	Role string
	Goal string
	// HistoryLimit is the number of trailing characters of serialized history kept.
	// Zero means DefaultHistoryLimit.
	HistoryLimit int
}

// NewAssembler returns an Assembler with default role, goal and history limit.
func NewAssembler() *Assembler {
	return &Assembler{Role: DefaultRole, Goal: DefaultGoal, HistoryLimit: DefaultHistoryLimit}
}

// SerializeHistory renders each turn as "<speaker>: <message>\n".
func SerializeHistory(turns []models.ConversationTurn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(t.Speaker)
		b.WriteString(": ")
		b.WriteString(t.Message)
		b.WriteByte('\n')
	}
	return b.String()
}

// TruncateHistory keeps the last limit characters of s, so the most recent
// turns survive. s is returned unchanged when it already fits.
func TruncateHistory(s string, limit int) string {
	return utils.TailRunes(s, limit)
}

// Build returns the prompt: role, goal, the passage texts separated by blank
// lines, the truncated history, the query and an answer cue, in that order.
func (a *Assembler) Build(query string, passages []models.Passage, history []models.ConversationTurn) string {
	role, goal, limit := a.Role, a.Goal, a.HistoryLimit
	if role == "" {
		role = DefaultRole
	}
	if goal == "" {
		goal = DefaultGoal
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	var b strings.Builder
	b.WriteString("Role: ")
	b.WriteString(role)
	b.WriteString("\nGoal: ")
	b.WriteString(goal)
	b.WriteString("\nRetrieved Ayah: ")
	b.WriteString(strings.Join(texts, "\n\n"))
	b.WriteString("\nHistory: ")
	b.WriteString(TruncateHistory(SerializeHistory(history), limit))
	b.WriteString("\nQuery: ")
	b.WriteString(query)
	b.WriteString("\nAnswer:")
	return b.String()
}
