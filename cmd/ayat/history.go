package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/ayat/internal/models"
)

// Speaker labels used by the web client; the server passes them through verbatim.
const (
	speakerUser  = "USER"
	speakerAgent = "AGENT"
)

// defaultHistoryPath returns ~/.ayat/history.json, or a file in the working
// directory when the home directory is unknown.
func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ayat_history.json"
	}
	return filepath.Join(home, ".ayat", "history.json")
}

// loadHistory reads the conversation saved by previous ask runs.
// A missing file is an empty conversation.
func loadHistory(path string) ([]models.ConversationTurn, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.ConversationTurn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	var turns []models.ConversationTurn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", path, err)
	}
	if turns == nil {
		turns = []models.ConversationTurn{}
	}
	return turns, nil
}

// saveHistory writes turns to path, creating the parent directory.
func saveHistory(path string, turns []models.ConversationTurn) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// appendExchange records a question and its answer the way the web client does.
func appendExchange(turns []models.ConversationTurn, query, answer string) []models.ConversationTurn {
	return append(turns,
		models.ConversationTurn{Speaker: speakerUser, Message: query},
		models.ConversationTurn{Speaker: speakerAgent, Message: answer},
	)
}
