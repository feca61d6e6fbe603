package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMockLLM_Generate(t *testing.T) {
	tests := []struct {
		name     string
		mock     *MockLLM
		prompt   string
		wantErr  bool
		wantText string
	}{
		{
			name:     "fixed response",
			mock:     NewMockLLM("Fixed answer"),
			prompt:   "Any prompt",
			wantText: "Fixed answer",
		},
		{
			name:    "error response",
			mock:    NewMockLLMWithError(errors.New("mock error")),
			prompt:  "Any prompt",
			wantErr: true,
		},
		{
			name:     "derived from query line",
			mock:     &MockLLM{},
			prompt:   "Role: r\nQuery: What is mercy?\nAnswer:",
			wantText: "Mock answer to: What is mercy?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.mock.Generate(context.Background(), tt.prompt)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.wantText {
				t.Errorf("Generate = %q, want %q", got, tt.wantText)
			}
			if tt.mock.LastPrompt() != tt.prompt {
				t.Errorf("LastPrompt = %q", tt.mock.LastPrompt())
			}
		})
	}
}

func TestMockLLM_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMockLLM("x")
	if _, err := m.Generate(ctx, "p"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if m.Calls() != 1 {
		t.Errorf("Calls = %d", m.Calls())
	}
}

func TestNewOpenAILLM_InvalidConfig(t *testing.T) {
	if _, err := NewOpenAILLM(Config{Model: "m"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("missing key: err = %v", err)
	}
	if _, err := NewOpenAILLM(Config{APIKey: "k"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("missing model: err = %v", err)
	}
}

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("request body: %v", err)
		}
		if req["model"] != "test-model" {
			t.Errorf("model = %v", req["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream broke","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
}

func TestOpenAILLM_Generate(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "Patience is a virtue.")
	defer srv.Close()

	gen, err := NewOpenAILLM(Config{Model: "test-model", APIKey: "k", BaseURL: srv.URL, MaxTokens: 100, Temperature: 0.3})
	if err != nil {
		t.Fatal(err)
	}
	got, err := gen.Generate(context.Background(), "Query: patience\nAnswer:")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Patience is a virtue." {
		t.Errorf("Generate = %q", got)
	}

	if _, err := gen.Generate(context.Background(), ""); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("empty prompt: err = %v", err)
	}
}

func TestOpenAILLM_UpstreamError(t *testing.T) {
	srv := chatServer(t, http.StatusInternalServerError, "")
	defer srv.Close()

	gen, err := NewOpenAILLM(Config{Model: "test-model", APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gen.Generate(context.Background(), "p"); !errors.Is(err, ErrLLMFailed) {
		t.Fatalf("err = %v, want ErrLLMFailed", err)
	}
}
