package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/ayat/internal/llm"
	"github.com/hyperjump/ayat/internal/models"
	"github.com/hyperjump/ayat/internal/prompt"
	"github.com/hyperjump/ayat/internal/retrieval"
)

type stubRetriever struct {
	passages []models.Passage
	err      error
	calls    int
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string) ([]models.Passage, error) {
	s.calls++
	return s.passages, s.err
}

// slowLLM blocks until its context ends.
type slowLLM struct{}

func (slowLLM) Generate(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func history(turns ...models.ConversationTurn) *[]models.ConversationTurn {
	if turns == nil {
		turns = []models.ConversationTurn{}
	}
	return &turns
}

func TestService_Ask(t *testing.T) {
	r := &stubRetriever{passages: []models.Passage{
		{ChapterID: 2, VerseStart: 1, VerseEnd: 5, Text: "wide"},
		{ChapterID: 2, VerseStart: 2, VerseEnd: 3, Text: "narrow"},
		{ChapterID: 1, VerseStart: 1, VerseEnd: 1, Text: "opening"},
	}}
	gen := llm.NewMockLLM("An answer.")
	svc := NewService(r, prompt.NewAssembler(), gen, time.Second, zap.NewNop())

	resp, err := svc.Ask(context.Background(), &models.AskRequest{
		Query:   "What is guidance?",
		History: history(models.ConversationTurn{Speaker: "USER", Message: "What is guidance?"}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Response != "An answer." {
		t.Errorf("Response = %q", resp.Response)
	}
	if resp.Query != "What is guidance?" {
		t.Errorf("Query = %q", resp.Query)
	}
	if len(resp.RetrievedDocs) != 2 {
		t.Fatalf("RetrievedDocs = %+v, want 2 after dedup", resp.RetrievedDocs)
	}
	if resp.RetrievedDocs[0].ChapterID != 1 || resp.RetrievedDocs[1].Text != "wide" {
		t.Errorf("unexpected order: %+v", resp.RetrievedDocs)
	}

	p := gen.LastPrompt()
	if !strings.Contains(p, "Retrieved Ayah: opening\n\nwide") {
		t.Errorf("prompt passages wrong:\n%s", p)
	}
	if strings.Contains(p, "narrow") {
		t.Error("contained passage must not reach the prompt")
	}
	if !strings.Contains(p, "History: USER: What is guidance?\n") {
		t.Errorf("prompt history wrong:\n%s", p)
	}
}

func TestService_Ask_Validation(t *testing.T) {
	r := &stubRetriever{}
	gen := llm.NewMockLLM("x")
	svc := NewService(r, nil, gen, 0, nil)

	tests := []struct {
		name string
		req  *models.AskRequest
		want string
	}{
		{"missing query", &models.AskRequest{History: history()}, "Missing query parameter"},
		{"missing history", &models.AskRequest{Query: "q"}, "Missing history parameter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Ask(context.Background(), tt.req)
			var ve *models.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Message != tt.want {
				t.Errorf("message = %q, want %q", ve.Message, tt.want)
			}
		})
	}
	if r.calls != 0 {
		t.Errorf("retriever called %d times for invalid requests", r.calls)
	}
}

func TestService_Ask_NoDocuments(t *testing.T) {
	gen := llm.NewMockLLM("should not be used")
	svc := NewService(&stubRetriever{}, nil, gen, 0, nil)

	resp, err := svc.Ask(context.Background(), &models.AskRequest{Query: "q", History: history()})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Response != NoDocumentsResponse {
		t.Errorf("Response = %q", resp.Response)
	}
	if resp.RetrievedDocs == nil || len(resp.RetrievedDocs) != 0 {
		t.Errorf("RetrievedDocs = %#v, want empty non-nil", resp.RetrievedDocs)
	}
	if gen.Calls() != 0 {
		t.Error("generator must not be called without passages")
	}
}

func TestService_Ask_EmptyAnswer(t *testing.T) {
	r := &stubRetriever{passages: []models.Passage{{ChapterID: 1, VerseStart: 1, VerseEnd: 1, Text: "t"}}}
	empty := generatorFunc(func(ctx context.Context, p string) (string, error) { return "", nil })
	svc := NewService(r, nil, empty, 0, nil)

	resp, err := svc.Ask(context.Background(), &models.AskRequest{Query: "q", History: history()})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Response != NoResponseGenerated {
		t.Errorf("Response = %q, want %q", resp.Response, NoResponseGenerated)
	}
}

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestService_Ask_UpstreamErrors(t *testing.T) {
	passages := []models.Passage{{ChapterID: 1, VerseStart: 1, VerseEnd: 1, Text: "t"}}
	req := func() *models.AskRequest { return &models.AskRequest{Query: "q", History: history()} }

	t.Run("generation failure", func(t *testing.T) {
		cause := errors.New("quota exceeded")
		svc := NewService(&stubRetriever{passages: passages}, nil, llm.NewMockLLMWithError(cause), 0, nil)
		_, err := svc.Ask(context.Background(), req())
		if !errors.Is(err, ErrUpstream) || !errors.Is(err, cause) {
			t.Errorf("err = %v, want ErrUpstream wrapping cause", err)
		}
		if errors.Is(err, ErrUpstreamTimeout) {
			t.Error("plain failure must not be reported as timeout")
		}
	})

	t.Run("generation timeout", func(t *testing.T) {
		svc := NewService(&stubRetriever{passages: passages}, nil, slowLLM{}, 20*time.Millisecond, nil)
		_, err := svc.Ask(context.Background(), req())
		if !errors.Is(err, ErrUpstreamTimeout) {
			t.Errorf("err = %v, want ErrUpstreamTimeout", err)
		}
	})

	t.Run("embedding failure", func(t *testing.T) {
		r := &stubRetriever{err: errors.Join(retrieval.ErrEmbedding, errors.New("model offline"))}
		svc := NewService(r, nil, llm.NewMockLLM("x"), 0, nil)
		_, err := svc.Ask(context.Background(), req())
		if !errors.Is(err, ErrUpstream) {
			t.Errorf("err = %v, want ErrUpstream", err)
		}
	})

	t.Run("search failure is internal", func(t *testing.T) {
		r := &stubRetriever{err: retrieval.ErrSearch}
		svc := NewService(r, nil, llm.NewMockLLM("x"), 0, nil)
		_, err := svc.Ask(context.Background(), req())
		if err == nil || errors.Is(err, ErrUpstream) {
			t.Errorf("err = %v, want non-upstream error", err)
		}
	})
}
