// Package rag wires retrieval, deduplication, prompt assembly and generation
// into the ask pipeline.
package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/ayat/internal/llm"
	"github.com/hyperjump/ayat/internal/models"
	"github.com/hyperjump/ayat/internal/prompt"
	"github.com/hyperjump/ayat/internal/retrieval"
)

const (
	// NoDocumentsResponse is returned when no passage clears the similarity threshold.
	NoDocumentsResponse = "No relevant documents found."
	// NoResponseGenerated replaces an empty model answer.
	NoResponseGenerated = "No response generated."

	DefaultGenerationTimeout = 30 * time.Second
)

var (
	// ErrUpstream reports a failed call to the embedding function or generative model.
	ErrUpstream = errors.New("upstream failure")
	// ErrUpstreamTimeout reports that the generative model did not answer in time.
	ErrUpstreamTimeout = errors.New("upstream timeout")
)

// PassageRetriever is the retrieval step of the pipeline.
type PassageRetriever interface {
	Retrieve(ctx context.Context, query string) ([]models.Passage, error)
}

// Service answers ask requests.
type Service struct {
	retriever PassageRetriever
	assembler *prompt.Assembler
	generator llm.Generator
	timeout   time.Duration
	logger    *zap.Logger
}

// NewService creates the pipeline. A non-positive timeout uses DefaultGenerationTimeout.
func NewService(retriever PassageRetriever, assembler *prompt.Assembler, generator llm.Generator, timeout time.Duration, logger *zap.Logger) *Service {
	if assembler == nil {
		assembler = prompt.NewAssembler()
	}
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		retriever: retriever,
		assembler: assembler,
		generator: generator,
		timeout:   timeout,
		logger:    logger,
	}
}

// Ask validates req, retrieves and deduplicates passages, and asks the model.
// When nothing relevant is retrieved the model is not called and the response
// carries NoDocumentsResponse with an empty passage list.
func (s *Service) Ask(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	passages, err := s.retriever.Retrieve(ctx, req.Query)
	if err != nil {
		if errors.Is(err, retrieval.ErrEmbedding) {
			s.logger.Error("query embedding failed", zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
		}
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	passages = retrieval.Deduplicate(passages)
	resp := &models.AskResponse{
		Query:         req.Query,
		RetrievedDocs: passages,
	}
	if len(passages) == 0 {
		s.logger.Debug("no relevant passages", zap.String("query", req.Query))
		resp.Response = NoDocumentsResponse
		return resp, nil
	}

	text := s.assembler.Build(req.Query, passages, req.Turns())
	s.logger.Debug("generating answer",
		zap.Int("passages", len(passages)),
		zap.Int("history_turns", len(req.Turns())),
		zap.Int("prompt_chars", len(text)),
	)

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	answer, err := s.generator.Generate(genCtx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			s.logger.Error("generation timed out", zap.Duration("timeout", s.timeout))
			return nil, fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
		}
		s.logger.Error("generation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	s.logger.Debug("answer generated", zap.Duration("took", time.Since(start)))

	if answer == "" {
		answer = NoResponseGenerated
	}
	resp.Response = answer
	return resp, nil
}
