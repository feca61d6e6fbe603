package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/ayat/internal/config"
	"github.com/hyperjump/ayat/internal/embedding"
	"github.com/hyperjump/ayat/internal/keyword"
	"github.com/hyperjump/ayat/internal/llm"
	"github.com/hyperjump/ayat/internal/prompt"
	"github.com/hyperjump/ayat/internal/rag"
	"github.com/hyperjump/ayat/internal/retrieval"
	"github.com/hyperjump/ayat/internal/storage"
	"github.com/hyperjump/ayat/internal/vector"
)

// Components holds initialized services.
type Components struct {
	Store     *storage.SliceStore
	Embedder  embedding.Embedder
	Vectors   vector.VectorIndex
	Keywords  *keyword.PassageIndex
	Generator llm.Generator
	Service   *rag.Service
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Vectors != nil {
		_ = c.Vectors.Close()
	}
	if c.Keywords != nil {
		_ = c.Keywords.Close()
	}
}

// loadResources opens the passage table and the vector index. Both are required;
// a missing file is returned wrapping models.ErrResourceUnavailable.
func loadResources(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage.SliceStore, vector.VectorIndex, error) {
	store, err := storage.Open(ctx, cfg.Storage.PassagesFormat, cfg.Storage.PassagesPath, cfg.Storage.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load passages: %w", err)
	}
	vectors, err := vector.Open(cfg.Vector.IndexType, cfg.Storage.VectorIndexPath, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load vector index: %w", err)
	}
	if vectors.Size() != store.Len() {
		logger.Warn("vector index and passage table sizes differ; rows past the table are ignored",
			zap.Int("vectors", vectors.Size()),
			zap.Int("passages", store.Len()))
	}
	logger.Info("resources loaded",
		zap.Int("passages", store.Len()),
		zap.String("vector_index_type", vectors.Type()),
		zap.Int("vector_index_size", vectors.Size()),
		zap.Bool("faiss_available", vector.IsFAISSAvailable()))
	return store, vectors, nil
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, vectors, err := loadResources(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c := &Components{Store: store, Vectors: vectors}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedding.NewCachedEmbedder(embedder, cfg.Embedding.CacheSize)
	if c.Embedder.Dimensions() != vectors.Dimensions() {
		c.Close()
		return nil, fmt.Errorf("embedder produces %d dimensions, index has %d", c.Embedder.Dimensions(), vectors.Dimensions())
	}

	c.Keywords, err = keyword.BuildPassageIndex(cfg.Storage.KeywordIndexPath, store.All())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	c.Generator, err = newGenerator(cfg)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	retriever := retrieval.NewRetriever(c.Embedder, vectors, store, retrieval.Options{
		TopK:          cfg.Retrieval.TopK,
		MinSimilarity: cfg.Retrieval.Threshold(),
	}, logger)
	assembler := &prompt.Assembler{
		Role:         cfg.Generation.Role,
		Goal:         cfg.Generation.Goal,
		HistoryLimit: cfg.Generation.HistoryLimit,
	}
	timeout := time.Duration(cfg.Generation.TimeoutSecs) * time.Second
	c.Service = rag.NewService(retriever, assembler, c.Generator, timeout, logger)
	return c, nil
}

func newEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "onnx":
		return embedding.NewONNXEmbedder(embedding.ONNXOptions{
			ModelPath:     cfg.Embedding.ModelPath,
			TokenizerPath: cfg.Embedding.TokenizerPath,
			OutputName:    cfg.Embedding.OutputName,
			Dimensions:    cfg.Embedding.Dimensions,
			MaxTokens:     cfg.Embedding.MaxTokens,
		})
	case "openai":
		baseURL := cfg.Embedding.BaseURL
		if baseURL == "" {
			baseURL = llm.DefaultBaseURL
		}
		return embedding.NewOpenAIEmbedder(embedding.OpenAIOptions{
			Model:      cfg.Embedding.Model,
			BaseURL:    baseURL,
			APIKeyEnv:  cfg.Embedding.APIKeyEnv,
			Dimensions: cfg.Embedding.Dimensions,
		})
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}
}

func newGenerator(cfg *config.Config) (llm.Generator, error) {
	switch cfg.Generation.Provider {
	case "openai":
		return llm.NewOpenAILLM(llm.Config{
			Model:       cfg.Generation.Model,
			BaseURL:     cfg.Generation.BaseURL,
			APIKey:      os.Getenv(cfg.Generation.APIKeyEnv),
			Temperature: cfg.Generation.Temperature,
			MaxTokens:   cfg.Generation.MaxTokens,
		})
	case "mock":
		return llm.NewMockLLM(""), nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", cfg.Generation.Provider)
	}
}
