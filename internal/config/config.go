// Package config provides configuration loading and structs for the ayat server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Vector     VectorConfig     `yaml:"vector"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Generation GenerationConfig `yaml:"generation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string   `yaml:"host"`
	Port               int      `yaml:"port"`
	CORSOrigins        []string `yaml:"cors_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs"`
}

// StorageConfig holds paths of the passage table and indices.
type StorageConfig struct {
	PassagesPath    string `yaml:"passages_path"`
	PassagesFormat  string `yaml:"passages_format"` // csv or sqlite
	DatabasePath    string `yaml:"database_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
	// KeywordIndexPath persists the Bleve passage index; empty keeps it in memory.
	KeywordIndexPath string `yaml:"keyword_index_path"`
}

// VectorConfig selects the vector index implementation.
type VectorConfig struct {
	IndexType string `yaml:"index_type"` // memory or faiss
}

// EmbeddingConfig holds query embedder settings.
type EmbeddingConfig struct {
	Provider      string `yaml:"provider"` // onnx, openai or mock
	ModelPath     string `yaml:"model_path"`
	TokenizerPath string `yaml:"tokenizer_path"`
	OutputName    string `yaml:"output_name"`
	Model         string `yaml:"model"`
	BaseURL       string `yaml:"base_url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	Dimensions    int    `yaml:"dimensions"`
	MaxTokens     int    `yaml:"max_tokens"`
	CacheSize     int    `yaml:"cache_size"`
}

// RetrievalConfig holds nearest-neighbour search settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
	// MinSimilarity is a pointer so an explicit 0 is kept; only an absent
	// key gets the 0.2 default.
	MinSimilarity *float64 `yaml:"min_similarity"`
}

// Threshold returns MinSimilarity, or 0.2 when it was never set.
func (r RetrievalConfig) Threshold() float64 {
	if r.MinSimilarity == nil {
		return defaultMinSimilarity
	}
	return *r.MinSimilarity
}

// GenerationConfig holds generative model settings.
type GenerationConfig struct {
	Provider     string  `yaml:"provider"` // openai or mock
	Model        string  `yaml:"model"`
	BaseURL      string  `yaml:"base_url"`
	APIKeyEnv    string  `yaml:"api_key_env"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	TimeoutSecs  int     `yaml:"timeout_secs"`
	HistoryLimit int     `yaml:"history_limit"`
	Role         string  `yaml:"role"`
	Goal         string  `yaml:"goal"`
}

// Load reads and parses the config file at path, applies defaults, expands paths
// and applies environment overrides. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	finish(&cfg, filepath.Dir(path))
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the default configuration with relative paths resolved against baseDir.
// Used when no config file exists, so the server can run from environment variables alone.
func Default(baseDir string) *Config {
	var cfg Config
	finish(&cfg, baseDir)
	return &cfg
}

func finish(cfg *Config, baseDir string) {
	ApplyDefaults(cfg)
	ApplyEnv(cfg)
	cfg.Storage.PassagesPath = expandPath(cfg.Storage.PassagesPath, baseDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, baseDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, baseDir)
	cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, baseDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, baseDir)
	cfg.Embedding.TokenizerPath = expandPath(cfg.Embedding.TokenizerPath, baseDir)
}

// ApplyEnv overrides config values from the environment: PORT, LLM_MODEL,
// EMBEDDING_MODEL and AYAT_DEBUG. Invalid values are ignored.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Generation.Model = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("AYAT_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = debug
		}
	}
}

// Validate rejects settings no component can serve.
func Validate(cfg *Config) error {
	switch cfg.Storage.PassagesFormat {
	case "csv", "sqlite":
	default:
		return fmt.Errorf("invalid storage.passages_format %q (supported: csv, sqlite)", cfg.Storage.PassagesFormat)
	}
	switch cfg.Embedding.Provider {
	case "onnx", "openai", "mock":
	default:
		return fmt.Errorf("invalid embedding.provider %q (supported: onnx, openai, mock)", cfg.Embedding.Provider)
	}
	switch cfg.Generation.Provider {
	case "openai", "mock":
	default:
		return fmt.Errorf("invalid generation.provider %q (supported: openai, mock)", cfg.Generation.Provider)
	}
	if cfg.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", cfg.Retrieval.TopK)
	}
	if t := cfg.Retrieval.Threshold(); t < -1 || t >= 1 {
		return fmt.Errorf("retrieval.min_similarity must be in [-1, 1), got %g", t)
	}
	return nil
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
