// Package main is the ayat CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/ayat/internal/cli"
	"github.com/hyperjump/ayat/internal/config"
	"github.com/hyperjump/ayat/internal/keyword"
	"github.com/hyperjump/ayat/internal/models"
	"github.com/hyperjump/ayat/internal/server"
	"github.com/hyperjump/ayat/internal/storage"
	"github.com/hyperjump/ayat/pkg/utils"
)

var version = "dev"

const defaultServerURL = "http://localhost:7860"

// loadConfig loads config from path. With an empty path it uses config.yaml in the
// current directory when present, and otherwise the built-in defaults resolved
// against the current directory, so the server can run from environment variables alone.
// Returns the config and the path that was loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}
	fallback := filepath.Join(cwd, "config.yaml")
	if _, statErr := os.Stat(fallback); statErr == nil {
		cfg, loadErr := config.Load(fallback)
		if loadErr != nil {
			return nil, "", loadErr
		}
		return cfg, fallback, nil
	}
	return config.Default(cwd), "", nil
}

func main() {
	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "passages":
		runPassages()
	case "import":
		runImport()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("ayat version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path (default: ./config.yaml if present)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		if errors.Is(err, models.ErrResourceUnavailable) {
			logger.Fatal("Required resource missing; refusing to start", zap.Error(err))
		}
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(components.Service, components.Store, components.Vectors, components.Keywords, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildQuery joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so `ayat ask "why" -output json`
// would otherwise leave -output unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printAskUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: ayat ask [flags] <question>\n\n")
	fmt.Fprintf(fs.Output(), "The question is all remaining arguments joined by spaces.\n")
	fmt.Fprintf(fs.Output(), "Earlier questions and answers are kept in the history file and sent as context.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  ayat ask what does the text say about patience
  ayat ask --new "who is addressed in the opening chapter"   # start a new conversation
  ayat ask --output json why                                 # structured JSON
`)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	historyPath := fs.String("history", defaultHistoryPath(), "conversation history file")
	newConversation := fs.Bool("new", false, "discard saved history before asking")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printAskUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	query := buildQuery(fs.Args())
	if query == "" {
		printAskUsage(fs)
		os.Exit(1)
	}

	history := []models.ConversationTurn{}
	if !*newConversation {
		var err error
		history, err = loadHistory(*historyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load history: %v\n", err)
			os.Exit(1)
		}
	}

	resp, err := askViaHTTP(*serverURL, &models.AskRequest{Query: query, History: &history})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := saveHistory(*historyPath, appendExchange(history, query, resp.Response)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save history: %v\n", err)
	}
	if err := cli.WriteAskResponse(os.Stdout, resp, cli.ParseOutputFormat(*outputFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL string, req *models.AskRequest) (*models.AskResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/rag", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}
	var out models.AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// serverError turns a non-200 response into an error carrying the server's message.
func serverError(resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}

func runPassages() {
	fs := flag.NewFlagSet("passages", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path (for direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the passage table directly)")
	limit := fs.Int("limit", 10, "number of results")
	chapter := fs.Int("chapter", 0, "restrict to one chapter (0 = all)")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	row := fs.Int("row", -1, "print the passage at this row instead of searching")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	format := cli.ParseOutputFormat(*outputFormat)

	query := buildQuery(fs.Args())
	if *row < 0 && query == "" {
		fmt.Println("Usage: ayat passages [flags] <words>   or   ayat passages -row <n>")
		os.Exit(1)
	}

	var (
		list *cli.PassageList
		err  error
	)
	if *serverURL != "" {
		list, err = passagesViaHTTP(*serverURL, query, *row, *limit, *chapter, *fuzzy)
	} else {
		list, err = passagesDirect(*configPath, query, *row, *limit, *chapter, *fuzzy)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Passage lookup failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WritePassages(os.Stdout, list, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// passagesURL builds the API URL for a row lookup (row >= 0) or a keyword search.
func passagesURL(serverURL, query string, row, limit, chapter int, fuzzy bool) string {
	if row >= 0 {
		return serverURL + "/api/v1/passages/" + strconv.Itoa(row)
	}
	v := url.Values{}
	v.Set("q", query)
	v.Set("limit", strconv.Itoa(limit))
	if chapter > 0 {
		v.Set("chapter", strconv.Itoa(chapter))
	}
	if fuzzy {
		v.Set("fuzzy", "true")
	}
	return serverURL + "/api/v1/passages?" + v.Encode()
}

func passagesViaHTTP(serverURL, query string, row, limit, chapter int, fuzzy bool) (*cli.PassageList, error) {
	resp, err := http.Get(passagesURL(serverURL, query, row, limit, chapter, fuzzy))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}
	if row >= 0 {
		var p models.Passage
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &cli.PassageList{Query: fmt.Sprintf("row %d", row), Passages: []models.Passage{p}}, nil
	}
	var list cli.PassageList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &list, nil
}

func passagesDirect(configPath, query string, row, limit, chapter int, fuzzy bool) (*cli.PassageList, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Storage.PassagesFormat, cfg.Storage.PassagesPath, cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	if row >= 0 {
		p, ok := store.Get(row)
		if !ok {
			return nil, fmt.Errorf("row %d out of range (table has %d rows)", row, store.Len())
		}
		return &cli.PassageList{Query: fmt.Sprintf("row %d", row), Passages: []models.Passage{p}}, nil
	}

	// In-memory index: the server may hold the on-disk one open.
	idx, err := keyword.BuildPassageIndex("", store.All())
	if err != nil {
		return nil, err
	}
	defer idx.Close()
	results, err := idx.Search(ctx, query, limit, &keyword.SearchOptions{Chapter: chapter, FuzzyEnabled: fuzzy, PhraseBoost: 1.5})
	if err != nil {
		return nil, err
	}
	list := &cli.PassageList{Query: query}
	for _, r := range results {
		if p, ok := store.Get(r.Row); ok {
			list.Passages = append(list.Passages, p)
			list.Scores = append(list.Scores, r.Score)
		}
	}
	if len(list.Passages) == 0 {
		list.Suggestion = keyword.NewSpellChecker(idx).GetSuggestedQuery(query)
	}
	return list, nil
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	dbPath := fs.String("db", "", "SQLite database to write (default: storage.database_path)")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	csvPath := cfg.Storage.PassagesPath
	if fs.NArg() > 0 {
		csvPath = fs.Arg(0)
	}
	target := cfg.Storage.DatabasePath
	if *dbPath != "" {
		target = *dbPath
	}

	n, err := importPassages(context.Background(), csvPath, target)
	if err != nil {
		logger.Fatal("Import failed", zap.String("csv", csvPath), zap.String("db", target), zap.Error(err))
	}
	logger.Info("passages imported", zap.Int("rows", n), zap.String("db", target))
	fmt.Printf("Imported %d passages into %s\n", n, target)
}

// importPassages copies the CSV passage table into SQLite, replacing any previous rows.
func importPassages(ctx context.Context, csvPath, dbPath string) (int, error) {
	passages, err := storage.LoadCSV(csvPath)
	if err != nil {
		return 0, err
	}
	db, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	if err := db.ReplaceAll(ctx, passages); err != nil {
		return 0, err
	}
	return len(passages), nil
}

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	Passages         int                    `json:"passages"`
	VectorIndexSize  int                    `json:"vector_index_size"`
	KeywordIndexSize *uint64                `json:"keyword_index_size,omitempty"`
	DiskUsageBytes   *int64                 `json:"disk_usage_bytes,omitempty"`
	Config           map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path (for direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = inspect files directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var (
		status *statusResponse
		err    error
	)
	if *serverURL != "" {
		status, err = statusViaHTTP(*serverURL)
	} else {
		status, err = statusDirect(*configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		writeStatusText(os.Stdout, status)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func writeStatusText(w io.Writer, status *statusResponse) {
	fmt.Fprintf(w, "passages:           %d   # rows in the passage table\n", status.Passages)
	fmt.Fprintf(w, "vector_index_size:  %d   # vectors in the semantic index\n", status.VectorIndexSize)
	if status.KeywordIndexSize != nil {
		fmt.Fprintf(w, "keyword_index_size: %d\n", *status.KeywordIndexSize)
	}
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # passages + indices on disk\n", *status.DiskUsageBytes)
	}
	if len(status.Config) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	for _, key := range []string{"vector_index_type", "embedding_provider", "embedding_dimensions", "generation_provider", "generation_model", "top_k", "min_similarity", "passages_format", "passages_path", "vector_index_path"} {
		if v, ok := status.Config[key]; ok {
			fmt.Fprintf(w, "%-20s%v\n", key+":", v)
		}
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func statusDirect(configPath string) (*statusResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	store, vectors, err := loadResources(context.Background(), cfg, zap.NewNop())
	if err != nil {
		return nil, err
	}
	defer vectors.Close()

	passagesPath := cfg.Storage.PassagesPath
	if cfg.Storage.PassagesFormat == storage.FormatSQLite {
		passagesPath = cfg.Storage.DatabasePath
	}
	status := &statusResponse{
		Passages:        store.Len(),
		VectorIndexSize: vectors.Size(),
		Config: map[string]interface{}{
			"vector_index_type":    vectors.Type(),
			"embedding_provider":   cfg.Embedding.Provider,
			"embedding_dimensions": vectors.Dimensions(),
			"generation_provider":  cfg.Generation.Provider,
			"generation_model":     cfg.Generation.Model,
			"top_k":                cfg.Retrieval.TopK,
			"min_similarity":       cfg.Retrieval.Threshold(),
			"passages_format":      cfg.Storage.PassagesFormat,
			"passages_path":        passagesPath,
			"vector_index_path":    cfg.Storage.VectorIndexPath,
		},
	}
	if diskBytes, err := storage.DiskUsageBytes(passagesPath, cfg.Storage.VectorIndexPath, cfg.Storage.KeywordIndexPath); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func printUsage() {
	fmt.Println(`ayat - question answering over a verse-indexed text

Usage:
  ayat server [flags]              Start the HTTP server
  ayat ask [flags] <question>      Ask a question (keeps conversation history)
  ayat passages [flags] <words>    Keyword lookup of passages
  ayat import [flags] [csv]        Copy the CSV passage table into SQLite
  ayat status [flags]              Show passage table and index status
  ayat version                     Show version
  ayat help                        Show this help

Server Flags:
  --config string    Config file path (default: ./config.yaml if present, else built-in defaults)
  --debug            Enable debug logging

Ask Flags:
  --server string    Server URL (default: http://localhost:7860)
  --history string   Conversation history file (default: ~/.ayat/history.json)
  --new              Start a new conversation
  --output string    Output format: text or json (default: text)

Passages Flags:
  --server string    Server URL. Use empty (--server "") to read the passage table directly.
  --limit int        Number of results (default: 10)
  --chapter int      Restrict to one chapter
  --fuzzy            Enable typo tolerance
  --row int          Print one passage by row number
  --output string    Output format: text or json

Import Flags:
  --config string    Config file path
  --db string        SQLite database to write (default: storage.database_path)

Status Flags:
  --server string    Server URL. Use empty (--server "") to inspect files directly.
  --output string    Output format: text or json (default: text)

Environment:
  PORT, LLM_MODEL, EMBEDDING_MODEL, AYAT_DEBUG and the API key variable
  (default GEMINI_API_KEY) override the config file. A .env file in the
  working directory is loaded first.

Examples:
  ayat server
  ayat ask what is said about patience
  ayat ask --new --output json "who is the Lord of the worlds"
  ayat passages --chapter 2 patience
  ayat passages -row 42
  ayat import ./data/passages.csv
  ayat status --output json`)
}
