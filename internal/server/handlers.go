package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/ayat/internal/keyword"
	"github.com/hyperjump/ayat/internal/models"
	"github.com/hyperjump/ayat/internal/rag"
	"github.com/hyperjump/ayat/internal/storage"
)

const (
	defaultPassageLimit = 10
	maxPassageLimit     = 100
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ask request",
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.String("query", req.Query),
		zap.Int("history_turns", len(req.Turns())),
	)

	resp, err := s.asker.Ask(r.Context(), &req)
	if err != nil {
		var ve *models.ValidationError
		switch {
		case errors.As(err, &ve):
			s.respondError(w, http.StatusBadRequest, ve.Message)
		case errors.Is(err, rag.ErrUpstreamTimeout):
			s.respondError(w, http.StatusGatewayTimeout, "generation timed out")
		case errors.Is(err, rag.ErrUpstream):
			s.respondError(w, http.StatusBadGateway, "upstream model failure")
		default:
			s.logger.Error("ask failed", zap.String("request_id", RequestIDFrom(r.Context())), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"Hello": "World!"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"passages":          s.store.Len(),
		"vector_index_size": s.vectors.Size(),
	}

	configInfo := map[string]interface{}{
		"vector_index_type":    s.vectors.Type(),
		"embedding_dimensions": s.vectors.Dimensions(),
		"embedding_provider":   s.config.Embedding.Provider,
		"generation_provider":  s.config.Generation.Provider,
		"generation_model":     s.config.Generation.Model,
		"top_k":                s.config.Retrieval.TopK,
		"min_similarity":       s.config.Retrieval.Threshold(),
		"passages_format":      s.config.Storage.PassagesFormat,
		"vector_index_path":    s.config.Storage.VectorIndexPath,
	}
	if s.keywords != nil {
		if n, err := s.keywords.DocCount(); err == nil {
			resp["keyword_index_size"] = n
		}
	}

	passagesPath := s.config.Storage.PassagesPath
	if s.config.Storage.PassagesFormat == storage.FormatSQLite {
		passagesPath = s.config.Storage.DatabasePath
	}
	configInfo["passages_path"] = passagesPath
	diskBytes, err := storage.DiskUsageBytes(passagesPath, s.config.Storage.VectorIndexPath, s.config.Storage.KeywordIndexPath)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPassage(w http.ResponseWriter, r *http.Request) {
	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "row must be an integer")
		return
	}
	p, ok := s.store.Get(row)
	if !ok {
		s.respondError(w, http.StatusNotFound, "passage not found")
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

type passageSearchResponse struct {
	Query      string           `json:"query"`
	Passages   []models.Passage `json:"passages"`
	Scores     []float64        `json:"scores"`
	Suggestion string           `json:"suggestion,omitempty"`
}

func (s *Server) handleSearchPassages(w http.ResponseWriter, r *http.Request) {
	if s.keywords == nil {
		s.respondError(w, http.StatusNotImplemented, "keyword search not enabled")
		return
	}
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "Missing q parameter")
		return
	}

	limit := defaultPassageLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxPassageLimit)
	}
	opts := &keyword.SearchOptions{PhraseBoost: 1.5}
	if v := q.Get("chapter"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "chapter must be a positive integer")
			return
		}
		opts.Chapter = n
	}
	if v := q.Get("fuzzy"); v != "" {
		fuzzy, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "fuzzy must be a boolean")
			return
		}
		opts.FuzzyEnabled = fuzzy
	}

	results, err := s.keywords.Search(r.Context(), query, limit, opts)
	if err != nil {
		s.logger.Error("passage search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := passageSearchResponse{
		Query:    query,
		Passages: make([]models.Passage, 0, len(results)),
		Scores:   make([]float64, 0, len(results)),
	}
	for _, res := range results {
		p, ok := s.store.Get(res.Row)
		if !ok {
			continue
		}
		resp.Passages = append(resp.Passages, p)
		resp.Scores = append(resp.Scores, res.Score)
	}
	if len(resp.Passages) == 0 && s.speller != nil {
		resp.Suggestion = s.speller.GetSuggestedQuery(query)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
