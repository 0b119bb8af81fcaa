package api

import (
	"net/http"
	"strconv"
	"strings"

	"raglab/rag"
	"raglab/repository"
)

// defaultProvider matches the most commonly configured provider; requests
// that name none get it and fail with the available list if it is not
// registered.
const defaultProvider = "openai"

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	providers := s.engine.Providers()
	s.respond(w, http.StatusOK, "providers retrieved", map[string]any{
		"providers": providers,
		"models":    s.engine.Models(),
		"count":     len(providers),
	})
}

type ragQueryRequest struct {
	Question     string  `json:"question"`
	Provider     string  `json:"provider"`
	Collection   string  `json:"collection"`
	Backend      string  `json:"backend"`
	TopK         int     `json:"top_k"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	SystemPrompt string  `json:"system_prompt"`
}

func (s *Server) handleRAGQuery(w http.ResponseWriter, r *http.Request) {
	var req ragQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.Provider == "" {
		req.Provider = defaultProvider
	}
	if req.Collection == "" {
		req.Collection = defaultCollection
	}
	if req.Backend == "" {
		req.Backend = defaultBackend
	}

	res, err := s.engine.Query(r.Context(), rag.QueryRequest{
		Question:     req.Question,
		Provider:     req.Provider,
		Backend:      req.Backend,
		Collection:   req.Collection,
		TopK:         req.TopK,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
		SystemPrompt: req.SystemPrompt,
	})
	if err != nil {
		s.respondFailure(w, err, "rag query failed", http.StatusBadGateway)
		return
	}

	s.recordQuery(r.Context(), req.Question, res.NumChunks, map[string]any{
		"mode":       "rag",
		"provider":   req.Provider,
		"backend":    req.Backend,
		"collection": req.Collection,
		"top_k":      req.TopK,
	})
	s.respond(w, http.StatusOK, "query answered", res)
}

type ragCompareRequest struct {
	Question    string   `json:"question"`
	Collection  string   `json:"collection"`
	Backend     string   `json:"backend"`
	Providers   []string `json:"providers"`
	TopK        int      `json:"top_k"`
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
}

func (s *Server) handleRAGCompare(w http.ResponseWriter, r *http.Request) {
	var req ragCompareRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.Collection == "" {
		req.Collection = defaultCollection
	}
	if req.Backend == "" {
		req.Backend = defaultBackend
	}

	res, err := s.engine.Compare(r.Context(), rag.QueryRequest{
		Question:    req.Question,
		Backend:     req.Backend,
		Collection:  req.Collection,
		TopK:        req.TopK,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, req.Providers)
	if err != nil {
		s.respondFailure(w, err, "rag compare failed", http.StatusBadGateway)
		return
	}
	s.respond(w, http.StatusOK, "comparison complete", res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	history, err := s.store.QueryHistory(r.Context(), limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to load query history", err)
		return
	}
	s.respond(w, http.StatusOK, "history retrieved", map[string]any{
		"history": history,
		"count":   len(history),
	})
}

type saveConfigRequest struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config"`
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var req saveConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	cfg := repository.NewStoredConfig(req.Name, req.Config)
	if err := s.store.SaveConfiguration(r.Context(), cfg); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to save configuration", err)
		return
	}
	s.respond(w, http.StatusCreated, "configuration saved", cfg)
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.store.Configurations(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to list configurations", err)
		return
	}
	s.respond(w, http.StatusOK, "configurations retrieved", map[string]any{
		"configurations": configs,
		"count":          len(configs),
	})
}
