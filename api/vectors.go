package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"raglab/repository"
)

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	backend := r.URL.Query().Get("backend")
	if backend != "" {
		collections, err := s.vectors.Collections(r.Context(), backend)
		if err != nil {
			s.respondFailure(w, err, "failed to list collections", http.StatusBadGateway)
			return
		}
		s.respond(w, http.StatusOK, "collections retrieved", map[string]any{
			"collections": map[string][]string{backend: collections},
		})
		return
	}
	s.respond(w, http.StatusOK, "collections retrieved", map[string]any{
		"collections": s.vectors.ListCollections(r.Context()),
	})
}

func (s *Server) handleCollectionStats(w http.ResponseWriter, r *http.Request) {
	backend := r.URL.Query().Get("backend")
	if backend == "" {
		backend = defaultBackend
	}
	info, err := s.vectors.Stats(r.Context(), backend, r.PathValue("name"))
	if err != nil {
		s.respondFailure(w, err, "failed to read collection stats", http.StatusBadGateway)
		return
	}
	s.respond(w, http.StatusOK, "collection stats retrieved", info)
}

func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	backend := r.URL.Query().Get("backend")
	if backend == "" {
		backend = defaultBackend
	}
	name := r.PathValue("name")
	if err := s.vectors.DeleteCollection(r.Context(), backend, name); err != nil {
		s.respondFailure(w, err, "failed to delete collection", http.StatusBadGateway)
		return
	}
	s.respond(w, http.StatusOK, "collection deleted", map[string]any{
		"collection": name,
		"backend":    backend,
	})
}

type searchRequest struct {
	Query      string `json:"query"`
	Collection string `json:"collection"`
	Backend    string `json:"backend"`
	TopK       int    `json:"top_k"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Collection == "" {
		req.Collection = defaultCollection
	}
	if req.Backend == "" {
		req.Backend = defaultBackend
	}

	results, info, err := s.vectors.SearchText(r.Context(), req.Backend, req.Collection, req.Query, req.TopK)
	if err != nil {
		s.respondFailure(w, err, "search failed", http.StatusBadGateway)
		return
	}

	s.recordQuery(r.Context(), req.Query, len(results), map[string]any{
		"mode":       "search",
		"backend":    req.Backend,
		"collection": req.Collection,
		"top_k":      req.TopK,
	})

	s.respond(w, http.StatusOK, "search complete", map[string]any{
		"query":      req.Query,
		"results":    results,
		"count":      len(results),
		"backend":    info.Backend,
		"collection": req.Collection,
		"model_name": info.ModelName,
	})
}

// recordQuery appends to the query history. History is best effort; a store
// failure is logged, not surfaced.
func (s *Server) recordQuery(ctx context.Context, query string, results int, config map[string]any) {
	rec := repository.QueryRecord{
		Query:     query,
		Results:   results,
		Config:    config,
		Timestamp: time.Now(),
	}
	if err := s.store.AddQuery(ctx, rec); err != nil {
		s.log.Warn("query_history_not_recorded", zap.Error(err))
	}
}
