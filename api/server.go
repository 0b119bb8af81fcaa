// Package api exposes the ingestion, chunking, embedding, retrieval and RAG
// pipeline over HTTP. Handlers stay thin: they validate, call into the
// pipeline packages and wrap the result in the response envelope.
package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"raglab/extract"
	"raglab/ingest"
	"raglab/pkg/chunking"
	"raglab/pkg/embedding"
	"raglab/rag"
	"raglab/repository"
	"raglab/vectorstore"
)

const (
	// ServiceName and ServiceVersion are reported by the banner endpoint.
	ServiceName    = "raglab"
	ServiceVersion = "1.0.0"

	// maxUploadBytes caps uploads and JSON request bodies.
	maxUploadBytes = 10 << 20
)

// Server handles the HTTP API. All fields are set once at construction and
// never mutated, so a Server is safe for concurrent requests.
type Server struct {
	store     repository.Store
	extractor *extract.Extractor
	fetcher   *ingest.Fetcher
	chunker   *chunking.Chunker
	dense     embedding.Model
	vectors   *vectorstore.Manager
	engine    *rag.Engine
	uploadDir string
	log       *zap.Logger

	httpServer *http.Server
}

// Options carries the wired pipeline components for NewServer. Dense may be
// nil when no embedding service is configured; the embed endpoint then
// rejects sentence_transformer requests.
type Options struct {
	Store     repository.Store
	Extractor *extract.Extractor
	Fetcher   *ingest.Fetcher
	Chunker   *chunking.Chunker
	Dense     embedding.Model
	Vectors   *vectorstore.Manager
	Engine    *rag.Engine
	UploadDir string
	Log       *zap.Logger
}

// NewServer creates the API server.
func NewServer(opts Options) *Server {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.UploadDir == "" {
		opts.UploadDir = "data/uploads"
	}
	return &Server{
		store:     opts.Store,
		extractor: opts.Extractor,
		fetcher:   opts.Fetcher,
		chunker:   opts.Chunker,
		dense:     opts.Dense,
		vectors:   opts.Vectors,
		engine:    opts.Engine,
		uploadDir: opts.UploadDir,
		log:       opts.Log,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/ingest/url", s.handleIngestURL)
	mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	mux.HandleFunc("GET /api/documents/{id}", s.handleGetDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)

	mux.HandleFunc("POST /api/chunk", s.handleChunk)
	mux.HandleFunc("GET /api/documents/{id}/chunks", s.handleGetChunks)
	mux.HandleFunc("POST /api/embed", s.handleEmbed)
	mux.HandleFunc("GET /api/documents/{id}/embeddings", s.handleGetEmbeddings)
	mux.HandleFunc("POST /api/index", s.handleIndex)

	mux.HandleFunc("GET /api/collections", s.handleListCollections)
	mux.HandleFunc("GET /api/collections/{name}", s.handleCollectionStats)
	mux.HandleFunc("DELETE /api/collections/{name}", s.handleDeleteCollection)
	mux.HandleFunc("POST /api/search", s.handleSearch)

	mux.HandleFunc("GET /api/rag/providers", s.handleProviders)
	mux.HandleFunc("POST /api/rag/query", s.handleRAGQuery)
	mux.HandleFunc("POST /api/rag/compare", s.handleRAGCompare)

	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/configs", s.handleSaveConfig)
	mux.HandleFunc("GET /api/configs", s.handleListConfigs)

	return mux
}

// Start serves on addr until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("api_server_listening", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the server, letting in-flight requests finish until ctx
// expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, "service running", map[string]any{
		"service": ServiceName,
		"version": ServiceVersion,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read store stats", err)
		return
	}
	s.respond(w, http.StatusOK, "healthy", map[string]any{
		"status": "healthy",
		"stats":  stats,
	})
}
