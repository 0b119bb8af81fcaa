package api

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"raglab/pkg/chunking"
	"raglab/pkg/embedding"
	"raglab/repository"
)

// defaultCollection is used when an index or search request does not name
// one.
const defaultCollection = "documents"

// defaultBackend is the vector backend used when a request does not name
// one. The local index is always registered.
const defaultBackend = "local"

type chunkRequest struct {
	DocumentID string   `json:"document_id"`
	Strategy   string   `json:"strategy"`
	ChunkSize  int      `json:"chunk_size"`
	Overlap    *int     `json:"overlap"`
	Separators []string `json:"separators"`
	Stride     int      `json:"stride"`
}

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	var req chunkRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	if req.DocumentID == "" {
		s.respondError(w, http.StatusBadRequest, "document_id is required")
		return
	}

	doc, err := s.store.Document(r.Context(), req.DocumentID)
	if err != nil {
		s.respondFailure(w, err, "failed to load document", http.StatusInternalServerError)
		return
	}
	if strings.TrimSpace(doc.Text) == "" {
		s.respondError(w, http.StatusBadRequest, "document has no extracted text")
		return
	}

	cfg := chunking.Config{
		Strategy:   req.Strategy,
		ChunkSize:  req.ChunkSize,
		Overlap:    chunking.DefaultOverlap,
		Separators: req.Separators,
		Stride:     req.Stride,
	}
	if cfg.Strategy == "" {
		cfg.Strategy = chunking.StrategyFixed
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = chunking.DefaultChunkSize
	}
	if req.Overlap != nil {
		cfg.Overlap = *req.Overlap
	}

	chunks, err := s.chunker.Split(doc.Text, doc.ID, cfg)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid chunking configuration", err)
		return
	}
	if err := s.store.StoreChunks(r.Context(), doc.ID, chunks); err != nil {
		s.respondFailure(w, err, "failed to store chunks", http.StatusInternalServerError)
		return
	}

	s.log.Info("document_chunked",
		zap.String("document_id", doc.ID),
		zap.String("strategy", cfg.Strategy),
		zap.Int("chunks", len(chunks)))
	s.respond(w, http.StatusOK, "document chunked", map[string]any{
		"document_id":  doc.ID,
		"strategy":     cfg.Strategy,
		"chunks":       chunks,
		"statistics":   chunking.Stats(chunks),
		"total_chunks": len(chunks),
	})
}

func (s *Server) handleGetChunks(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	chunks, err := s.store.Chunks(r.Context(), id)
	if err != nil {
		s.respondFailure(w, err, "failed to load chunks", http.StatusInternalServerError)
		return
	}
	s.respond(w, http.StatusOK, "chunks retrieved", map[string]any{
		"document_id": id,
		"chunks":      chunks,
		"statistics":  chunking.Stats(chunks),
		"count":       len(chunks),
	})
}

type embedRequest struct {
	DocumentID  string `json:"document_id"`
	ModelType   string `json:"model_type"`
	MaxFeatures int    `json:"max_features"`
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	if req.DocumentID == "" {
		s.respondError(w, http.StatusBadRequest, "document_id is required")
		return
	}

	chunks, err := s.store.Chunks(r.Context(), req.DocumentID)
	if err != nil {
		s.respondFailure(w, err, "failed to load chunks", http.StatusInternalServerError)
		return
	}
	if len(chunks) == 0 {
		s.respondError(w, http.StatusBadRequest, "document has no chunks; run chunking first")
		return
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var model embedding.Model
	switch req.ModelType {
	case "", embedding.ModelTypeTFIDF:
		tfidf := embedding.NewTFIDF(req.MaxFeatures)
		if err := tfidf.Fit(texts); err != nil {
			s.respondError(w, http.StatusBadRequest, "failed to fit tfidf vocabulary", err)
			return
		}
		model = tfidf
	case embedding.ModelTypeSentenceTransformer:
		if s.dense == nil {
			s.respondError(w, http.StatusBadRequest, "no dense embedding service is configured")
			return
		}
		model = s.dense
	default:
		s.respondError(w, http.StatusBadRequest, "unsupported model type",
			fmt.Errorf("model type %q is not supported (allowed: %s, %s)",
				req.ModelType, embedding.ModelTypeTFIDF, embedding.ModelTypeSentenceTransformer))
		return
	}

	vectors, err := model.GetEmbeddings(r.Context(), texts)
	if err != nil {
		status := http.StatusInternalServerError
		if req.ModelType == embedding.ModelTypeSentenceTransformer {
			status = http.StatusBadGateway
		}
		s.respondError(w, status, "embedding failed", err)
		return
	}

	records, err := embedding.BuildRecords(chunks, vectors, model.ModelType(), model.ModelName())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to build embedding records", err)
		return
	}
	if err := s.store.StoreEmbeddings(r.Context(), req.DocumentID, records); err != nil {
		s.respondFailure(w, err, "failed to store embeddings", http.StatusInternalServerError)
		return
	}

	stats := embedding.Stats(records)
	s.log.Info("document_embedded",
		zap.String("document_id", req.DocumentID),
		zap.String("model_type", model.ModelType()),
		zap.Int("embeddings", len(records)))
	s.respond(w, http.StatusOK, "chunks embedded", map[string]any{
		"document_id": req.DocumentID,
		"model_type":  model.ModelType(),
		"model_name":  model.ModelName(),
		"dimension":   stats.Dimension,
		"statistics":  stats,
		"count":       len(records),
	})
}

func (s *Server) handleGetEmbeddings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	records, err := s.store.Embeddings(r.Context(), id)
	if err != nil {
		s.respondFailure(w, err, "failed to load embeddings", http.StatusInternalServerError)
		return
	}
	s.respond(w, http.StatusOK, "embeddings retrieved", map[string]any{
		"document_id": id,
		"statistics":  embedding.Stats(records),
		"count":       len(records),
	})
}

type indexRequest struct {
	DocumentID string `json:"document_id"`
	Collection string `json:"collection"`
	Backend    string `json:"backend"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	if req.DocumentID == "" {
		s.respondError(w, http.StatusBadRequest, "document_id is required")
		return
	}
	if req.Collection == "" {
		req.Collection = defaultCollection
	}
	if req.Backend == "" {
		req.Backend = defaultBackend
	}

	doc, err := s.store.Document(r.Context(), req.DocumentID)
	if err != nil {
		s.respondFailure(w, err, "failed to load document", http.StatusInternalServerError)
		return
	}
	records, err := s.store.Embeddings(r.Context(), req.DocumentID)
	if err != nil {
		s.respondFailure(w, err, "failed to load embeddings", http.StatusInternalServerError)
		return
	}
	if len(records) == 0 {
		s.respondError(w, http.StatusBadRequest, "document has no embeddings; run embedding first")
		return
	}
	chunks, err := s.store.Chunks(r.Context(), req.DocumentID)
	if err != nil {
		s.respondFailure(w, err, "failed to load chunks", http.StatusInternalServerError)
		return
	}
	byID := make(map[string]chunking.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ChunkID] = c
	}

	vecs := make([]repository.VectorRecord, 0, len(records))
	for _, rec := range records {
		chunk, ok := byID[rec.ChunkID]
		if !ok {
			s.respondError(w, http.StatusBadRequest, "stored chunks changed since embedding; re-run embedding")
			return
		}
		vecs = append(vecs, repository.VectorRecord{
			ID:         rec.EmbeddingID,
			Vector:     rec.Vector,
			ChunkID:    rec.ChunkID,
			DocumentID: rec.DocumentID,
			Text:       chunk.Text,
			Filename:   doc.Filename,
			ChunkIndex: chunk.ChunkIndex,
			ModelType:  rec.ModelType,
			ModelName:  rec.ModelName,
		})
	}

	first := records[0]
	meta := repository.CollectionMeta{
		ModelType: first.ModelType,
		ModelName: first.ModelName,
		Dimension: first.Dimension,
	}
	if err := s.vectors.AddVectors(r.Context(), req.Backend, req.Collection, vecs, meta); err != nil {
		s.respondFailure(w, err, "failed to index vectors", http.StatusBadGateway)
		return
	}

	s.log.Info("document_indexed",
		zap.String("document_id", req.DocumentID),
		zap.String("backend", req.Backend),
		zap.String("collection", req.Collection),
		zap.Int("vectors", len(vecs)))
	s.respond(w, http.StatusOK, "vectors indexed", map[string]any{
		"document_id":   req.DocumentID,
		"collection":    req.Collection,
		"backend":       req.Backend,
		"vectors_added": len(vecs),
		"model_type":    first.ModelType,
		"dimension":     first.Dimension,
	})
}
