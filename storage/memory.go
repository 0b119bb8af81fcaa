// Package storage provides the Store backends: an in-memory map store, a
// BoltDB file store and a MongoDB store. The backend is chosen at startup;
// all three implement repository.Store with the same semantics.
package storage

import (
	"context"
	"sort"
	"sync"

	"raglab/pkg/chunking"
	"raglab/pkg/embedding"
	"raglab/repository"
)

// Memory keeps everything in maps. It is the default backend and the one
// used by tests; contents are lost on restart.
type Memory struct {
	mu             sync.RWMutex
	documents      map[string]repository.Document
	chunks         map[string][]chunking.Chunk
	embeddings     map[string][]embedding.Record
	configurations map[string]repository.StoredConfig
	history        []repository.QueryRecord
}

func NewMemory() *Memory {
	return &Memory{
		documents:      make(map[string]repository.Document),
		chunks:         make(map[string][]chunking.Chunk),
		embeddings:     make(map[string][]embedding.Record),
		configurations: make(map[string]repository.StoredConfig),
	}
}

func (s *Memory) CreateDocument(ctx context.Context, doc *repository.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

func (s *Memory) Document(ctx context.Context, id string) (*repository.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &doc, nil
}

func (s *Memory) Documents(ctx context.Context) ([]*repository.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]*repository.Document, 0, len(s.documents))
	for id := range s.documents {
		doc := s.documents[id]
		docs = append(docs, &doc)
	}
	sortDocuments(docs)
	return docs, nil
}

func (s *Memory) UpdateDocument(ctx context.Context, doc *repository.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.ID]; !ok {
		return repository.ErrNotFound
	}
	s.documents[doc.ID] = *doc
	return nil
}

func (s *Memory) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.chunks, id)
	delete(s.embeddings, id)
	return nil
}

func (s *Memory) StoreChunks(ctx context.Context, documentID string, chunks []chunking.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[documentID]; !ok {
		return repository.ErrNotFound
	}
	s.chunks[documentID] = append([]chunking.Chunk(nil), chunks...)
	return nil
}

func (s *Memory) Chunks(ctx context.Context, documentID string) ([]chunking.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.documents[documentID]; !ok {
		return nil, repository.ErrNotFound
	}
	return append([]chunking.Chunk(nil), s.chunks[documentID]...), nil
}

func (s *Memory) StoreEmbeddings(ctx context.Context, documentID string, records []embedding.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[documentID]; !ok {
		return repository.ErrNotFound
	}
	s.embeddings[documentID] = append([]embedding.Record(nil), records...)
	return nil
}

func (s *Memory) Embeddings(ctx context.Context, documentID string) ([]embedding.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.documents[documentID]; !ok {
		return nil, repository.ErrNotFound
	}
	return append([]embedding.Record(nil), s.embeddings[documentID]...), nil
}

func (s *Memory) SaveConfiguration(ctx context.Context, cfg *repository.StoredConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configurations[cfg.ID] = *cfg
	return nil
}

func (s *Memory) Configurations(ctx context.Context) ([]*repository.StoredConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	configs := make([]*repository.StoredConfig, 0, len(s.configurations))
	for id := range s.configurations {
		cfg := s.configurations[id]
		configs = append(configs, &cfg)
	}
	sortConfigurations(configs)
	return configs, nil
}

func (s *Memory) AddQuery(ctx context.Context, rec repository.QueryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, rec)
	if len(s.history) > repository.HistoryCap {
		s.history = s.history[len(s.history)-repository.HistoryCap:]
	}
	return nil
}

func (s *Memory) QueryHistory(ctx context.Context, limit int) ([]repository.QueryRecord, error) {
	if limit <= 0 {
		limit = repository.DefaultHistoryLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit > len(s.history) {
		limit = len(s.history)
	}
	tail := s.history[len(s.history)-limit:]
	return append([]repository.QueryRecord(nil), tail...), nil
}

func (s *Memory) Stats(ctx context.Context) (repository.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := repository.Stats{
		DocumentCount:      len(s.documents),
		ConfigurationCount: len(s.configurations),
		QueryHistoryCount:  len(s.history),
	}
	for _, chunks := range s.chunks {
		stats.ChunkCount += len(chunks)
	}
	for _, records := range s.embeddings {
		stats.EmbeddingCount += len(records)
	}
	return stats, nil
}

func sortDocuments(docs []*repository.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].UploadedAt.Before(docs[j].UploadedAt)
	})
}

func sortConfigurations(configs []*repository.StoredConfig) {
	sort.Slice(configs, func(i, j int) bool {
		if configs[i].CreatedAt.Equal(configs[j].CreatedAt) {
			return configs[i].ID < configs[j].ID
		}
		return configs[i].CreatedAt.Before(configs[j].CreatedAt)
	})
}
