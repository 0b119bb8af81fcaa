// Package vectorstore routes vector operations to the configured index
// backends and embeds ad-hoc query text for similarity search.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"raglab/pkg/embedding"
	"raglab/repository"
)

// DefaultTopK is used when a search request does not say how many hits it
// wants.
const DefaultTopK = 5

var (
	// ErrUnknownBackend is returned when a request names a backend that was
	// never registered.
	ErrUnknownBackend = errors.New("vectorstore: unknown backend")

	// ErrModelMismatch is returned when a collection cannot serve a text
	// query with the configured embedding model.
	ErrModelMismatch = errors.New("vectorstore: incompatible embedding model")
)

// Manager holds the registered index backends. Query text is embedded with
// the dense model; TF-IDF collections cannot serve text queries because the
// vectorizer is fitted per document corpus.
type Manager struct {
	indexes  map[string]repository.VectorIndex
	embedder embedding.Model
	log      *zap.Logger
}

func NewManager(embedder embedding.Model, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		indexes:  make(map[string]repository.VectorIndex),
		embedder: embedder,
		log:      log,
	}
}

func (m *Manager) Register(name string, index repository.VectorIndex) {
	m.indexes[name] = index
}

// Backends returns the registered backend names, sorted.
func (m *Manager) Backends() []string {
	names := make([]string, 0, len(m.indexes))
	for name := range m.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) index(backend string) (repository.VectorIndex, error) {
	index, ok := m.indexes[backend]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)",
			ErrUnknownBackend, backend, strings.Join(m.Backends(), ", "))
	}
	return index, nil
}

func (m *Manager) AddVectors(ctx context.Context, backend, collection string, records []repository.VectorRecord, meta repository.CollectionMeta) error {
	index, err := m.index(backend)
	if err != nil {
		return err
	}
	return index.AddVectors(ctx, collection, records, meta)
}

func (m *Manager) Search(ctx context.Context, backend, collection string, vector []float32, topK int) ([]repository.SearchResult, error) {
	index, err := m.index(backend)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return index.Search(ctx, collection, vector, topK)
}

// SearchText embeds the query with the dense model and searches the
// collection. The collection must have been filled by the same model.
func (m *Manager) SearchText(ctx context.Context, backend, collection, query string, topK int) ([]repository.SearchResult, repository.CollectionInfo, error) {
	index, err := m.index(backend)
	if err != nil {
		return nil, repository.CollectionInfo{}, err
	}
	info, err := index.Stats(ctx, collection)
	if err != nil {
		return nil, repository.CollectionInfo{}, err
	}
	if info.ModelType == embedding.ModelTypeTFIDF {
		return nil, info, fmt.Errorf("%w: collection %q holds tfidf vectors; text search requires a dense embedding model",
			ErrModelMismatch, collection)
	}
	if m.embedder == nil {
		return nil, info, fmt.Errorf("%w: no dense embedding model configured", ErrModelMismatch)
	}
	if info.ModelName != "" && info.ModelName != "unknown" && info.ModelName != m.embedder.ModelName() {
		return nil, info, fmt.Errorf("%w: collection %q was embedded with %s, server embeds with %s",
			ErrModelMismatch, collection, info.ModelName, m.embedder.ModelName())
	}

	vectors, err := m.embedder.GetEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, info, fmt.Errorf("vectorstore: embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, info, fmt.Errorf("vectorstore: expected one query vector, got %d", len(vectors))
	}
	if info.Dimension > 0 && len(vectors[0]) != info.Dimension {
		return nil, info, fmt.Errorf("%w: query embedding dimension %d does not match collection dimension %d",
			ErrModelMismatch, len(vectors[0]), info.Dimension)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	results, err := index.Search(ctx, collection, vectors[0], topK)
	if err != nil {
		return nil, info, err
	}
	return results, info, nil
}

// ListCollections lists each backend's collections. A backend that cannot
// be reached is reported empty rather than failing the whole call.
func (m *Manager) ListCollections(ctx context.Context) map[string][]string {
	out := make(map[string][]string, len(m.indexes))
	for name, index := range m.indexes {
		collections, err := index.ListCollections(ctx)
		if err != nil {
			m.log.Warn("failed to list collections", zap.String("backend", name), zap.Error(err))
			out[name] = []string{}
			continue
		}
		if collections == nil {
			collections = []string{}
		}
		sort.Strings(collections)
		out[name] = collections
	}
	return out
}

// Collections lists one backend's collections, sorted.
func (m *Manager) Collections(ctx context.Context, backend string) ([]string, error) {
	index, err := m.index(backend)
	if err != nil {
		return nil, err
	}
	collections, err := index.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	if collections == nil {
		collections = []string{}
	}
	sort.Strings(collections)
	return collections, nil
}

func (m *Manager) DeleteCollection(ctx context.Context, backend, collection string) error {
	index, err := m.index(backend)
	if err != nil {
		return err
	}
	return index.DeleteCollection(ctx, collection)
}

func (m *Manager) Stats(ctx context.Context, backend, collection string) (repository.CollectionInfo, error) {
	index, err := m.index(backend)
	if err != nil {
		return repository.CollectionInfo{}, err
	}
	return index.Stats(ctx, collection)
}
