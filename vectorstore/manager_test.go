package vectorstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"raglab/pkg/embedding"
	"raglab/pkg/localvec"
	"raglab/repository"
)

type stubModel struct {
	name string
	vec  []float32
	err  error
}

func (s stubModel) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = s.vec
	}
	return out, nil
}

func (s stubModel) ModelType() string { return embedding.ModelTypeSentenceTransformer }
func (s stubModel) ModelName() string { return s.name }

type failingIndex struct{}

func (failingIndex) AddVectors(ctx context.Context, collection string, records []repository.VectorRecord, meta repository.CollectionMeta) error {
	return errors.New("backend down")
}

func (failingIndex) Search(ctx context.Context, collection string, vector []float32, topK int) ([]repository.SearchResult, error) {
	return nil, errors.New("backend down")
}

func (failingIndex) ListCollections(ctx context.Context) ([]string, error) {
	return nil, errors.New("backend down")
}

func (failingIndex) DeleteCollection(ctx context.Context, collection string) error {
	return errors.New("backend down")
}

func (failingIndex) Stats(ctx context.Context, collection string) (repository.CollectionInfo, error) {
	return repository.CollectionInfo{}, errors.New("backend down")
}

func newLocalIndex(t *testing.T) *localvec.Index {
	x := localvec.New(filepath.Join(t.TempDir(), "vectors.db"))
	require.NoError(t, x.Init())
	t.Cleanup(func() {
		require.NoError(t, x.Close())
	})
	return x
}

func seedCollection(t *testing.T, m *Manager, modelType, modelName string) {
	records := []repository.VectorRecord{
		{ID: "rec-a", ChunkID: "chunk-a", Text: "alpha", Vector: []float32{1, 0}},
		{ID: "rec-b", ChunkID: "chunk-b", Text: "beta", Vector: []float32{0, 1}},
	}
	meta := repository.CollectionMeta{ModelType: modelType, ModelName: modelName, Dimension: 2}
	require.NoError(t, m.AddVectors(context.Background(), "local", "docs", records, meta))
}

func TestManager_UnknownBackend(t *testing.T) {
	m := NewManager(stubModel{name: "stub"}, zap.NewNop())
	m.Register("local", newLocalIndex(t))
	ctx := context.Background()

	err := m.AddVectors(ctx, "nope", "docs", nil, repository.CollectionMeta{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownBackend)
	assert.Contains(t, err.Error(), "local")

	_, _, err = m.SearchText(ctx, "nope", "docs", "hello", 3)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestManager_SearchText(t *testing.T) {
	embedder := stubModel{name: "all-MiniLM-L6-v2", vec: []float32{1, 0}}
	m := NewManager(embedder, zap.NewNop())
	m.Register("local", newLocalIndex(t))
	seedCollection(t, m, embedding.ModelTypeSentenceTransformer, "all-MiniLM-L6-v2")

	results, info, err := m.SearchText(context.Background(), "local", "docs", "find alpha", 0)
	require.NoError(t, err)
	assert.Equal(t, "local", info.Backend)
	assert.Equal(t, 2, info.VectorCount)
	require.Len(t, results, 2)
	assert.Equal(t, "rec-a", results[0].ID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-4)
}

func TestManager_SearchTextRejectsTfidf(t *testing.T) {
	embedder := stubModel{name: "all-MiniLM-L6-v2", vec: []float32{1, 0}}
	m := NewManager(embedder, zap.NewNop())
	m.Register("local", newLocalIndex(t))
	seedCollection(t, m, embedding.ModelTypeTFIDF, "tfidf-snowball")

	_, _, err := m.SearchText(context.Background(), "local", "docs", "find alpha", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelMismatch)
	assert.Contains(t, err.Error(), "tfidf")
}

func TestManager_SearchTextModelMismatch(t *testing.T) {
	embedder := stubModel{name: "some-other-model", vec: []float32{1, 0}}
	m := NewManager(embedder, zap.NewNop())
	m.Register("local", newLocalIndex(t))
	seedCollection(t, m, embedding.ModelTypeSentenceTransformer, "all-MiniLM-L6-v2")

	_, _, err := m.SearchText(context.Background(), "local", "docs", "find alpha", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelMismatch)
	assert.Contains(t, err.Error(), "embedded with all-MiniLM-L6-v2")
}

func TestManager_SearchTextDimensionMismatch(t *testing.T) {
	embedder := stubModel{name: "all-MiniLM-L6-v2", vec: []float32{1, 0, 0}}
	m := NewManager(embedder, zap.NewNop())
	m.Register("local", newLocalIndex(t))
	seedCollection(t, m, embedding.ModelTypeSentenceTransformer, "all-MiniLM-L6-v2")

	_, _, err := m.SearchText(context.Background(), "local", "docs", "find alpha", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension 3 does not match collection dimension 2")
}

func TestManager_SearchTextMissingCollection(t *testing.T) {
	embedder := stubModel{name: "all-MiniLM-L6-v2", vec: []float32{1, 0}}
	m := NewManager(embedder, zap.NewNop())
	m.Register("local", newLocalIndex(t))

	_, _, err := m.SearchText(context.Background(), "local", "absent", "find alpha", 3)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestManager_ListCollections(t *testing.T) {
	m := NewManager(stubModel{name: "stub"}, zap.NewNop())
	m.Register("local", newLocalIndex(t))
	m.Register("qdrant", failingIndex{})
	seedCollection(t, m, embedding.ModelTypeSentenceTransformer, "all-MiniLM-L6-v2")

	out := m.ListCollections(context.Background())
	assert.Equal(t, map[string][]string{
		"local":  {"docs"},
		"qdrant": {},
	}, out)
	assert.Equal(t, []string{"local", "qdrant"}, m.Backends())
}
