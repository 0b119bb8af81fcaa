package qdrantdb

import (
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"

	"raglab/repository"
)

func TestModelRegistry(t *testing.T) {
	x := &Index{models: make(map[string]repository.CollectionMeta)}

	_, ok := x.modelFor("docs")
	assert.False(t, ok)

	x.rememberModel("docs", repository.CollectionMeta{
		ModelType: "tfidf", ModelName: "tfidf", Dimension: 256,
	})
	meta, ok := x.modelFor("docs")
	assert.True(t, ok)
	assert.Equal(t, "tfidf", meta.ModelType)
	assert.Equal(t, 256, meta.Dimension)

	// Re-indexing into the same collection with a different model replaces
	// the entry.
	x.rememberModel("docs", repository.CollectionMeta{
		ModelType: "sentence-transformer", ModelName: "all-MiniLM-L6-v2", Dimension: 384,
	})
	meta, _ = x.modelFor("docs")
	assert.Equal(t, "all-MiniLM-L6-v2", meta.ModelName)
	assert.Equal(t, 384, meta.Dimension)

	x.forgetModel("docs")
	_, ok = x.modelFor("docs")
	assert.False(t, ok)

	// Forgetting a collection that was never registered is a no-op.
	x.forgetModel("missing")
}

func TestRecoveredMeta(t *testing.T) {
	info := &qdrant.CollectionInfo{
		Config: &qdrant.CollectionConfig{
			Params: &qdrant.CollectionParams{
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     384,
					Distance: qdrant.Distance_Cosine,
				}),
			},
		},
	}
	meta := recoveredMeta(info, nil)
	assert.Equal(t, repository.CollectionMeta{
		ModelType: "unknown", ModelName: "unknown", Dimension: 384,
	}, meta)
}

func TestRecoveredMetaLookupFailed(t *testing.T) {
	meta := recoveredMeta(nil, errors.New("connection refused"))
	assert.Equal(t, repository.CollectionMeta{ModelType: "unknown", ModelName: "unknown"}, meta)
}

func TestPayloadValue(t *testing.T) {
	assert.Equal(t, "roasting notes", payloadValue(qdrant.NewValueString("roasting notes")))
	assert.Equal(t, 3, payloadValue(qdrant.NewValueInt(3)))
	assert.Equal(t, 0.5, payloadValue(qdrant.NewValueDouble(0.5)))
	assert.Equal(t, true, payloadValue(qdrant.NewValueBool(true)))
	assert.Nil(t, payloadValue(qdrant.NewValueNull()))
}
