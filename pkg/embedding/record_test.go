package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raglab/pkg/chunking"
)

func TestBuildRecords(t *testing.T) {
	t.Run("MismatchedLengths", func(t *testing.T) {
		_, err := BuildRecords([]chunking.Chunk{{ChunkID: "c1"}}, nil, ModelTypeTFIDF, "tfidf-snowball")
		require.Error(t, err)
	})

	t.Run("TfidfMetadata", func(t *testing.T) {
		chunks := []chunking.Chunk{{ChunkID: "c1", DocumentID: "d1"}}
		records, err := BuildRecords(chunks, [][]float32{{0.5, 0, 0.5, 0}}, ModelTypeTFIDF, "tfidf-snowball")
		require.NoError(t, err)
		require.Len(t, records, 1)

		r := records[0]
		assert.NotEmpty(t, r.EmbeddingID)
		assert.Equal(t, "c1", r.ChunkID)
		assert.Equal(t, "d1", r.DocumentID)
		assert.Equal(t, "tfidf", r.ModelType)
		assert.Equal(t, 4, r.Dimension)
		assert.Equal(t, 2.0, r.Metadata["non_zero_features"])
		assert.InDelta(t, 0.5, r.Metadata["sparsity"], 1e-9)
	})

	t.Run("DenseMetadata", func(t *testing.T) {
		chunks := []chunking.Chunk{{ChunkID: "c1", DocumentID: "d1"}}
		records, err := BuildRecords(chunks, [][]float32{{1, 2, 3, 4}}, ModelTypeSentenceTransformer, "all-MiniLM-L6-v2")
		require.NoError(t, err)

		m := records[0].Metadata
		assert.InDelta(t, math.Sqrt(30), m["l2_norm"], 1e-6)
		assert.InDelta(t, 2.5, m["mean"], 1e-9)
		assert.InDelta(t, math.Sqrt(1.25), m["std"], 1e-6)
		assert.Equal(t, 1.0, m["min"])
		assert.Equal(t, 4.0, m["max"])
	})

	t.Run("UniqueEmbeddingIDs", func(t *testing.T) {
		chunks := []chunking.Chunk{{ChunkID: "c1"}, {ChunkID: "c2"}}
		records, err := BuildRecords(chunks, [][]float32{{1}, {2}}, ModelTypeSentenceTransformer, "all-MiniLM-L6-v2")
		require.NoError(t, err)
		assert.NotEqual(t, records[0].EmbeddingID, records[1].EmbeddingID)
	})
}

func TestStats(t *testing.T) {
	t.Run("EmptyYieldsZeroValue", func(t *testing.T) {
		assert.Equal(t, Statistics{}, Stats(nil))
	})

	t.Run("Dense", func(t *testing.T) {
		records := []Record{
			{ModelType: ModelTypeSentenceTransformer, ModelName: "all-MiniLM-L6-v2", Dimension: 384, Metadata: map[string]float64{"l2_norm": 1}},
			{ModelType: ModelTypeSentenceTransformer, ModelName: "all-MiniLM-L6-v2", Dimension: 384, Metadata: map[string]float64{"l2_norm": 3}},
		}

		s := Stats(records)
		assert.Equal(t, 2, s.TotalEmbeddings)
		assert.Equal(t, "sentence_transformer", s.ModelType)
		assert.Equal(t, "all-MiniLM-L6-v2", s.ModelName)
		assert.Equal(t, 384, s.Dimension)
		assert.Equal(t, 0.0, s.TotalSizeMB)
		assert.Equal(t, 1.5, s.AvgSizeKB)
		assert.Equal(t, 2.0, s.AvgL2Norm)
		assert.Zero(t, s.AvgNonZeroFeatures)
	})

	t.Run("Tfidf", func(t *testing.T) {
		records := []Record{
			{ModelType: ModelTypeTFIDF, ModelName: "tfidf-snowball", Dimension: 1000, Metadata: map[string]float64{"non_zero_features": 10, "sparsity": 0.99}},
			{ModelType: ModelTypeTFIDF, ModelName: "tfidf-snowball", Dimension: 1000, Metadata: map[string]float64{"non_zero_features": 20, "sparsity": 0.97}},
		}

		s := Stats(records)
		assert.Equal(t, 0.01, s.TotalSizeMB)
		assert.Equal(t, 3.91, s.AvgSizeKB)
		assert.Equal(t, 15.0, s.AvgNonZeroFeatures)
		assert.Equal(t, 0.98, s.AvgSparsity)
		assert.Zero(t, s.AvgL2Norm)
	})
}
