package embedding

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"raglab/pkg/chunking"
)

// Record is one stored chunk vector plus per-vector metadata. Metadata keys
// depend on the model type: tfidf records carry non_zero_features and
// sparsity, dense records carry l2_norm, mean, std, min and max.
type Record struct {
	EmbeddingID string             `json:"embedding_id"`
	ChunkID     string             `json:"chunk_id"`
	DocumentID  string             `json:"document_id"`
	ModelType   string             `json:"model_type"`
	ModelName   string             `json:"model_name"`
	Vector      []float32          `json:"embedding_vector"`
	Dimension   int                `json:"dimension"`
	Metadata    map[string]float64 `json:"metadata"`
}

// BuildRecords pairs chunks with their vectors, one record per chunk.
func BuildRecords(chunks []chunking.Chunk, vectors [][]float32, modelType, modelName string) ([]Record, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("embedding: %d chunks but %d vectors", len(chunks), len(vectors))
	}

	records := make([]Record, len(chunks))
	for i, chunk := range chunks {
		vec := vectors[i]
		records[i] = Record{
			EmbeddingID: uuid.NewString(),
			ChunkID:     chunk.ChunkID,
			DocumentID:  chunk.DocumentID,
			ModelType:   modelType,
			ModelName:   modelName,
			Vector:      vec,
			Dimension:   len(vec),
			Metadata:    vectorMetadata(modelType, vec),
		}
	}
	return records, nil
}

func vectorMetadata(modelType string, vec []float32) map[string]float64 {
	if modelType == ModelTypeTFIDF {
		nonZero := 0
		for _, v := range vec {
			if v != 0 {
				nonZero++
			}
		}
		sparsity := 0.0
		if len(vec) > 0 {
			sparsity = 1 - float64(nonZero)/float64(len(vec))
		}
		return map[string]float64{
			"non_zero_features": float64(nonZero),
			"sparsity":          sparsity,
		}
	}

	if len(vec) == 0 {
		return map[string]float64{"l2_norm": 0, "mean": 0, "std": 0, "min": 0, "max": 0}
	}

	var sum float64
	minV := float64(vec[0])
	maxV := float64(vec[0])
	for _, v := range vec {
		f := float64(v)
		sum += f
		if f < minV {
			minV = f
		}
		if f > maxV {
			maxV = f
		}
	}
	mean := sum / float64(len(vec))

	var norm, variance float64
	for _, v := range vec {
		f := float64(v)
		norm += f * f
		variance += (f - mean) * (f - mean)
	}

	return map[string]float64{
		"l2_norm": math.Sqrt(norm),
		"mean":    mean,
		"std":     math.Sqrt(variance / float64(len(vec))),
		"min":     minV,
		"max":     maxV,
	}
}

// Statistics summarizes one record sequence. Sizes assume 4 bytes per
// dimension. The averaged metadata fields are present for the model type
// that produced them.
type Statistics struct {
	TotalEmbeddings    int     `json:"total_embeddings"`
	ModelType          string  `json:"model_type"`
	ModelName          string  `json:"model_name"`
	Dimension          int     `json:"dimension"`
	TotalSizeMB        float64 `json:"total_size_mb"`
	AvgSizeKB          float64 `json:"avg_size_kb"`
	AvgNonZeroFeatures float64 `json:"avg_non_zero_features,omitempty"`
	AvgSparsity        float64 `json:"avg_sparsity,omitempty"`
	AvgL2Norm          float64 `json:"avg_l2_norm,omitempty"`
}

// Stats aggregates records; the model fields come from the first record.
// Empty input yields the zero value.
func Stats(records []Record) Statistics {
	var s Statistics
	if len(records) == 0 {
		return s
	}

	first := records[0]
	s.TotalEmbeddings = len(records)
	s.ModelType = first.ModelType
	s.ModelName = first.ModelName
	s.Dimension = first.Dimension

	totalBytes := float64(len(records)) * float64(first.Dimension) * 4
	s.TotalSizeMB = round2(totalBytes / (1024 * 1024))
	s.AvgSizeKB = round2(totalBytes / float64(len(records)) / 1024)

	switch first.ModelType {
	case ModelTypeTFIDF:
		s.AvgNonZeroFeatures = round2(metadataMean(records, "non_zero_features"))
		s.AvgSparsity = round4(metadataMean(records, "sparsity"))
	case ModelTypeSentenceTransformer:
		s.AvgL2Norm = round4(metadataMean(records, "l2_norm"))
	}
	return s
}

func metadataMean(records []Record, key string) float64 {
	var sum float64
	for _, r := range records {
		sum += r.Metadata[key]
	}
	return sum / float64(len(records))
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
func round4(x float64) float64 { return math.Round(x*10000) / 10000 }
