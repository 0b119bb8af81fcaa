package embedding

import (
	"context"
	"math"
)

const (
	ModelTypeTFIDF               = "tfidf"
	ModelTypeSentenceTransformer = "sentence_transformer"
)

type EmbeddingRequest struct {
	Inputs []string `json:"inputs"`
}

type EmbeddingResponse [][]float32

type Client interface {
	// One vector per input text, in input order.
	// Input: ["this is a text"] → list of strings
	// Output: [ [0.12, -0.33, 0.57, ...] ]
	GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Model is a Client that can describe itself, so callers can tag stored
// vectors with the model that produced them.
type Model interface {
	Client
	ModelType() string
	ModelName() string
}

func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)))
}
