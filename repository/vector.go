package repository

import "context"

// VectorRecord is one point to index: the vector plus the payload the
// search endpoint hands back with each hit.
type VectorRecord struct {
	ID         string    `json:"id"`
	Vector     []float32 `json:"vector"`
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	Text       string    `json:"text"`
	Filename   string    `json:"filename"`
	ChunkIndex int       `json:"chunk_index"`
	ModelType  string    `json:"model_type"`
	ModelName  string    `json:"model_name"`
}

// CollectionMeta records which embedding model populated a collection so
// later queries can be embedded the same way.
type CollectionMeta struct {
	ModelType string `json:"model_type"`
	ModelName string `json:"model_name"`
	Dimension int    `json:"dimension"`
}

// SearchResult is one similarity hit.
type SearchResult struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// CollectionInfo describes a collection for the stats endpoint.
type CollectionInfo struct {
	Collection  string `json:"collection_name"`
	VectorCount int    `json:"vector_count"`
	Dimension   int    `json:"dimension"`
	Backend     string `json:"backend"`
	ModelType   string `json:"model_type"`
	ModelName   string `json:"model_name"`
	Persistent  bool   `json:"persistent"`
}

// VectorIndex is a similarity index over named collections. A collection is
// created on first insert and remembers the model that filled it.
type VectorIndex interface {
	AddVectors(ctx context.Context, collection string, records []VectorRecord, meta CollectionMeta) error
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]SearchResult, error)
	ListCollections(ctx context.Context) ([]string, error)
	DeleteCollection(ctx context.Context, collection string) error
	Stats(ctx context.Context, collection string) (CollectionInfo, error)
}
