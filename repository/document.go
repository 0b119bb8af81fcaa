// Package repository defines the records and interfaces shared by the
// storage backends, the vector indexes and the HTTP layer.
package repository

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusError      = "error"
)

const (
	FileTypeTxt  = "txt"
	FileTypeMd   = "md"
	FileTypePdf  = "pdf"
	FileTypeHtml = "html"
)

// Document is one ingested source: an uploaded file or a fetched page.
// Text and the derived counts are filled once extraction finishes.
type Document struct {
	ID              string    `json:"id" bson:"_id"`
	Filename        string    `json:"filename" bson:"filename"`
	FilePath        string    `json:"file_path,omitempty" bson:"file_path,omitempty"`
	SourceURL       string    `json:"source_url,omitempty" bson:"source_url,omitempty"`
	FileSize        int64     `json:"file_size" bson:"file_size"`
	FileType        string    `json:"file_type" bson:"file_type"`
	UploadedAt      time.Time `json:"upload_timestamp" bson:"upload_timestamp"`
	Status          string    `json:"status" bson:"status"`
	ErrorMessage    string    `json:"error_message,omitempty" bson:"error_message,omitempty"`
	Text            string    `json:"text,omitempty" bson:"text,omitempty"`
	CharCount       int       `json:"char_count" bson:"char_count"`
	WordCount       int       `json:"word_count" bson:"word_count"`
	EstimatedTokens int       `json:"estimated_tokens" bson:"estimated_tokens"`
}

// NewDocument builds a document in the processing state with a fresh id.
func NewDocument(filename, filePath string, fileSize int64, fileType string) *Document {
	return &Document{
		ID:         uuid.NewString(),
		Filename:   filename,
		FilePath:   filePath,
		FileSize:   fileSize,
		FileType:   fileType,
		UploadedAt: time.Now(),
		Status:     StatusProcessing,
	}
}

// StoredConfig is a saved pipeline configuration, kept as free-form JSON so
// the frontend can round-trip whatever parameter set it wants to reuse.
type StoredConfig struct {
	ID        string         `json:"id" bson:"_id"`
	Name      string         `json:"name" bson:"name"`
	Config    map[string]any `json:"config" bson:"config"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

func NewStoredConfig(name string, config map[string]any) *StoredConfig {
	return &StoredConfig{
		ID:        uuid.NewString(),
		Name:      name,
		Config:    config,
		CreatedAt: time.Now(),
	}
}

// QueryRecord is one entry of the recent-query history.
type QueryRecord struct {
	Query     string         `json:"query" bson:"query"`
	Results   int            `json:"results" bson:"results"`
	Config    map[string]any `json:"config" bson:"config"`
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
}

// Stats counts what a store currently holds.
type Stats struct {
	DocumentCount      int `json:"document_count"`
	ChunkCount         int `json:"chunk_count"`
	EmbeddingCount     int `json:"embedding_count"`
	ConfigurationCount int `json:"configuration_count"`
	QueryHistoryCount  int `json:"query_history_count"`
}
