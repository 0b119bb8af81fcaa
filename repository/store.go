package repository

import (
	"context"
	"errors"

	"raglab/pkg/chunking"
	"raglab/pkg/embedding"
)

// ErrNotFound is returned when a document, chunk set or embedding set does
// not exist in the store.
var ErrNotFound = errors.New("repository: not found")

// HistoryCap is how many query records a store keeps; older entries are
// dropped as new ones arrive.
const HistoryCap = 20

// DefaultHistoryLimit is used when QueryHistory is called with limit <= 0.
const DefaultHistoryLimit = 10

// Store persists documents together with their derived chunks and
// embeddings, plus saved configurations and the recent query history.
//
// Chunks and embeddings are stored wholesale per document: StoreChunks and
// StoreEmbeddings replace whatever was there before. Both require the parent
// document to exist and both sets are removed when the document is deleted.
type Store interface {
	CreateDocument(ctx context.Context, doc *Document) error
	Document(ctx context.Context, id string) (*Document, error)
	Documents(ctx context.Context) ([]*Document, error)
	UpdateDocument(ctx context.Context, doc *Document) error
	DeleteDocument(ctx context.Context, id string) error

	StoreChunks(ctx context.Context, documentID string, chunks []chunking.Chunk) error
	Chunks(ctx context.Context, documentID string) ([]chunking.Chunk, error)

	StoreEmbeddings(ctx context.Context, documentID string, records []embedding.Record) error
	Embeddings(ctx context.Context, documentID string) ([]embedding.Record, error)

	SaveConfiguration(ctx context.Context, cfg *StoredConfig) error
	Configurations(ctx context.Context) ([]*StoredConfig, error)

	AddQuery(ctx context.Context, rec QueryRecord) error
	QueryHistory(ctx context.Context, limit int) ([]QueryRecord, error)

	Stats(ctx context.Context) (Stats, error)
}
