package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"raglab/pkg/chunking"
	"raglab/pkg/embedding"
	"raglab/repository"
)

// Mongo keeps each record family in its own collection. Chunks and
// embeddings are stored as one array document per source document, keyed by
// the document id, which keeps the wholesale-replace semantics a single
// upsert.
type Mongo struct {
	documents      *mongo.Collection
	chunks         *mongo.Collection
	embeddings     *mongo.Collection
	configurations *mongo.Collection
	history        *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		documents:      db.Collection("documents"),
		chunks:         db.Collection("chunks"),
		embeddings:     db.Collection("embeddings"),
		configurations: db.Collection("configurations"),
		history:        db.Collection("query_history"),
	}
}

type chunkSet struct {
	DocumentID string           `bson:"_id"`
	Chunks     []chunking.Chunk `bson:"chunks"`
}

type embeddingSet struct {
	DocumentID string             `bson:"_id"`
	Records    []embedding.Record `bson:"records"`
}

type historyEntry struct {
	ID     primitive.ObjectID     `bson:"_id,omitempty"`
	Record repository.QueryRecord `bson:",inline"`
}

func (m *Mongo) CreateDocument(ctx context.Context, doc *repository.Document) error {
	if _, err := m.documents.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (m *Mongo) Document(ctx context.Context, id string) (*repository.Document, error) {
	var doc repository.Document
	err := m.documents.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find document: %w", err)
	}
	return &doc, nil
}

func (m *Mongo) Documents(ctx context.Context) ([]*repository.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "upload_timestamp", Value: 1}})
	cur, err := m.documents.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	var docs []*repository.Document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

func (m *Mongo) UpdateDocument(ctx context.Context, doc *repository.Document) error {
	res, err := m.documents.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (m *Mongo) DeleteDocument(ctx context.Context, id string) error {
	res, err := m.documents.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	if _, err := m.chunks.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := m.embeddings.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}
	return nil
}

func (m *Mongo) StoreChunks(ctx context.Context, documentID string, chunks []chunking.Chunk) error {
	if err := m.requireDocument(ctx, documentID); err != nil {
		return err
	}
	set := chunkSet{DocumentID: documentID, Chunks: chunks}
	opts := options.Replace().SetUpsert(true)
	if _, err := m.chunks.ReplaceOne(ctx, bson.M{"_id": documentID}, set, opts); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}
	return nil
}

func (m *Mongo) Chunks(ctx context.Context, documentID string) ([]chunking.Chunk, error) {
	if err := m.requireDocument(ctx, documentID); err != nil {
		return nil, err
	}
	var set chunkSet
	err := m.chunks.FindOne(ctx, bson.M{"_id": documentID}).Decode(&set)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find chunks: %w", err)
	}
	return set.Chunks, nil
}

func (m *Mongo) StoreEmbeddings(ctx context.Context, documentID string, records []embedding.Record) error {
	if err := m.requireDocument(ctx, documentID); err != nil {
		return err
	}
	set := embeddingSet{DocumentID: documentID, Records: records}
	opts := options.Replace().SetUpsert(true)
	if _, err := m.embeddings.ReplaceOne(ctx, bson.M{"_id": documentID}, set, opts); err != nil {
		return fmt.Errorf("failed to store embeddings: %w", err)
	}
	return nil
}

func (m *Mongo) Embeddings(ctx context.Context, documentID string) ([]embedding.Record, error) {
	if err := m.requireDocument(ctx, documentID); err != nil {
		return nil, err
	}
	var set embeddingSet
	err := m.embeddings.FindOne(ctx, bson.M{"_id": documentID}).Decode(&set)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find embeddings: %w", err)
	}
	return set.Records, nil
}

func (m *Mongo) SaveConfiguration(ctx context.Context, cfg *repository.StoredConfig) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := m.configurations.ReplaceOne(ctx, bson.M{"_id": cfg.ID}, cfg, opts); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

func (m *Mongo) Configurations(ctx context.Context) ([]*repository.StoredConfig, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := m.configurations.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list configurations: %w", err)
	}
	var configs []*repository.StoredConfig
	if err := cur.All(ctx, &configs); err != nil {
		return nil, fmt.Errorf("failed to decode configurations: %w", err)
	}
	return configs, nil
}

func (m *Mongo) AddQuery(ctx context.Context, rec repository.QueryRecord) error {
	if _, err := m.history.InsertOne(ctx, historyEntry{Record: rec}); err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}
	count, err := m.history.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to count query history: %w", err)
	}
	if count <= repository.HistoryCap {
		return nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetLimit(count - repository.HistoryCap).
		SetProjection(bson.M{"_id": 1})
	cur, err := m.history.Find(ctx, bson.M{}, opts)
	if err != nil {
		return fmt.Errorf("failed to find stale query records: %w", err)
	}
	var stale []historyEntry
	if err := cur.All(ctx, &stale); err != nil {
		return fmt.Errorf("failed to decode stale query records: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(stale))
	for _, entry := range stale {
		ids = append(ids, entry.ID)
	}
	if _, err := m.history.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("failed to trim query history: %w", err)
	}
	return nil
}

func (m *Mongo) QueryHistory(ctx context.Context, limit int) ([]repository.QueryRecord, error) {
	if limit <= 0 {
		limit = repository.DefaultHistoryLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := m.history.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find query history: %w", err)
	}
	var entries []historyEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode query history: %w", err)
	}
	history := make([]repository.QueryRecord, len(entries))
	for i, entry := range entries {
		history[len(entries)-1-i] = entry.Record
	}
	return history, nil
}

func (m *Mongo) Stats(ctx context.Context) (repository.Stats, error) {
	var stats repository.Stats
	n, err := m.documents.CountDocuments(ctx, bson.M{})
	if err != nil {
		return stats, fmt.Errorf("failed to count documents: %w", err)
	}
	stats.DocumentCount = int(n)
	n, err = m.configurations.CountDocuments(ctx, bson.M{})
	if err != nil {
		return stats, fmt.Errorf("failed to count configurations: %w", err)
	}
	stats.ConfigurationCount = int(n)
	n, err = m.history.CountDocuments(ctx, bson.M{})
	if err != nil {
		return stats, fmt.Errorf("failed to count query history: %w", err)
	}
	stats.QueryHistoryCount = int(n)
	stats.ChunkCount, err = m.sumArrayLens(ctx, m.chunks, "$chunks")
	if err != nil {
		return stats, fmt.Errorf("failed to count chunks: %w", err)
	}
	stats.EmbeddingCount, err = m.sumArrayLens(ctx, m.embeddings, "$records")
	if err != nil {
		return stats, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return stats, nil
}

func (m *Mongo) sumArrayLens(ctx context.Context, coll *mongo.Collection, field string) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": bson.M{"$size": field}},
		}}},
	}
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	var out []struct {
		Total int `bson:"total"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Total, nil
}

func (m *Mongo) requireDocument(ctx context.Context, documentID string) error {
	n, err := m.documents.CountDocuments(ctx, bson.M{"_id": documentID})
	if err != nil {
		return fmt.Errorf("failed to check document: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
