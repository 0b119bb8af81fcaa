package qdrantdb

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"raglab/repository"
)

// AddVectors upserts the records into the collection, creating it on first
// use with cosine distance and the dimension measured from the records.
func (x *Index) AddVectors(ctx context.Context, collection string, records []repository.VectorRecord, meta repository.CollectionMeta) error {
	if len(records) == 0 {
		return nil
	}
	if meta.Dimension == 0 {
		meta.Dimension = len(records[0].Vector)
	}
	exists, err := x.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", collection, err)
	}
	if !exists {
		err = x.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(meta.Dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection %q: %w", collection, err)
		}
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		payload := map[string]any{
			"chunk_id":    rec.ChunkID,
			"document_id": rec.DocumentID,
			"text":        rec.Text,
			"filename":    rec.Filename,
			"chunk_index": int64(rec.ChunkIndex),
			"model_type":  rec.ModelType,
			"model_name":  rec.ModelName,
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(rec.ID),
			Vectors: qdrant.NewVectorsDense(rec.Vector),
			Payload: qdrant.NewValueMap(payload),
		}
	}
	_, err = x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	x.rememberModel(collection, meta)
	return nil
}

func (x *Index) Search(ctx context.Context, collection string, vector []float32, topK int) ([]repository.SearchResult, error) {
	if err := x.requireCollection(ctx, collection); err != nil {
		return nil, err
	}
	limit := uint64(topK)
	points, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %q: %w", collection, err)
	}

	results := make([]repository.SearchResult, 0, len(points))
	for _, point := range points {
		payload := point.GetPayload()
		metadata := make(map[string]any, len(payload))
		text := ""
		for key, value := range payload {
			if key == "text" {
				text = value.GetStringValue()
				continue
			}
			metadata[key] = payloadValue(value)
		}
		results = append(results, repository.SearchResult{
			ID:       point.GetId().GetUuid(),
			Text:     text,
			Score:    point.GetScore(),
			Metadata: metadata,
		})
	}
	return results, nil
}

func (x *Index) ListCollections(ctx context.Context) ([]string, error) {
	collections, err := x.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return collections, nil
}

func (x *Index) DeleteCollection(ctx context.Context, collection string) error {
	if err := x.requireCollection(ctx, collection); err != nil {
		return err
	}
	if err := x.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", collection, err)
	}
	x.forgetModel(collection)
	return nil
}

func (x *Index) Stats(ctx context.Context, collection string) (repository.CollectionInfo, error) {
	if err := x.requireCollection(ctx, collection); err != nil {
		return repository.CollectionInfo{}, err
	}
	count, err := x.client.Count(ctx, &qdrant.CountPoints{CollectionName: collection})
	if err != nil {
		return repository.CollectionInfo{}, fmt.Errorf("failed to count points in %q: %w", collection, err)
	}
	meta, ok := x.modelFor(collection)
	if !ok {
		info, infoErr := x.client.GetCollectionInfo(ctx, collection)
		meta = recoveredMeta(info, infoErr)
	}
	return repository.CollectionInfo{
		Collection:  collection,
		VectorCount: int(count),
		Dimension:   meta.Dimension,
		Backend:     "qdrant",
		ModelType:   meta.ModelType,
		ModelName:   meta.ModelName,
		Persistent:  true,
	}, nil
}

// recoveredMeta rebuilds what it can when the registry has no entry, which
// happens after a restart. The model is unknown at that point; the dimension
// is still readable from the collection config.
func recoveredMeta(info *qdrant.CollectionInfo, err error) repository.CollectionMeta {
	meta := repository.CollectionMeta{ModelType: "unknown", ModelName: "unknown"}
	if err == nil {
		meta.Dimension = int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
	}
	return meta
}

func (x *Index) requireCollection(ctx context.Context, collection string) error {
	exists, err := x.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", collection, err)
	}
	if !exists {
		return fmt.Errorf("collection %q: %w", collection, repository.ErrNotFound)
	}
	return nil
}

func payloadValue(value *qdrant.Value) any {
	switch kind := value.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return int(kind.IntegerValue)
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	default:
		return nil
	}
}
