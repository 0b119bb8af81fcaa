// Package localvec implements the vector index on a local BoltDB file with
// brute-force cosine search. It is the fallback backend when no Qdrant
// server is configured; collections survive restarts, including which model
// filled them.
package localvec

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	bolt "go.etcd.io/bbolt"

	"raglab/repository"
)

var metaBucket = []byte("collections_meta")

// Vectors are normalized before storage so the dot product at search time
// is the cosine similarity.
const vectorBucketPrefix = "vectors_"

type Index struct {
	DBPath string
	db     *bolt.DB
}

func New(dbPath string) *Index {
	return &Index{DBPath: dbPath}
}

func (x *Index) Init() error {
	if dir := filepath.Dir(x.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create db directory: %w", err)
		}
	}
	db, err := bolt.Open(x.DBPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to open vector db: %w", err)
	}
	x.db = db
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create meta bucket: %w", err)
	}
	return nil
}

func (x *Index) Close() error {
	if x.db == nil {
		return nil
	}
	return x.db.Close()
}

func (x *Index) AddVectors(ctx context.Context, collection string, records []repository.VectorRecord, meta repository.CollectionMeta) error {
	if len(records) == 0 {
		return nil
	}
	if meta.Dimension == 0 {
		meta.Dimension = len(records[0].Vector)
	}
	return x.db.Update(func(tx *bolt.Tx) error {
		mb := tx.Bucket(metaBucket)
		if data := mb.Get([]byte(collection)); data != nil {
			var existing repository.CollectionMeta
			if err := json.Unmarshal(data, &existing); err != nil {
				return fmt.Errorf("failed to decode collection meta: %w", err)
			}
			if existing.Dimension != meta.Dimension {
				return fmt.Errorf("localvec: collection %q expects dimension %d, got %d",
					collection, existing.Dimension, meta.Dimension)
			}
		}
		metaData, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to encode collection meta: %w", err)
		}
		if err := mb.Put([]byte(collection), metaData); err != nil {
			return err
		}
		b, err := tx.CreateBucketIfNotExists(vectorBucket(collection))
		if err != nil {
			return fmt.Errorf("failed to create collection bucket: %w", err)
		}
		for _, rec := range records {
			if len(rec.Vector) != meta.Dimension {
				return fmt.Errorf("localvec: record %s has dimension %d, want %d",
					rec.ID, len(rec.Vector), meta.Dimension)
			}
			rec.Vector = normalize(rec.Vector)
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}
			if err := b.Put([]byte(rec.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (x *Index) Search(ctx context.Context, collection string, vector []float32, topK int) ([]repository.SearchResult, error) {
	query := normalize(vector)
	var results []repository.SearchResult
	err := x.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(metaBucket).Get([]byte(collection)) == nil {
			return fmt.Errorf("collection %q: %w", collection, repository.ErrNotFound)
		}
		b := tx.Bucket(vectorBucket(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var rec repository.VectorRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode record %s: %w", k, err)
			}
			results = append(results, repository.SearchResult{
				ID:    rec.ID,
				Text:  rec.Text,
				Score: dot(query, rec.Vector),
				Metadata: map[string]any{
					"chunk_id":    rec.ChunkID,
					"document_id": rec.DocumentID,
					"filename":    rec.Filename,
					"chunk_index": rec.ChunkIndex,
					"model_type":  rec.ModelType,
					"model_name":  rec.ModelName,
				},
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (x *Index) ListCollections(ctx context.Context) ([]string, error) {
	var collections []string
	err := x.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).ForEach(func(k, v []byte) error {
			collections = append(collections, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return collections, nil
}

func (x *Index) DeleteCollection(ctx context.Context, collection string) error {
	return x.db.Update(func(tx *bolt.Tx) error {
		mb := tx.Bucket(metaBucket)
		if mb.Get([]byte(collection)) == nil {
			return fmt.Errorf("collection %q: %w", collection, repository.ErrNotFound)
		}
		if err := mb.Delete([]byte(collection)); err != nil {
			return err
		}
		if tx.Bucket(vectorBucket(collection)) != nil {
			return tx.DeleteBucket(vectorBucket(collection))
		}
		return nil
	})
}

func (x *Index) Stats(ctx context.Context, collection string) (repository.CollectionInfo, error) {
	var info repository.CollectionInfo
	err := x.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(metaBucket).Get([]byte(collection))
		if data == nil {
			return fmt.Errorf("collection %q: %w", collection, repository.ErrNotFound)
		}
		var meta repository.CollectionMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return fmt.Errorf("failed to decode collection meta: %w", err)
		}
		count := 0
		if b := tx.Bucket(vectorBucket(collection)); b != nil {
			count = b.Stats().KeyN
		}
		info = repository.CollectionInfo{
			Collection:  collection,
			VectorCount: count,
			Dimension:   meta.Dimension,
			Backend:     "local",
			ModelType:   meta.ModelType,
			ModelName:   meta.ModelName,
			Persistent:  true,
		}
		return nil
	})
	if err != nil {
		return repository.CollectionInfo{}, err
	}
	return info, nil
}

func vectorBucket(collection string) []byte {
	return []byte(vectorBucketPrefix + collection)
}

func normalize(vector []float32) []float32 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return append([]float32(nil), vector...)
	}
	out := make([]float32, len(vector))
	for i, v := range vector {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}
