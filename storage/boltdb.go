package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"raglab/pkg/chunking"
	"raglab/pkg/embedding"
	"raglab/repository"
)

var (
	documentsBucket  = []byte("documents")
	chunksBucket     = []byte("chunks")
	embeddingsBucket = []byte("embeddings")
	configsBucket    = []byte("configurations")
	historyBucket    = []byte("history")
)

// Bolt persists the store in a single BoltDB file. Values are JSON; chunks
// and embeddings are stored wholesale under their document id, history
// entries under an ascending sequence number.
type Bolt struct {
	DBPath string
	db     *bolt.DB
}

func NewBolt(dbPath string) *Bolt {
	return &Bolt{DBPath: dbPath}
}

// Init opens the database file and creates the buckets.
func (s *Bolt) Init() error {
	if dir := filepath.Dir(s.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create db directory: %w", err)
		}
	}
	db, err := bolt.Open(s.DBPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to open bolt db: %w", err)
	}
	s.db = db
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{documentsBucket, chunksBucket, embeddingsBucket, configsBucket, historyBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create buckets: %w", err)
	}
	return nil
}

func (s *Bolt) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Bolt) CreateDocument(ctx context.Context, doc *repository.Document) error {
	return s.putJSON(documentsBucket, []byte(doc.ID), doc)
}

func (s *Bolt) Document(ctx context.Context, id string) (*repository.Document, error) {
	var doc repository.Document
	if err := s.getJSON(documentsBucket, []byte(id), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Bolt) Documents(ctx context.Context) ([]*repository.Document, error) {
	var docs []*repository.Document
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(documentsBucket).ForEach(func(k, v []byte) error {
			var doc repository.Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("failed to decode document %s: %w", k, err)
			}
			docs = append(docs, &doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortDocuments(docs)
	return docs, nil
}

func (s *Bolt) UpdateDocument(ctx context.Context, doc *repository.Document) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(documentsBucket)
		if b.Get([]byte(doc.ID)) == nil {
			return repository.ErrNotFound
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		return b.Put([]byte(doc.ID), data)
	})
}

func (s *Bolt) DeleteDocument(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(documentsBucket)
		if b.Get([]byte(id)) == nil {
			return repository.ErrNotFound
		}
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}
		if err := tx.Bucket(chunksBucket).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(embeddingsBucket).Delete([]byte(id))
	})
}

func (s *Bolt) StoreChunks(ctx context.Context, documentID string, chunks []chunking.Chunk) error {
	return s.putForDocument(chunksBucket, documentID, chunks)
}

func (s *Bolt) Chunks(ctx context.Context, documentID string) ([]chunking.Chunk, error) {
	var chunks []chunking.Chunk
	if err := s.getForDocument(chunksBucket, documentID, &chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

func (s *Bolt) StoreEmbeddings(ctx context.Context, documentID string, records []embedding.Record) error {
	return s.putForDocument(embeddingsBucket, documentID, records)
}

func (s *Bolt) Embeddings(ctx context.Context, documentID string) ([]embedding.Record, error) {
	var records []embedding.Record
	if err := s.getForDocument(embeddingsBucket, documentID, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Bolt) SaveConfiguration(ctx context.Context, cfg *repository.StoredConfig) error {
	return s.putJSON(configsBucket, []byte(cfg.ID), cfg)
}

func (s *Bolt) Configurations(ctx context.Context) ([]*repository.StoredConfig, error) {
	var configs []*repository.StoredConfig
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(configsBucket).ForEach(func(k, v []byte) error {
			var cfg repository.StoredConfig
			if err := json.Unmarshal(v, &cfg); err != nil {
				return fmt.Errorf("failed to decode configuration %s: %w", k, err)
			}
			configs = append(configs, &cfg)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortConfigurations(configs)
	return configs, nil
}

func (s *Bolt) AddQuery(ctx context.Context, rec repository.QueryRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(historyBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode query record: %w", err)
		}
		if err := b.Put(itob(seq), data); err != nil {
			return err
		}
		// Keys are sequence numbers, so the cursor walks oldest first.
		var stale [][]byte
		total := 0
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			total++
			stale = append(stale, append([]byte(nil), k...))
		}
		for i := 0; i < total-repository.HistoryCap; i++ {
			if err := b.Delete(stale[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Bolt) QueryHistory(ctx context.Context, limit int) ([]repository.QueryRecord, error) {
	if limit <= 0 {
		limit = repository.DefaultHistoryLimit
	}
	var history []repository.QueryRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(historyBucket).ForEach(func(k, v []byte) error {
			var rec repository.QueryRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode query record: %w", err)
			}
			history = append(history, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if limit > len(history) {
		limit = len(history)
	}
	return history[len(history)-limit:], nil
}

func (s *Bolt) Stats(ctx context.Context) (repository.Stats, error) {
	var stats repository.Stats
	err := s.db.View(func(tx *bolt.Tx) error {
		if err := tx.Bucket(documentsBucket).ForEach(func(k, v []byte) error {
			stats.DocumentCount++
			return nil
		}); err != nil {
			return err
		}
		if err := tx.Bucket(configsBucket).ForEach(func(k, v []byte) error {
			stats.ConfigurationCount++
			return nil
		}); err != nil {
			return err
		}
		if err := tx.Bucket(historyBucket).ForEach(func(k, v []byte) error {
			stats.QueryHistoryCount++
			return nil
		}); err != nil {
			return err
		}
		if err := tx.Bucket(chunksBucket).ForEach(func(k, v []byte) error {
			n, err := jsonArrayLen(v)
			if err != nil {
				return fmt.Errorf("failed to decode chunks for %s: %w", k, err)
			}
			stats.ChunkCount += n
			return nil
		}); err != nil {
			return err
		}
		return tx.Bucket(embeddingsBucket).ForEach(func(k, v []byte) error {
			n, err := jsonArrayLen(v)
			if err != nil {
				return fmt.Errorf("failed to decode embeddings for %s: %w", k, err)
			}
			stats.EmbeddingCount += n
			return nil
		})
	})
	if err != nil {
		return repository.Stats{}, err
	}
	return stats, nil
}

func (s *Bolt) putJSON(bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, data)
	})
}

func (s *Bolt) getJSON(bucket, key []byte, v any) error {
	return s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get(key)
		if data == nil {
			return repository.ErrNotFound
		}
		return json.Unmarshal(data, v)
	})
}

// putForDocument writes a per-document value after checking the parent
// document exists.
func (s *Bolt) putForDocument(bucket []byte, documentID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(documentsBucket).Get([]byte(documentID)) == nil {
			return repository.ErrNotFound
		}
		return tx.Bucket(bucket).Put([]byte(documentID), data)
	})
}

func (s *Bolt) getForDocument(bucket []byte, documentID string, v any) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(documentsBucket).Get([]byte(documentID)) == nil {
			return repository.ErrNotFound
		}
		data := tx.Bucket(bucket).Get([]byte(documentID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, v)
	})
}

func jsonArrayLen(data []byte) (int, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return 0, err
	}
	return len(items), nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
