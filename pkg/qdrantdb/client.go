// Package qdrantdb implements the vector index on a Qdrant server over its
// gRPC client. Qdrant does not store which embedding model filled a
// collection, so the index keeps that in a registry alongside the client.
package qdrantdb

import (
	"sync"

	"github.com/qdrant/go-client/qdrant"

	"raglab/repository"
)

type Index struct {
	client *qdrant.Client

	mu     sync.RWMutex
	models map[string]repository.CollectionMeta
}

func NewIndex(host string, port int) (*Index, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port, // gRPC port
	})
	if err != nil {
		return nil, err
	}
	return &Index{
		client: client,
		models: make(map[string]repository.CollectionMeta),
	}, nil
}

func (x *Index) Close() error {
	return x.client.Close()
}

func (x *Index) rememberModel(collection string, meta repository.CollectionMeta) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.models[collection] = meta
}

func (x *Index) modelFor(collection string) (repository.CollectionMeta, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	meta, ok := x.models[collection]
	return meta, ok
}

func (x *Index) forgetModel(collection string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.models, collection)
}
