package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllMinilmL6V2_GetEmbeddings(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody EmbeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		require.NoError(t, json.NewEncoder(w).Encode([][]float32{{0.1, 0.2}, {0.3, 0.4}}))
	}))
	defer srv.Close()

	c := NewAllMinilmL6V2(srv.URL)
	vecs, err := c.GetEmbeddings(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	assert.Equal(t, "/embed", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, []string{"first", "second"}, gotBody.Inputs)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0.1, 0.2}, vecs[0])
	assert.Equal(t, []float32{0.3, 0.4}, vecs[1])
}

func TestAllMinilmL6V2_ModelIdentity(t *testing.T) {
	c := NewAllMinilmL6V2("http://localhost:8080")
	assert.Equal(t, "sentence_transformer", c.ModelType())
	assert.Equal(t, "all-MiniLM-L6-v2", c.ModelName())
}

func TestAllMinilmL6V2_RetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode([][]float32{{1}}))
	}))
	defer srv.Close()

	c := NewAllMinilmL6V2(srv.URL)
	c.baseDelay = time.Millisecond

	vecs, err := c.GetEmbeddings(context.Background(), []string{"text"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestAllMinilmL6V2_ExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewAllMinilmL6V2(srv.URL)
	c.maxRetries = 1
	c.baseDelay = time.Millisecond

	_, err := c.GetEmbeddings(context.Background(), []string{"text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestAllMinilmL6V2_ContextCancelDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewAllMinilmL6V2(srv.URL)
	c.baseDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.GetEmbeddings(ctx, []string{"text"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
