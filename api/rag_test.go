package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raglab/repository"
)

func TestProviders(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.do(t, http.MethodGet, "/api/rag/providers", nil)
	require.Equal(t, http.StatusOK, code)

	data := dataMap(t, env)
	assert.Equal(t, []any{"openai"}, data["providers"])
	assert.Equal(t, float64(1), data["count"])
	models, ok := data["models"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"openai-model"}, models["openai"])
}

func TestRAGQuery(t *testing.T) {
	ts := newTestServer(t)
	seedIndexed(t, ts)

	code, env := ts.do(t, http.MethodPost, "/api/rag/query", map[string]any{
		"question":   "How does roast level change flavor?",
		"collection": "docs",
	})
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Success, "errors: %v", env.Errors)

	data := dataMap(t, env)
	assert.Equal(t, "Roast it slowly.", data["answer"])
	assert.Equal(t, "openai", data["provider"])
	assert.Equal(t, "local", data["retrieval_backend"])
	assert.Greater(t, data["num_chunks"], float64(0))

	assert.Contains(t, ts.provider.lastReq.Prompt, "Question: How does roast level change flavor?")
	assert.Contains(t, ts.provider.lastReq.Prompt, "Relevant context:")

	code, env = ts.do(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, code)
	history, ok := dataMap(t, env)["history"].([]any)
	require.True(t, ok)
	require.Len(t, history, 1)
	entry, ok := history[0].(map[string]any)
	require.True(t, ok)
	config, ok := entry["config"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "rag", config["mode"])
	assert.Equal(t, "openai", config["provider"])
}

func TestRAGQueryValidation(t *testing.T) {
	ts := newTestServer(t)
	seedIndexed(t, ts)

	t.Run("MissingQuestion", func(t *testing.T) {
		code, _ := ts.do(t, http.MethodPost, "/api/rag/query", map[string]any{"question": " "})
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("UnknownProvider", func(t *testing.T) {
		code, env := ts.do(t, http.MethodPost, "/api/rag/query", map[string]any{
			"question": "q", "collection": "docs", "provider": "mystery",
		})
		assert.Equal(t, http.StatusBadRequest, code)
		require.NotEmpty(t, env.Errors)
		assert.Contains(t, env.Errors[0], "unknown provider")
	})

	t.Run("MissingCollection", func(t *testing.T) {
		code, _ := ts.do(t, http.MethodPost, "/api/rag/query", map[string]any{
			"question": "q", "collection": "ghost",
		})
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestRAGQueryProviderFailure(t *testing.T) {
	ts := newTestServer(t)
	seedIndexed(t, ts)
	ts.provider.err = errors.New("quota exceeded")

	code, env := ts.do(t, http.MethodPost, "/api/rag/query", map[string]any{
		"question": "q", "collection": "docs",
	})
	assert.Equal(t, http.StatusBadGateway, code)
	require.NotEmpty(t, env.Errors)
	assert.Contains(t, env.Errors[0], "quota exceeded")
}

func TestRAGCompare(t *testing.T) {
	ts := newTestServer(t)
	seedIndexed(t, ts)

	code, env := ts.do(t, http.MethodPost, "/api/rag/compare", map[string]any{
		"question":   "What water temperature should I brew at?",
		"collection": "docs",
	})
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Success, "errors: %v", env.Errors)

	data := dataMap(t, env)
	responses, ok := data["responses"].([]any)
	require.True(t, ok)
	require.Len(t, responses, 1)
	resp, ok := responses[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "openai", resp["provider"])
	assert.Equal(t, "Roast it slowly.", resp["answer"])

	// Comparisons are exploratory; they stay out of the query history.
	code, env = ts.do(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), dataMap(t, env)["count"])
}

func TestHistoryLimit(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		require.NoError(t, ts.store.AddQuery(ctx, repository.QueryRecord{
			Query:     "q",
			Timestamp: time.Now(),
		}))
	}

	code, env := ts.do(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(repository.DefaultHistoryLimit), dataMap(t, env)["count"])

	code, env = ts.do(t, http.MethodGet, "/api/history?limit=5", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(5), dataMap(t, env)["count"])

	code, _ = ts.do(t, http.MethodGet, "/api/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestConfigs(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.do(t, http.MethodPost, "/api/configs", map[string]any{
		"name": "fast-fixed",
		"config": map[string]any{
			"strategy":   "fixed",
			"chunk_size": 300,
		},
	})
	require.Equal(t, http.StatusCreated, code)
	require.True(t, env.Success)
	saved, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, saved["id"])
	assert.Equal(t, "fast-fixed", saved["name"])

	code, env = ts.do(t, http.MethodGet, "/api/configs", nil)
	require.Equal(t, http.StatusOK, code)
	data := dataMap(t, env)
	assert.Equal(t, float64(1), data["count"])
	configs, ok := data["configurations"].([]any)
	require.True(t, ok)
	first, ok := configs[0].(map[string]any)
	require.True(t, ok)
	cfg, ok := first["config"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(300), cfg["chunk_size"])

	code, _ = ts.do(t, http.MethodPost, "/api/configs", map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, code)
}
