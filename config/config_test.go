package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RAGLAB_CONFIG", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Server.Addr())
	assert.Equal(t, "bolt", cfg.Storage.Backend)
	assert.Equal(t, "data/raglab.db", cfg.Storage.BoltPath)
	assert.False(t, cfg.Qdrant.Enabled())
	assert.Empty(t, cfg.Embedding.TEIURL)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9001
  upload_dir: /tmp/raglab
storage:
  backend: memory
qdrant:
  host: qdrant.internal
providers:
  openai_api_key: sk-test
`), 0644))
	t.Setenv("RAGLAB_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "/tmp/raglab", cfg.Server.UploadDir)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.True(t, cfg.Qdrant.Enabled())
	assert.Equal(t, 6334, cfg.Qdrant.Port, "file keeps the default port")
	assert.Equal(t, "sk-test", cfg.Providers.OpenAIAPIKey)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9001\n"), 0644))
	t.Setenv("RAGLAB_CONFIG", path)
	t.Setenv("RAGLAB_PORT", "9002")
	t.Setenv("RAGLAB_STORAGE_BACKEND", "mongo")
	t.Setenv("RAGLAB_MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9002, cfg.Server.Port)
	assert.Equal(t, "mongo", cfg.Storage.Backend)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Storage.MongoURI)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	t.Setenv("RAGLAB_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0644))
	t.Setenv("RAGLAB_CONFIG", path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestIgnoresMalformedIntEnv(t *testing.T) {
	t.Setenv("RAGLAB_CONFIG", "")
	t.Chdir(t.TempDir())
	t.Setenv("RAGLAB_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
}
