// Package config loads server configuration from defaults, an optional YAML
// file and environment variables, applied in that order.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration. Optional services are disabled by
// leaving their section empty: no qdrant host means no qdrant backend, no
// API key means that provider is not registered.
type Config struct {
	Server    Server    `yaml:"server"`
	Storage   Storage   `yaml:"storage"`
	Qdrant    Qdrant    `yaml:"qdrant"`
	Embedding Embedding `yaml:"embedding"`
	Providers Providers `yaml:"providers"`
	Ingest    Ingest    `yaml:"ingest"`
}

type Server struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	UploadDir string `yaml:"upload_dir"`
}

// Addr is the listen address for http.Server.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type Storage struct {
	// Backend selects the document store: memory, bolt or mongo.
	Backend       string `yaml:"backend"`
	BoltPath      string `yaml:"bolt_path"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
	// VectorPath is the file behind the local vector index.
	VectorPath string `yaml:"vector_path"`
}

type Qdrant struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Enabled reports whether a qdrant backend should be registered.
func (q Qdrant) Enabled() bool { return q.Host != "" }

type Embedding struct {
	// TEIURL is a text-embeddings-inference endpoint. Empty disables dense
	// embedding and text search over dense collections.
	TEIURL string `yaml:"tei_url"`
}

type Providers struct {
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIModel     string `yaml:"openai_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
	OllamaURL       string `yaml:"ollama_url"`
	OllamaModel     string `yaml:"ollama_model"`
}

type Ingest struct {
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Defaults is the configuration used when no file and no environment
// overrides are present.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:      8000,
			UploadDir: "data/uploads",
		},
		Storage: Storage{
			Backend:       "bolt",
			BoltPath:      "data/raglab.db",
			MongoDatabase: "raglab",
			VectorPath:    "data/vectors.db",
		},
		Qdrant: Qdrant{
			Port: 6334,
		},
	}
}

// Load builds the configuration. The file path comes from RAGLAB_CONFIG when
// set, falling back to ./config.yaml. A missing fallback file is fine; a
// missing or unparseable explicit file is an error.
func Load() (*Config, error) {
	cfg := Defaults()

	path := os.Getenv("RAGLAB_CONFIG")
	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// defaults plus env only
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	applyEnv(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Host, "RAGLAB_HOST")
	setInt(&cfg.Server.Port, "RAGLAB_PORT")
	setString(&cfg.Server.UploadDir, "RAGLAB_UPLOAD_DIR")

	setString(&cfg.Storage.Backend, "RAGLAB_STORAGE_BACKEND")
	setString(&cfg.Storage.BoltPath, "RAGLAB_BOLT_PATH")
	setString(&cfg.Storage.MongoURI, "RAGLAB_MONGO_URI")
	setString(&cfg.Storage.MongoDatabase, "RAGLAB_MONGO_DATABASE")
	setString(&cfg.Storage.VectorPath, "RAGLAB_VECTOR_PATH")

	setString(&cfg.Qdrant.Host, "RAGLAB_QDRANT_HOST")
	setInt(&cfg.Qdrant.Port, "RAGLAB_QDRANT_PORT")

	setString(&cfg.Embedding.TEIURL, "RAGLAB_TEI_URL")

	setString(&cfg.Providers.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.Providers.OpenAIModel, "RAGLAB_OPENAI_MODEL")
	setString(&cfg.Providers.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setString(&cfg.Providers.AnthropicModel, "RAGLAB_ANTHROPIC_MODEL")
	setString(&cfg.Providers.OllamaURL, "RAGLAB_OLLAMA_URL")
	setString(&cfg.Providers.OllamaModel, "RAGLAB_OLLAMA_MODEL")

	setString(&cfg.Ingest.UserAgent, "RAGLAB_USER_AGENT")
	setInt(&cfg.Ingest.TimeoutSeconds, "RAGLAB_FETCH_TIMEOUT_SECONDS")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setInt leaves the current value in place when the variable is unset or not
// an integer.
func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
