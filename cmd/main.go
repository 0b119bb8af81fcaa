package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"raglab/api"
	"raglab/config"
	"raglab/extract"
	"raglab/ingest"
	"raglab/pkg/chunking"
	"raglab/pkg/embedding"
	"raglab/pkg/localvec"
	"raglab/pkg/mongodb"
	"raglab/pkg/qdrantdb"
	"raglab/rag"
	"raglab/repository"
	"raglab/storage"
	"raglab/vectorstore"
)

func main() {
	// =========
	// Config
	// =========
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// =========
	// Logging
	// =========
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	// =========
	// Document store
	// =========
	var store repository.Store
	switch cfg.Storage.Backend {
	case "memory":
		store = storage.NewMemory()
	case "bolt":
		bolt := storage.NewBolt(cfg.Storage.BoltPath)
		if err := bolt.Init(); err != nil {
			log.Fatalf("Failed to open bolt store: %v", err)
		}
		defer bolt.Close()
		store = bolt
	case "mongo":
		client, db, err := mongodb.Connect(context.Background(),
			cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
		if err != nil {
			log.Fatalf("Failed to connect to mongodb: %v", err)
		}
		defer client.Disconnect(context.Background())
		store = storage.NewMongo(db)
	default:
		log.Fatalf("Unknown storage backend %q (want memory, bolt or mongo)", cfg.Storage.Backend)
	}

	// =========
	// Embedding client
	// =========
	var dense embedding.Model
	if cfg.Embedding.TEIURL != "" {
		dense = embedding.NewAllMinilmL6V2(cfg.Embedding.TEIURL)
	}

	// =========
	// Vector indexes
	// =========
	local := localvec.New(cfg.Storage.VectorPath)
	if err := local.Init(); err != nil {
		log.Fatalf("Failed to open local vector index: %v", err)
	}
	defer local.Close()

	manager := vectorstore.NewManager(dense, logger)
	manager.Register("local", local)

	if cfg.Qdrant.Enabled() {
		qdb, err := qdrantdb.NewIndex(cfg.Qdrant.Host, cfg.Qdrant.Port)
		if err != nil {
			log.Fatalf("Failed to connect to qdrant: %v", err)
		}
		defer qdb.Close()
		manager.Register("qdrant", qdb)
	}

	// =========
	// Chunker
	// =========
	chunker, err := chunking.NewChunker()
	if err != nil {
		log.Fatalf("Failed to initialize chunker: %v", err)
	}

	// =========
	// Extraction and fetching
	// =========
	extractor := extract.New(logger)
	fetcher := ingest.NewFetcher(cfg.Ingest.UserAgent,
		time.Duration(cfg.Ingest.TimeoutSeconds)*time.Second, logger)

	// =========
	// RAG engine
	// =========
	engine := rag.NewEngine(manager, logger)
	if cfg.Providers.OpenAIAPIKey != "" {
		p, err := rag.NewOpenAI(cfg.Providers.OpenAIAPIKey, cfg.Providers.OpenAIModel)
		if err != nil {
			log.Fatalf("Failed to initialize openai provider: %v", err)
		}
		engine.Register(p)
	}
	if cfg.Providers.AnthropicAPIKey != "" {
		p, err := rag.NewAnthropic(cfg.Providers.AnthropicAPIKey, cfg.Providers.AnthropicModel)
		if err != nil {
			log.Fatalf("Failed to initialize anthropic provider: %v", err)
		}
		engine.Register(p)
	}
	if cfg.Providers.OllamaURL != "" {
		p, err := rag.NewOllama(cfg.Providers.OllamaURL, cfg.Providers.OllamaModel)
		if err != nil {
			log.Fatalf("Failed to initialize ollama provider: %v", err)
		}
		engine.Register(p)
	}
	logger.Info("providers_registered", zap.Strings("providers", engine.Providers()))

	// =========
	// API server
	// =========
	server := api.NewServer(api.Options{
		Store:     store,
		Extractor: extractor,
		Fetcher:   fetcher,
		Chunker:   chunker,
		Dense:     dense,
		Vectors:   manager,
		Engine:    engine,
		UploadDir: cfg.Server.UploadDir,
		Log:       logger,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Fatal("server_failed", zap.Error(err))
	case sig := <-stop:
		logger.Info("shutting_down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown_incomplete", zap.Error(err))
	}
}
