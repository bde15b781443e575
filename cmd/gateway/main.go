package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/ericksa/contractiq/internal/api"
	"github.com/ericksa/contractiq/internal/cache"
	"github.com/ericksa/contractiq/internal/config"
	"github.com/ericksa/contractiq/internal/logging"
	"github.com/ericksa/contractiq/internal/metrics"
	"github.com/ericksa/contractiq/internal/middleware"
	"github.com/ericksa/contractiq/internal/trail"
	"github.com/ericksa/contractiq/internal/webhook"
	"github.com/ericksa/contractiq/internal/workers"
	"github.com/ericksa/contractiq/pkg/mcp"
)

var handler *mcp.Handler

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := logging.New(cfg.CIQ.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Document store, optionally mirrored to MinIO
	store, err := workers.NewDocumentStore(cfg.CIQ.Storage.DataDir)
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}
	if cfg.CIQ.Storage.MinIO.Enabled {
		client, err := minio.New(cfg.CIQ.Storage.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.CIQ.Storage.MinIO.AccessKey, cfg.CIQ.Storage.MinIO.SecretKey, ""),
			Secure: cfg.CIQ.Storage.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("minio mirroring disabled", zap.Error(err))
		} else {
			store.EnableMinIO(client, cfg.CIQ.Storage.MinIO.Bucket)
		}
	}

	// Chunk cache backend
	var chunks cache.ChunkCache
	switch cfg.CIQ.Cache.Backend {
	case "redis":
		redisTTL := config.Duration(cfg.CIQ.Cache.Redis.TTL, time.Hour)
		chunks, err = cache.NewRedis(cfg.CIQ.Cache.Redis.Addr, cfg.CIQ.Cache.Redis.Password, cfg.CIQ.Cache.Redis.DB, redisTTL)
		if err != nil {
			logger.Warn("redis unreachable, using in-memory chunk cache", zap.Error(err))
			chunks = cache.NewMemory(cfg.CIQ.Cache.MaxEntries)
		}
	default:
		chunks = cache.NewMemory(cfg.CIQ.Cache.MaxEntries)
	}

	// Embedder: real model when configured, deterministic hashing
	// otherwise
	var embedder workers.Embedder
	if cfg.CIQ.Embeddings.Enabled {
		embedder = workers.NewOllamaEmbedder(cfg.CIQ.Embeddings.Endpoint, cfg.CIQ.Embeddings.Model)
	} else {
		embedder = workers.NewHashEmbedder(cfg.CIQ.Embeddings.Dimension)
	}

	rag := workers.NewRAGWorkerState(store, chunks, embedder,
		cfg.CIQ.RAG.ChunkSize, cfg.CIQ.RAG.ChunkOverlap, cfg.CIQ.RAG.TopK)

	contract := workers.NewContractWorkerState(store)
	contract.SetRAGWorker(rag)

	if cfg.CIQ.LLM.Enabled {
		llm := workers.NewOllamaClient(cfg.CIQ.LLM.Endpoint, cfg.CIQ.LLM.Model)
		if cfg.CIQ.LLM.APIKey != "" {
			llm.SetAPIKey(cfg.CIQ.LLM.APIKey)
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := llm.Ping(pingCtx); err != nil {
			logger.Warn("llm unreachable, extraction falls back to patterns", zap.Error(err))
		}
		cancel()
		contract.SetLLMCaller(llm)
		rag.SetLLMCaller(llm)
	}

	tr := trail.Open(cfg.CIQ.Trail.Path)
	hooks := webhook.NewRegistry(config.Duration(cfg.CIQ.Webhooks.Timeout, 10*time.Second), logger)

	// Create MCP handler
	handler = mcp.NewHandler(tr, contract)

	// Set up router
	router := mux.NewRouter()
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recoverer(logger))
	router.Use(middleware.CORS)
	router.Use(middleware.Metrics)
	router.Use(middleware.Auth(cfg))

	// REST API
	api.New(cfg, logger, contract, rag, hooks, tr).Register(router)

	// MCP endpoint
	router.PathPrefix("/mcp").Handler(handler)

	// Metrics endpoint
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Tools endpoints
	router.HandleFunc("/tools/contract/{tool}", contractToolHandler).Methods("POST")

	// Configuration API
	router.PathPrefix("/configure").Handler(config.NewConfigAPI(cfg).Router())

	// Start server
	srv := &http.Server{
		Addr:         cfg.CIQ.Server.Addr,
		Handler:      router,
		ReadTimeout:  config.Duration(cfg.CIQ.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.Duration(cfg.CIQ.Server.WriteTimeout, 120*time.Second),
		IdleTimeout:  config.Duration(cfg.CIQ.Server.IdleTimeout, 60*time.Second),
	}

	go func() {
		logger.Info("starting contract intelligence gateway", zap.String("addr", cfg.CIQ.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
	tr.Close()
	logger.Info("server stopped")
}

func contractToolHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	toolName := vars["tool"]
	executeToolHandler(w, r, "contract", toolName)
}

func executeToolHandler(w http.ResponseWriter, r *http.Request, workerName, toolName string) {
	if handler == nil {
		toolError(w, http.StatusInternalServerError, "handler not initialized")
		return
	}

	var args map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		toolError(w, http.StatusBadRequest, err.Error())
		return
	}

	argsJSON, _ := json.Marshal(args)
	fullToolName := workerName + "_" + toolName

	result, err := handler.ExecuteTool(r.Context(), fullToolName, argsJSON)
	if err != nil {
		toolError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(result)
}

func toolError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
