package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
)

// ConfigAPI provides HTTP endpoints to view and modify configuration
type ConfigAPI struct {
	cfg    *Config
	mu     sync.RWMutex
	router *mux.Router
}

func NewConfigAPI(cfg *Config) *ConfigAPI {
	api := &ConfigAPI{
		cfg:    cfg,
		router: mux.NewRouter(),
	}
	api.routes()
	return api
}

func (api *ConfigAPI) Router() *mux.Router {
	return api.router
}

func (api *ConfigAPI) routes() {
	api.router.HandleFunc("/configure", api.getConfig).Methods("GET")
	api.router.HandleFunc("/configure/", api.getConfig).Methods("GET")
	api.router.HandleFunc("/configure", api.updateConfig).Methods("POST")
	api.router.HandleFunc("/configure/reload", api.reloadConfig).Methods("POST")
	api.router.HandleFunc("/configure/validate", api.validateConfig).Methods("POST")
	api.router.HandleFunc("/configure/components", api.listComponents).Methods("GET")
	api.router.HandleFunc("/configure/components/{component}", api.getComponentConfig).Methods("GET")
}

func (api *ConfigAPI) getConfig(w http.ResponseWriter, r *http.Request) {
	api.mu.RLock()
	defer api.mu.RUnlock()
	safeCfg := api.safeConfigCopy()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(safeCfg)
}

func (api *ConfigAPI) updateConfig(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	defer api.mu.Unlock()
	var newCfg Config
	if err := json.NewDecoder(r.Body).Decode(&newCfg); err != nil {
		http.Error(w, fmt.Sprintf("invalid config payload: %v", err), http.StatusBadRequest)
		return
	}
	if err := newCfg.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("invalid configuration: %v", err), http.StatusBadRequest)
		return
	}
	*api.cfg = newCfg
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(api.safeConfigCopy())
}

func (api *ConfigAPI) reloadConfig(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	defer api.mu.Unlock()
	reloadedCfg, err := Load()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to reload config: %v", err), http.StatusInternalServerError)
		return
	}
	*api.cfg = *reloadedCfg
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(api.safeConfigCopy())
}

func (api *ConfigAPI) validateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, fmt.Sprintf("invalid config payload: %v", err), http.StatusBadRequest)
		return
	}
	if err := cfg.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("invalid configuration: %v", err), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"valid": true, "message": "configuration is valid"})
}

func (api *ConfigAPI) listComponents(w http.ResponseWriter, r *http.Request) {
	api.mu.RLock()
	defer api.mu.RUnlock()

	components := map[string]interface{}{
		"storage":    map[string]interface{}{"data_dir": api.cfg.CIQ.Storage.DataDir, "minio_enabled": api.cfg.CIQ.Storage.MinIO.Enabled},
		"llm":        map[string]interface{}{"enabled": api.cfg.CIQ.LLM.Enabled, "endpoint": api.cfg.CIQ.LLM.Endpoint, "model": api.cfg.CIQ.LLM.Model},
		"embeddings": map[string]interface{}{"enabled": api.cfg.CIQ.Embeddings.Enabled, "model": api.cfg.CIQ.Embeddings.Model, "dimension": api.cfg.CIQ.Embeddings.Dimension},
		"rag":        map[string]interface{}{"chunk_size": api.cfg.CIQ.RAG.ChunkSize, "chunk_overlap": api.cfg.CIQ.RAG.ChunkOverlap, "top_k": api.cfg.CIQ.RAG.TopK},
		"cache":      map[string]interface{}{"backend": api.cfg.CIQ.Cache.Backend},
		"webhooks":   map[string]interface{}{"timeout": api.cfg.CIQ.Webhooks.Timeout},
		"trail":      map[string]interface{}{"enabled": api.cfg.CIQ.Trail.Path != ""},
		"logging":    map[string]interface{}{"level": api.cfg.CIQ.Logging.Level},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(components)
}

func (api *ConfigAPI) getComponentConfig(w http.ResponseWriter, r *http.Request) {
	api.mu.RLock()
	defer api.mu.RUnlock()

	component := mux.Vars(r)["component"]
	var componentCfg interface{}

	switch component {
	case "server":
		componentCfg = api.cfg.CIQ.Server
	case "storage":
		storageCfg := api.cfg.CIQ.Storage
		storageCfg.MinIO.AccessKey = "***"
		storageCfg.MinIO.SecretKey = "***"
		componentCfg = storageCfg
	case "llm":
		llmCfg := api.cfg.CIQ.LLM
		if llmCfg.APIKey != "" {
			llmCfg.APIKey = "***"
		}
		componentCfg = llmCfg
	case "embeddings":
		componentCfg = api.cfg.CIQ.Embeddings
	case "rag":
		componentCfg = api.cfg.CIQ.RAG
	case "cache":
		cacheCfg := api.cfg.CIQ.Cache
		if cacheCfg.Redis.Password != "" {
			cacheCfg.Redis.Password = "***"
		}
		componentCfg = cacheCfg
	case "webhooks":
		componentCfg = api.cfg.CIQ.Webhooks
	case "trail":
		componentCfg = api.cfg.CIQ.Trail
	case "logging":
		componentCfg = api.cfg.CIQ.Logging
	default:
		http.Error(w, fmt.Sprintf("unknown component: %s", component), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(componentCfg)
}

func (api *ConfigAPI) safeConfigCopy() *Config {
	bytes, _ := json.Marshal(api.cfg)
	var copyCfg Config
	json.Unmarshal(bytes, &copyCfg)
	if copyCfg.CIQ.Storage.MinIO.AccessKey != "" {
		copyCfg.CIQ.Storage.MinIO.AccessKey = "***"
	}
	if copyCfg.CIQ.Storage.MinIO.SecretKey != "" {
		copyCfg.CIQ.Storage.MinIO.SecretKey = "***"
	}
	if copyCfg.CIQ.Auth.Token != "" {
		copyCfg.CIQ.Auth.Token = "***"
	}
	if copyCfg.CIQ.LLM.APIKey != "" {
		copyCfg.CIQ.LLM.APIKey = "***"
	}
	if copyCfg.CIQ.Cache.Redis.Password != "" {
		copyCfg.CIQ.Cache.Redis.Password = "***"
	}
	return &copyCfg
}
