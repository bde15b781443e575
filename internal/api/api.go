// Package api exposes the contract intelligence operations over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ericksa/contractiq/internal/config"
	"github.com/ericksa/contractiq/internal/trail"
	"github.com/ericksa/contractiq/internal/webhook"
	"github.com/ericksa/contractiq/internal/workers"
)

const Version = "1.0.0"

// API holds the handlers for the document, extraction, ask, audit,
// webhook, and admin endpoints.
type API struct {
	cfg      *config.Config
	log      *zap.Logger
	contract *workers.ContractWorkerState
	rag      *workers.RAGWorkerState
	hooks    *webhook.Registry
	trail    *trail.Trail
	started  time.Time
}

func New(cfg *config.Config, log *zap.Logger, contract *workers.ContractWorkerState, rag *workers.RAGWorkerState, hooks *webhook.Registry, tr *trail.Trail) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{
		cfg:      cfg,
		log:      log,
		contract: contract,
		rag:      rag,
		hooks:    hooks,
		trail:    tr,
		started:  time.Now(),
	}
}

// Register mounts every endpoint on the router.
func (a *API) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/documents", a.uploadDocument).Methods("POST")
	r.HandleFunc("/api/v1/documents/batch", a.uploadBatch).Methods("POST")
	r.HandleFunc("/api/v1/documents", a.listDocuments).Methods("GET")
	r.HandleFunc("/api/v1/documents/{id}", a.getDocument).Methods("GET")

	r.HandleFunc("/api/v1/extract", a.extract).Methods("POST")
	r.HandleFunc("/api/v1/ask", a.ask).Methods("POST")
	r.HandleFunc("/api/v1/ask/stream", a.askStream).Methods("POST")
	r.HandleFunc("/api/v1/audit", a.audit).Methods("POST")

	r.HandleFunc("/api/v1/webhooks/register", a.registerWebhook).Methods("POST")
	r.HandleFunc("/api/v1/webhooks", a.listWebhooks).Methods("GET")
	r.HandleFunc("/api/v1/webhooks/{id}", a.deleteWebhook).Methods("DELETE")

	r.HandleFunc("/healthz", a.healthz).Methods("GET")
	r.HandleFunc("/stats", a.stats).Methods("GET")
	r.HandleFunc("/", a.index).Methods("GET")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
