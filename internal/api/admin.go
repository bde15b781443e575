package api

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ericksa/contractiq/internal/logging"
)

// healthz reports service health. The data directory is probed with a
// real write so a full or read-only disk flips the status to degraded.
func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	logging.Event(a.log, "health_check_requested", nil)

	diskStatus := "ok"
	if err := probeDataDir(a.contract.Store.DataDir()); err != nil {
		diskStatus = "unavailable"
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := "ok"
	if diskStatus != "ok" {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"system": map[string]any{
			"go_version":       runtime.Version(),
			"goroutines":       runtime.NumGoroutine(),
			"memory_alloc":     mem.Alloc,
			"memory_sys":       mem.Sys,
			"gc_cycles":        mem.NumGC,
			"uptime_seconds":   int64(time.Since(a.started).Seconds()),
			"operating_system": runtime.GOOS,
		},
		"disk_status": diskStatus,
		"version":     Version,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

func probeDataDir(dir string) error {
	probe := filepath.Join(dir, ".healthz")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}

// stats returns human-readable counters: what is on disk, what the
// event trail has seen, and how many webhooks are registered.
func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	events := map[string]int{}
	if counts, err := a.trail.CountsByEvent(); err == nil {
		events = counts
	}

	chunkEntries := 0
	if a.rag.Chunks != nil {
		chunkEntries = a.rag.Chunks.Len()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents": map[string]any{
			"total":              a.contract.Store.CountDocuments(),
			"pdfs_stored":        a.contract.Store.CountPDFs(),
			"extractions_cached": a.contract.Store.CountExtractions(),
		},
		"events": events,
		"webhooks": map[string]any{
			"registered": a.hooks.Len(),
		},
		"cache": map[string]any{
			"chunk_entries": chunkEntries,
		},
		"uptime_seconds": int64(time.Since(a.started).Seconds()),
	})
}

func (a *API) index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "Contract Intelligence API",
		"version":     Version,
		"description": "API for contract ingestion, field extraction, question answering (RAG), and risk auditing",
		"healthz_url": "/healthz",
		"metrics_url": "/metrics",
		"mcp_url":     "/mcp",
	})
}
