package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ericksa/contractiq/internal/logging"
	"github.com/ericksa/contractiq/internal/metrics"
	"github.com/ericksa/contractiq/internal/webhook"
	"github.com/ericksa/contractiq/internal/workers"
)

type extractRequest struct {
	DocumentID string `json:"document_id"`
}

func (a *API) extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, "document_id required")
		return
	}

	logging.Event(a.log, "extraction_started", map[string]any{"document_id": req.DocumentID})

	ext, err := a.contract.ExtractFields(r.Context(), req.DocumentID)
	if err != nil {
		if errors.Is(err, workers.ErrDocumentNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("document %s not found", req.DocumentID))
			return
		}
		a.trail.Record(webhook.EventExtractComplete, req.DocumentID, nil, err)
		writeError(w, http.StatusInternalServerError, "extraction failed")
		return
	}

	metrics.Extractions.WithLabelValues(string(ext.Source)).Inc()
	logging.Event(a.log, "extraction_completed", map[string]any{
		"document_id":       req.DocumentID,
		"extraction_method": string(ext.Source),
		"parties_found":     len(ext.Parties),
		"signatories_found": len(ext.Signatories),
	})
	a.trail.Record(webhook.EventExtractComplete, req.DocumentID, map[string]any{
		"source": string(ext.Source),
	}, nil)
	a.hooks.Trigger(webhook.EventExtractComplete, map[string]any{
		"document_id":      req.DocumentID,
		"extracted_fields": ext,
	})

	writeJSON(w, http.StatusOK, ext)
}
