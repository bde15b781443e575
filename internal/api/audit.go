package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ericksa/contractiq/internal/logging"
	"github.com/ericksa/contractiq/internal/webhook"
	"github.com/ericksa/contractiq/internal/workers"
)

type auditRequest struct {
	DocumentID string `json:"document_id"`
}

func (a *API) audit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, "document_id required")
		return
	}

	logging.Event(a.log, "audit_started", map[string]any{"document_id": req.DocumentID})

	report, err := a.contract.AuditDocument(req.DocumentID)
	if err != nil {
		if errors.Is(err, workers.ErrDocumentNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("document %s not found", req.DocumentID))
			return
		}
		a.trail.Record(webhook.EventAuditComplete, req.DocumentID, nil, err)
		writeError(w, http.StatusInternalServerError, "audit failed")
		return
	}

	logging.Event(a.log, "audit_completed", map[string]any{
		"document_id":    req.DocumentID,
		"findings_count": len(report.Findings),
	})
	a.trail.Record(webhook.EventAuditComplete, req.DocumentID, map[string]any{
		"findings_count": len(report.Findings),
	}, nil)
	a.hooks.Trigger(webhook.EventAuditComplete, report)

	writeJSON(w, http.StatusOK, report)
}
