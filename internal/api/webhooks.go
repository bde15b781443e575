package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type webhookRegisterRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

func (a *API) registerWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		writeError(w, http.StatusBadRequest, "url must be an http or https endpoint")
		return
	}
	if len(req.Events) == 0 {
		writeError(w, http.StatusBadRequest, "at least one event required")
		return
	}

	hook := a.hooks.Register(req.URL, req.Events)
	writeJSON(w, http.StatusOK, hook)
}

func (a *API) listWebhooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.hooks.List())
}

func (a *API) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !a.hooks.Unregister(id) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("webhook %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("webhook %s unregistered successfully", id),
	})
}
