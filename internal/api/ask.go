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

type askRequest struct {
	Question    string   `json:"question"`
	DocumentIDs []string `json:"document_ids"`
}

func (a *API) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question required")
		return
	}

	logging.Event(a.log, "question_asked", map[string]any{
		"question_length":       len(req.Question),
		"document_ids_provided": len(req.DocumentIDs),
	})

	answer, err := a.rag.Ask(r.Context(), req.Question, req.DocumentIDs)
	if err != nil {
		a.askError(w, req, err)
		return
	}

	logging.Event(a.log, "question_answered", map[string]any{
		"answer_length":   len(answer.Answer),
		"citations_count": len(answer.Citations),
	})
	a.trail.Record(webhook.EventAskComplete, "", map[string]any{
		"question_length": len(req.Question),
		"citations_count": len(answer.Citations),
	}, nil)
	a.hooks.Trigger(webhook.EventAskComplete, map[string]any{
		"question":  req.Question,
		"answer":    answer.Answer,
		"citations": answer.Citations,
	})

	writeJSON(w, http.StatusOK, answer)
}

func (a *API) askError(w http.ResponseWriter, req askRequest, err error) {
	a.trail.Record(webhook.EventAskComplete, "", map[string]any{
		"question_length": len(req.Question),
	}, err)

	switch {
	case errors.Is(err, workers.ErrNoDocuments):
		writeError(w, http.StatusNotFound, "no documents found to search")
	case errors.Is(err, workers.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "an error occurred while processing your request")
	}
}

// askStream answers a question over SSE: token events while the answer
// generates, one citations event, then done. Errors after the stream
// opens arrive as an error event.
func (a *API) askStream(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	logging.Event(a.log, "stream_question_started", map[string]any{
		"question_length":       len(req.Question),
		"document_ids_provided": len(req.DocumentIDs),
	})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	tokens := 0
	answer, err := a.rag.AskStream(r.Context(), req.Question, req.DocumentIDs, func(token string) error {
		tokens++
		return sseEvent(w, flusher, "token", token)
	})
	if err != nil {
		a.trail.Record(webhook.EventAskComplete, "", map[string]any{
			"question_length": len(req.Question),
		}, err)
		detail, _ := json.Marshal(map[string]string{"detail": err.Error()})
		sseEvent(w, flusher, "error", string(detail))
		return
	}

	citations, _ := json.Marshal(answer.Citations)
	sseEvent(w, flusher, "citations", string(citations))

	logging.Event(a.log, "stream_question_completed", map[string]any{
		"tokens_streamed": tokens,
		"citations_count": len(answer.Citations),
	})
	a.trail.Record(webhook.EventAskComplete, "", map[string]any{
		"question_length": len(req.Question),
		"tokens_streamed": tokens,
		"citations_count": len(answer.Citations),
	}, nil)
	a.hooks.Trigger(webhook.EventAskComplete, map[string]any{
		"question":  req.Question,
		"answer":    answer.Answer,
		"citations": answer.Citations,
	})

	sseEvent(w, flusher, "done", "")
}

// sseEvent writes one server-sent event. Multi-line data is split into
// one data: line per line, per the SSE framing rules.
func sseEvent(w http.ResponseWriter, flusher http.Flusher, event, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return err
	}
	for _, line := range splitLines(data) {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(w, "\n"); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func splitLines(s string) []string {
	if s == "" {
		return []string{""}
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}
