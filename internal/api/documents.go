package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ericksa/contractiq/internal/logging"
	"github.com/ericksa/contractiq/internal/metrics"
	"github.com/ericksa/contractiq/internal/webhook"
	"github.com/ericksa/contractiq/internal/workers"
)

// Uploads are held fully in memory during parsing; contracts are a
// few MB at most.
const maxUploadMemory = 32 << 20

func (a *API) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field required")
		return
	}
	defer file.Close()

	meta, err := a.ingestOne(r.Context(), header.Filename, file)
	if err != nil {
		var notPDF errNotPDF
		if errors.As(err, &notPDF) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document_id":      meta.DocumentID,
		"filename":         meta.Filename,
		"upload_timestamp": meta.UploadTimestamp,
	})
}

func (a *API) uploadBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}
	for _, header := range files {
		if !isPDF(header.Filename) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("file %s is not a PDF", header.Filename))
			return
		}
	}

	var uploaded []workers.DocumentMeta
	for _, header := range files {
		meta, err := a.ingestFileHeader(r.Context(), header)
		if err != nil {
			// Batch keeps going; the failed file is logged and skipped.
			a.log.Warn("batch file skipped",
				zap.String("filename", header.Filename),
				zap.Error(err))
			continue
		}
		uploaded = append(uploaded, *meta)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents":      uploaded,
		"total_uploaded": len(uploaded),
	})
}

func (a *API) ingestFileHeader(ctx context.Context, header *multipart.FileHeader) (*workers.DocumentMeta, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	return a.ingestOne(ctx, header.Filename, f)
}

// errNotPDF marks uploads rejected by extension.
type errNotPDF struct{ filename string }

func (e errNotPDF) Error() string { return fmt.Sprintf("file %s is not a PDF", e.filename) }

func isPDF(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

func (a *API) ingestOne(ctx context.Context, filename string, f io.Reader) (*workers.DocumentMeta, error) {
	if !isPDF(filename) {
		return nil, errNotPDF{filename: filename}
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	meta, err := a.contract.IngestPDF(ctx, filename, data)
	if err != nil {
		a.trail.Record("document.failed", "", map[string]any{"filename": filename}, err)
		return nil, fmt.Errorf("error processing file %s: %v", filename, err)
	}

	metrics.DocumentsIngested.Inc()
	logging.Event(a.log, "document_ingested", map[string]any{
		"document_id": meta.DocumentID,
		"size_bytes":  meta.SizeBytes,
		"pages":       meta.PageCount,
	})
	a.trail.Record(webhook.EventDocumentIngested, meta.DocumentID, map[string]any{
		"filename":   meta.Filename,
		"pages":      meta.PageCount,
		"size_bytes": meta.SizeBytes,
	}, nil)
	a.hooks.Trigger(webhook.EventDocumentIngested, meta)
	return meta, nil
}

func (a *API) listDocuments(w http.ResponseWriter, r *http.Request) {
	metas, err := a.contract.Store.ListDocuments()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": metas,
		"total":     len(metas),
	})
}

func (a *API) getDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	doc, err := a.contract.Store.LoadDocument(id)
	if err != nil {
		if errors.Is(err, workers.ErrDocumentNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("document %s not found", id))
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
