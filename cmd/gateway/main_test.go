package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ericksa/contractiq/internal/config"
	"github.com/ericksa/contractiq/internal/middleware"
	"github.com/ericksa/contractiq/internal/trail"
	"github.com/ericksa/contractiq/internal/workers"
	"github.com/ericksa/contractiq/pkg/mcp"
)

func newToolRouter(t *testing.T) (*mux.Router, *workers.ContractWorkerState) {
	t.Helper()
	store, err := workers.NewDocumentStore(t.TempDir())
	require.NoError(t, err)
	contract := workers.NewContractWorkerState(store)

	handler = mcp.NewHandler(&trail.Trail{}, contract)
	t.Cleanup(func() { handler = nil })

	router := mux.NewRouter()
	router.HandleFunc("/tools/contract/{tool}", contractToolHandler).Methods("POST")
	return router, contract
}

func postTool(router *mux.Router, tool, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/tools/contract/"+tool, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestContractToolHandler_IngestAndList(t *testing.T) {
	router, _ := newToolRouter(t)

	rec := postTool(router, "ingest_text", `{"filename":"msa.txt","text":"Payment is due within 30 days."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["document_id"])

	rec = postTool(router, "list_documents", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
	assert.Contains(t, rec.Body.String(), "msa.txt")
}

func TestContractToolHandler_AuditsStoredDocument(t *testing.T) {
	router, contract := newToolRouter(t)
	meta, err := contract.IngestText(context.Background(), "risky.txt",
		"Contractor shall have unlimited liability for all claims arising under this agreement.")
	require.NoError(t, err)

	rec := postTool(router, "audit_document", fmt.Sprintf(`{"document_id":%q}`, meta.DocumentID))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unlimited liability clause")
	assert.Contains(t, rec.Body.String(), `"severity":"high"`)
}

func TestContractToolHandler_MissingDocumentID(t *testing.T) {
	router, _ := newToolRouter(t)

	rec := postTool(router, "extract_fields", `{}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "document_id required")
}

func TestContractToolHandler_InvalidJSON(t *testing.T) {
	router, _ := newToolRouter(t)

	rec := postTool(router, "list_documents", `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContractToolHandler_UnknownTool(t *testing.T) {
	router, _ := newToolRouter(t)

	rec := postTool(router, "bogus", `{}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, strings.TrimSpace(rec.Body.String()))
}

func TestExecuteToolHandler_NotInitialized(t *testing.T) {
	handler = nil

	req := httptest.NewRequest(http.MethodPost, "/tools/contract/list_documents", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	executeToolHandler(rec, req, "contract", "list_documents")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "handler not initialized")
}

func TestToolError(t *testing.T) {
	rec := httptest.NewRecorder()
	toolError(rec, http.StatusTeapot, "boom")

	assert.Equal(t, http.StatusTeapot, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "boom", resp["error"])
}

func authTestRouter(token string, exempt []string) *mux.Router {
	cfg := &config.Config{}
	cfg.CIQ.Auth.Token = token
	cfg.CIQ.Auth.ExemptPaths = exempt

	router := mux.NewRouter()
	router.Use(middleware.Auth(cfg))
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	router.HandleFunc("/test", ok)
	router.HandleFunc("/healthz", ok)
	return router
}

func TestAuthMiddleware_RejectsMissingToken(t *testing.T) {
	router := authTestRouter("secret", nil)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}

func TestAuthMiddleware_AcceptsBearerToken(t *testing.T) {
	router := authTestRouter("secret", nil)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_AcceptsQueryToken(t *testing.T) {
	router := authTestRouter("secret", nil)

	req := httptest.NewRequest(http.MethodGet, "/test?token=secret", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_ExemptPathSkipsCheck(t *testing.T) {
	router := authTestRouter("secret", []string{"/healthz"})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoggerMiddleware_PassesThrough(t *testing.T) {
	nextCalled := false
	h := middleware.Logger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.True(t, nextCalled)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecovererMiddleware_RecoversPanic(t *testing.T) {
	h := middleware.Recoverer(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSMiddleware_HandlesPreflight(t *testing.T) {
	nextCalled := false
	h := middleware.CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/test", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, nextCalled)
}
