package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericksa/contractiq/internal/trail"
	"github.com/ericksa/contractiq/internal/workers"
)

func newTestHandler(t *testing.T) (*Handler, *workers.ContractWorkerState) {
	t.Helper()
	store, err := workers.NewDocumentStore(t.TempDir())
	require.NoError(t, err)
	contract := workers.NewContractWorkerState(store)
	return NewHandler(&trail.Trail{}, contract), contract
}

func TestHandler_ExecuteTool_RoutesPrefixedName(t *testing.T) {
	h, contract := newTestHandler(t)
	_, err := contract.IngestText(context.Background(), "msa.txt", "Some contract text.")
	require.NoError(t, err)

	result, err := h.ExecuteTool(context.Background(), "contract_list_documents", []byte(`{}`))

	require.NoError(t, err)
	assert.Contains(t, string(result), `"total":1`)
	assert.Contains(t, string(result), "msa.txt")
}

func TestHandler_ExecuteTool_UnknownPrefix(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := h.ExecuteTool(context.Background(), "bogus_tool", []byte(`{}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool not found: bogus_tool")
}

func TestHandler_ServeHTTP_Uninitialized(t *testing.T) {
	rec := httptest.NewRecorder()
	(&Handler{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "MCP server not initialized")
}
