package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ericksa/contractiq/internal/trail"
	"github.com/ericksa/contractiq/internal/workers"
)

type Worker interface {
	GetTools() []workers.ToolDef
	Execute(ctx context.Context, name string, input json.RawMessage) ([]byte, error)
}

// Handler exposes the registered workers' tools over the MCP
// streamable HTTP transport. Every tool call is recorded in the
// event trail.
type Handler struct {
	trail   *trail.Trail
	workers map[string]Worker
	server  *mcp.Server
	httpSrv http.Handler
}

func NewHandler(tr *trail.Trail, contract Worker) *Handler {
	h := &Handler{
		trail: tr,
		workers: map[string]Worker{
			"contract": contract,
		},
	}
	h.initMCPServer()
	return h
}

func (h *Handler) initMCPServer() {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "ContractIQ Gateway",
		Version: "1.0.0",
	}, nil)

	for name, worker := range h.workers {
		for _, tool := range worker.GetTools() {
			toolName := fmt.Sprintf("%s_%s", name, tool.Name)
			toolDesc := tool.Description
			w := worker
			mcp.AddTool(server, &mcp.Tool{
				Name:        toolName,
				Description: toolDesc,
			}, h.wrapTool(w, toolName))
		}
	}

	h.server = server
	h.httpSrv = mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return h.server
	}, nil)
}

func (h *Handler) wrapTool(w Worker, toolName string) func(ctx context.Context, req *mcp.CallToolRequest, input any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input any) (*mcp.CallToolResult, any, error) {
		inputBytes, _ := json.Marshal(input)
		result, err := w.Execute(ctx, toolName, inputBytes)
		h.recordCall(toolName, inputBytes, err)
		if err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{
					&mcp.TextContent{Text: err.Error()},
				},
			}, nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: string(result)},
			},
		}, nil, nil
	}
}

func (h *Handler) recordCall(toolName string, input json.RawMessage, err error) {
	var args map[string]any
	json.Unmarshal(input, &args)

	documentID := ""
	if id, ok := args["document_id"].(string); ok {
		documentID = id
	}
	h.trail.Record("mcp.tool_call", documentID, map[string]any{
		"tool": toolName,
		"args": args,
	}, err)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.httpSrv == nil {
		http.Error(w, "MCP server not initialized", http.StatusInternalServerError)
		return
	}
	h.httpSrv.ServeHTTP(w, r)
}

// ExecuteTool routes a prefixed tool name to the owning worker. It
// backs the plain HTTP tool endpoints.
func (h *Handler) ExecuteTool(ctx context.Context, toolName string, args json.RawMessage) ([]byte, error) {
	for name, worker := range h.workers {
		fullPrefix := name + "_"
		if len(toolName) > len(fullPrefix) && toolName[:len(fullPrefix)] == fullPrefix {
			shortName := toolName[len(fullPrefix):]
			return worker.Execute(ctx, shortName, args)
		}
	}
	return nil, fmt.Errorf("tool not found: %s", toolName)
}
