package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ericksa/contractiq/internal/config"
)

// maxToolRounds bounds the chat loop so a model that keeps asking for
// tools cannot spin forever.
const maxToolRounds = 8

type LLMAdapter struct {
	cfg        *config.Config
	client     *http.Client
	gatewayURL string
}

type ChatRequest struct {
	Model    string          `json:"model"`
	Messages []Message       `json:"messages"`
	Tools    json.RawMessage `json:"tools,omitempty"`
	Stream   bool            `json:"stream"`
}

type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

type ToolCall struct {
	Function ToolFunc `json:"function"`
}

type ToolFunc struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type ChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

func NewLLMAdapter(cfg *config.Config, gatewayURL string) *LLMAdapter {
	return &LLMAdapter{
		cfg:        cfg,
		client:     &http.Client{Timeout: 120 * time.Second},
		gatewayURL: strings.TrimSuffix(gatewayURL, "/"),
	}
}

func (a *LLMAdapter) Chat(ctx context.Context, messages []Message, tools json.RawMessage) (*ChatResponse, error) {
	req := ChatRequest{
		Model:    a.cfg.CIQ.LLM.Model,
		Messages: messages,
		Stream:   false,
	}

	if len(tools) > 0 {
		req.Tools = tools
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.cfg.CIQ.LLM.Endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.cfg.CIQ.LLM.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.cfg.CIQ.LLM.APIKey)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("LLM API error: %s", string(b))
	}

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CallGatewayTool runs one contract tool through the gateway's plain
// HTTP tool endpoint and returns the raw JSON reply.
func (a *LLMAdapter) CallGatewayTool(ctx context.Context, toolName string, args json.RawMessage) (string, error) {
	shortName := strings.TrimPrefix(toolName, "contract_")
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.gatewayURL+"/tools/contract/"+shortName, bytes.NewReader(args))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.CIQ.Auth.Token)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return string(b), nil
}

func (a *LLMAdapter) Run(ctx context.Context, systemPrompt string, userPrompt string, tools json.RawMessage) (string, error) {
	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.Chat(ctx, messages, tools)
		if err != nil {
			return "", err
		}

		msg := resp.Message
		messages = append(messages, msg)

		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		for _, tc := range msg.ToolCalls {
			result, err := a.CallGatewayTool(ctx, tc.Function.Name, tc.Function.Arguments)
			if err != nil {
				result = fmt.Sprintf("error: %v", err)
			}
			messages = append(messages, Message{
				Role:    "tool",
				Content: result,
			})
		}
	}
	return "", fmt.Errorf("model kept requesting tools after %d rounds", maxToolRounds)
}

func loadToolsSchema() (json.RawMessage, error) {
	tools := []map[string]interface{}{
		{
			"type": "function",
			"function": map[string]interface{}{
				"name":        "contract_list_documents",
				"description": "List the stored contract documents",
				"parameters": map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{},
				},
			},
		},
		{
			"type": "function",
			"function": map[string]interface{}{
				"name":        "contract_extract_fields",
				"description": "Extract structured fields (parties, dates, governing law, liability cap, auto-renewal, payment terms, signatories) from a stored contract",
				"parameters": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"document_id": map[string]interface{}{
							"type":        "string",
							"description": "The document to extract from",
						},
					},
					"required": []string{"document_id"},
				},
			},
		},
		{
			"type": "function",
			"function": map[string]interface{}{
				"name":        "contract_audit_document",
				"description": "Run risk checks (auto-renewal notice, unlimited liability, broad indemnity, termination restrictions) against a stored contract",
				"parameters": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"document_id": map[string]interface{}{
							"type":        "string",
							"description": "The document to audit",
						},
					},
					"required": []string{"document_id"},
				},
			},
		},
		{
			"type": "function",
			"function": map[string]interface{}{
				"name":        "contract_ask_question",
				"description": "Answer a question about stored contracts with citations",
				"parameters": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"question": map[string]interface{}{
							"type":        "string",
							"description": "The question to answer",
						},
						"document_ids": map[string]interface{}{
							"type":        "array",
							"items":       map[string]interface{}{"type": "string"},
							"description": "Restrict the search to these documents",
						},
					},
					"required": []string{"question"},
				},
			},
		},
	}
	return json.Marshal(tools)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	gatewayURL := "http://localhost:8080"
	if len(os.Args) > 1 {
		gatewayURL = os.Args[1]
	}

	adapter := NewLLMAdapter(cfg, gatewayURL)

	tools, err := loadToolsSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load tools: %v\n", err)
		os.Exit(1)
	}

	systemPrompt := "You are a contract analyst with access to contract intelligence tools. Look up the stored documents with the tools before answering."
	userPrompt := "List the stored contract documents."

	if len(os.Args) > 2 {
		userPrompt = strings.Join(os.Args[2:], " ")
	}

	result, err := adapter.Run(context.Background(), systemPrompt, userPrompt, tools)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(result)
}
