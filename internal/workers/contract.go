package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LLMCaller generates text from a prompt. Implementations wrap a
// concrete model server.
type LLMCaller interface {
	Call(ctx context.Context, prompt string, systemPrompt string) (string, error)
}

// LLMStreamer is implemented by callers that can deliver the reply
// token by token.
type LLMStreamer interface {
	CallStream(ctx context.Context, prompt string, systemPrompt string, onToken func(string) error) error
}

// ContractWorkerState exposes the contract intelligence operations as
// a tool worker. Persistence goes through the document store and
// question answering through the RAG worker.
type ContractWorkerState struct {
	Tools     []ToolDef
	Store     *DocumentStore
	RAGWorker *RAGWorkerState
	LLM       LLMCaller
}

func NewContractWorkerState(store *DocumentStore) *ContractWorkerState {
	return &ContractWorkerState{
		Tools: []ToolDef{
			{Name: "extract_fields", Description: "Extract structured fields from a stored contract"},
			{Name: "audit_document", Description: "Run risk checks against a stored contract"},
			{Name: "ask_question", Description: "Answer a question about stored contracts with citations"},
			{Name: "ingest_text", Description: "Store raw contract text as a single-page document"},
			{Name: "list_documents", Description: "List stored contract documents"},
			{Name: "get_document", Description: "Get a stored contract document by ID"},
		},
		Store: store,
	}
}

func (w *ContractWorkerState) GetTools() []ToolDef {
	return w.Tools
}

func (w *ContractWorkerState) Execute(ctx context.Context, name string, input json.RawMessage) ([]byte, error) {
	switch name {
	case "contract_extract_fields", "extract_fields":
		return w.extractFieldsTool(ctx, input)
	case "contract_audit_document", "audit_document":
		return w.auditDocumentTool(ctx, input)
	case "contract_ask_question", "ask_question":
		return w.askQuestionTool(ctx, input)
	case "contract_ingest_text", "ingest_text":
		return w.ingestTextTool(ctx, input)
	case "contract_list_documents", "list_documents":
		return w.listDocumentsTool(ctx, input)
	case "contract_get_document", "get_document":
		return w.getDocumentTool(ctx, input)
	default:
		return nil, nil
	}
}

// SetRAGWorker connects the retrieval worker used for questions.
func (w *ContractWorkerState) SetRAGWorker(rag *RAGWorkerState) {
	w.RAGWorker = rag
}

// SetLLMCaller sets the model used for extraction.
func (w *ContractWorkerState) SetLLMCaller(caller LLMCaller) {
	w.LLM = caller
}

// AuditDocument runs every risk check against a stored document.
func (w *ContractWorkerState) AuditDocument(documentID string) (*AuditReport, error) {
	doc, err := w.Store.LoadDocument(documentID)
	if err != nil {
		return nil, err
	}
	return &AuditReport{
		DocumentID: documentID,
		Findings:   RunRiskChecks(documentID, doc.Pages),
	}, nil
}

// Ask answers a question over the given documents, or all stored
// documents when none are named.
func (w *ContractWorkerState) Ask(ctx context.Context, question string, documentIDs []string) (*Answer, error) {
	if w.RAGWorker == nil {
		return nil, fmt.Errorf("rag worker not configured")
	}
	return w.RAGWorker.Ask(ctx, question, documentIDs)
}

// IngestPDF parses an uploaded PDF into page text and stores both the
// pages and the original bytes.
func (w *ContractWorkerState) IngestPDF(ctx context.Context, filename string, data []byte) (*DocumentMeta, error) {
	pages, err := PagesFromPDF(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	meta := DocumentMeta{
		DocumentID:      newDocumentID(),
		Filename:        filename,
		UploadTimestamp: time.Now().UTC(),
		SizeBytes:       int64(len(data)),
		PageCount:       len(pages),
	}
	doc := &StoredDocument{
		DocumentID: meta.DocumentID,
		Pages:      pages,
		Metadata:   meta,
	}
	if err := w.Store.SaveDocument(ctx, doc, data); err != nil {
		return nil, err
	}
	if w.RAGWorker != nil {
		w.RAGWorker.InvalidateDocument(ctx, meta.DocumentID)
	}
	return &meta, nil
}

// IngestText stores raw text as a single-page document, as if a
// one-page PDF had been uploaded.
func (w *ContractWorkerState) IngestText(ctx context.Context, filename, text string) (*DocumentMeta, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text required")
	}
	if filename == "" {
		filename = "untitled.txt"
	}

	meta := DocumentMeta{
		DocumentID:      newDocumentID(),
		Filename:        filename,
		UploadTimestamp: time.Now().UTC(),
		SizeBytes:       int64(len(text)),
		PageCount:       1,
	}
	doc := &StoredDocument{
		DocumentID: meta.DocumentID,
		Pages:      []PageText{{Page: 1, Text: text}},
		Metadata:   meta,
	}
	if err := w.Store.SaveDocument(ctx, doc, nil); err != nil {
		return nil, err
	}
	if w.RAGWorker != nil {
		w.RAGWorker.InvalidateDocument(ctx, meta.DocumentID)
	}
	return &meta, nil
}

// --- Tool wrappers ---

func (w *ContractWorkerState) extractFieldsTool(ctx context.Context, input json.RawMessage) ([]byte, error) {
	var req struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.DocumentID == "" {
		return nil, fmt.Errorf("document_id required")
	}

	ext, err := w.ExtractFields(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ext)
}

func (w *ContractWorkerState) auditDocumentTool(ctx context.Context, input json.RawMessage) ([]byte, error) {
	var req struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.DocumentID == "" {
		return nil, fmt.Errorf("document_id required")
	}

	report, err := w.AuditDocument(req.DocumentID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(report)
}

func (w *ContractWorkerState) askQuestionTool(ctx context.Context, input json.RawMessage) ([]byte, error) {
	var req struct {
		Question    string   `json:"question"`
		DocumentIDs []string `json:"document_ids"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.Question == "" {
		return nil, fmt.Errorf("question required")
	}

	answer, err := w.Ask(ctx, req.Question, req.DocumentIDs)
	if err != nil {
		return nil, err
	}
	return json.Marshal(answer)
}

func (w *ContractWorkerState) ingestTextTool(ctx context.Context, input json.RawMessage) ([]byte, error) {
	var req struct {
		Filename string `json:"filename"`
		Text     string `json:"text"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}

	meta, err := w.IngestText(ctx, req.Filename, req.Text)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{
		"document_id":      meta.DocumentID,
		"filename":         meta.Filename,
		"upload_timestamp": meta.UploadTimestamp,
		"pages":            meta.PageCount,
	})
}

func (w *ContractWorkerState) listDocumentsTool(ctx context.Context, input json.RawMessage) ([]byte, error) {
	metas, err := w.Store.ListDocuments()
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{
		"documents": metas,
		"total":     len(metas),
	})
}

func (w *ContractWorkerState) getDocumentTool(ctx context.Context, input json.RawMessage) ([]byte, error) {
	var req struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.DocumentID == "" {
		return nil, fmt.Errorf("document_id required")
	}

	doc, err := w.Store.LoadDocument(req.DocumentID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
