package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ericksa/contractiq/internal/cache"
)

// ErrNoDocuments is returned when a question has no documents to
// search against.
var ErrNoDocuments = errors.New("no documents found to search")

// Chunk is one retrievable slice of a document page. Offsets are
// relative to the page text so citations can be checked against the
// stored document.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Page       int    `json:"page"`
	Text       string `json:"text"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
}

// Answer is a question answer with supporting citations. Sources
// lists the distinct documents the citations came from.
type Answer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Sources   []string   `json:"sources"`
}

const answerNotFound = "I don't have enough information to answer this question."

const askPromptTemplate = `You are a contract analysis expert. Answer the question using only the provided contract excerpts. If the excerpts do not contain the answer, say "I don't have enough information to answer this question."

Contract excerpts:
%s

Question: %s

Answer:`

// RAGWorkerState answers questions about stored documents with
// retrieval-augmented generation. Chunk lists are cached through an
// injected ChunkCache; vector indexes are cached in-process per
// document set.
type RAGWorkerState struct {
	Store        *DocumentStore
	Chunks       cache.ChunkCache
	Embedder     Embedder
	LLM          LLMCaller
	ChunkSize    int
	ChunkOverlap int
	TopK         int

	mu      sync.Mutex
	indexes map[string]*MemoryVectorIndex
}

func NewRAGWorkerState(store *DocumentStore, chunks cache.ChunkCache, embedder Embedder, chunkSize, chunkOverlap, topK int) *RAGWorkerState {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap <= 0 {
		chunkOverlap = 200
	}
	if topK <= 0 {
		topK = 5
	}
	return &RAGWorkerState{
		Store:        store,
		Chunks:       chunks,
		Embedder:     embedder,
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		TopK:         topK,
		indexes:      make(map[string]*MemoryVectorIndex),
	}
}

// SetLLMCaller sets the model used to generate answers.
func (w *RAGWorkerState) SetLLMCaller(llm LLMCaller) {
	w.LLM = llm
}

// Separators tried when a chunk boundary lands mid-text, most
// structural first.
var chunkSeparators = []string{"\n\n", "\n", ". ", " "}

// splitText cuts text into segments of at most chunkSize chars with
// chunkOverlap chars repeated between neighbors. Cuts prefer
// paragraph, line, sentence, then word boundaries; only boundary-free
// text is cut mid-word. Every segment is an exact substring of the
// input.
func splitText(text string, chunkSize, chunkOverlap int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	var segments []string
	start := 0
	for start < len(text) {
		end := min(start+chunkSize, len(text))
		if end < len(text) {
			// A cut shorter than the overlap would stall the walk.
			if cut := lastSeparator(text[start:end]); cut > chunkOverlap {
				end = start + cut
			}
		}
		segments = append(segments, text[start:end])
		if end == len(text) {
			break
		}
		start = max(end-chunkOverlap, start+1)
	}
	return segments
}

// lastSeparator returns the index just past the last separator in the
// window, or -1 when the window has none.
func lastSeparator(window string) int {
	for _, sep := range chunkSeparators {
		if idx := strings.LastIndex(window, sep); idx > 0 {
			return idx + len(sep)
		}
	}
	return -1
}

// ChunkDocument splits every page into overlapping chunks and records
// each chunk's offsets within its page.
func ChunkDocument(documentID string, pages []PageText, chunkSize, chunkOverlap int) []Chunk {
	var chunks []Chunk
	for _, page := range pages {
		chunks = append(chunks, chunkPage(documentID, page, chunkSize, chunkOverlap)...)
	}
	return chunks
}

func chunkPage(documentID string, page PageText, chunkSize, chunkOverlap int) []Chunk {
	segments := splitText(page.Text, chunkSize, chunkOverlap)
	chunks := make([]Chunk, 0, len(segments))

	// Chunks are relocated by searching forward from just before the
	// previous chunk's end, so repeated passages resolve in order.
	searchFrom := 0
	for _, segment := range segments {
		start := searchFrom
		if idx := strings.Index(page.Text[searchFrom:], segment); idx >= 0 {
			start = searchFrom + idx
		}
		end := start + len(segment)
		chunks = append(chunks, Chunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Page:       page.Page,
			Text:       segment,
			StartChar:  start,
			EndChar:    end,
		})
		searchFrom = max(0, end-chunkOverlap)
	}
	return chunks
}

// chunksFor returns the chunk list for one document, from the chunk
// cache when possible.
func (w *RAGWorkerState) chunksFor(ctx context.Context, documentID string) ([]Chunk, error) {
	if w.Chunks != nil {
		if data, ok, err := w.Chunks.Get(ctx, documentID); err == nil && ok {
			var chunks []Chunk
			if err := json.Unmarshal(data, &chunks); err == nil {
				return chunks, nil
			}
		}
	}

	doc, err := w.Store.LoadDocument(documentID)
	if err != nil {
		return nil, err
	}
	chunks := ChunkDocument(documentID, doc.Pages, w.ChunkSize, w.ChunkOverlap)

	if w.Chunks != nil {
		if data, err := json.Marshal(chunks); err == nil {
			if err := w.Chunks.Set(ctx, documentID, data); err != nil {
				fmt.Printf("Warning: failed to cache chunks for %s: %v\n", documentID, err)
			}
		}
	}
	return chunks, nil
}

// indexFor returns the vector index for a document set, building and
// caching it on first use. The key is the sorted id list, so the same
// set always shares one index regardless of request order.
func (w *RAGWorkerState) indexFor(ctx context.Context, documentIDs []string) (*MemoryVectorIndex, error) {
	ids := append([]string(nil), documentIDs...)
	sort.Strings(ids)
	key := strings.Join(ids, ",")

	w.mu.Lock()
	if ix, ok := w.indexes[key]; ok {
		w.mu.Unlock()
		return ix, nil
	}
	w.mu.Unlock()

	ix := &MemoryVectorIndex{}
	for _, id := range ids {
		chunks, err := w.chunksFor(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(chunks) == 0 {
			continue
		}
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors, err := w.Embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks for %s: %w", id, err)
		}
		for i, c := range chunks {
			ix.Add(c, vectors[i])
		}
	}

	w.mu.Lock()
	w.indexes[key] = ix
	w.mu.Unlock()
	return ix, nil
}

// InvalidateDocument drops the cached chunks and every vector index
// built over the document, so stale text never serves a question.
func (w *RAGWorkerState) InvalidateDocument(ctx context.Context, documentID string) {
	if w.Chunks != nil {
		if err := w.Chunks.Delete(ctx, documentID); err != nil {
			fmt.Printf("Warning: failed to invalidate chunk cache for %s: %v\n", documentID, err)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for key := range w.indexes {
		for _, id := range strings.Split(key, ",") {
			if id == documentID {
				delete(w.indexes, key)
				break
			}
		}
	}
}

func (w *RAGWorkerState) resolveDocumentIDs(documentIDs []string) ([]string, error) {
	if len(documentIDs) > 0 {
		return documentIDs, nil
	}
	ids, err := w.Store.ListDocumentIDs()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoDocuments
	}
	return ids, nil
}

// Ask retrieves the most relevant chunks for the question and has the
// model answer from them. An empty documentIDs searches every stored
// document.
func (w *RAGWorkerState) Ask(ctx context.Context, question string, documentIDs []string) (*Answer, error) {
	return w.answer(ctx, question, documentIDs, nil)
}

// AskStream behaves like Ask but delivers answer tokens through
// onToken as they become available. When the model cannot stream, the
// finished answer is split into word tokens instead.
func (w *RAGWorkerState) AskStream(ctx context.Context, question string, documentIDs []string, onToken func(string) error) (*Answer, error) {
	return w.answer(ctx, question, documentIDs, onToken)
}

func (w *RAGWorkerState) answer(ctx context.Context, question string, documentIDs []string, onToken func(string) error) (*Answer, error) {
	ids, err := w.resolveDocumentIDs(documentIDs)
	if err != nil {
		return nil, err
	}
	ix, err := w.indexFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	queryVectors, err := w.Embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	results := ix.Search(queryVectors[0], w.TopK)

	var contextBuilder strings.Builder
	citations := make([]Citation, 0, len(results))
	sources := make([]string, 0, len(results))
	seen := make(map[string]bool)
	for i, r := range results {
		if i > 0 {
			contextBuilder.WriteString("\n---\n")
		}
		contextBuilder.WriteString(fmt.Sprintf("[Document %s, page %d]\n%s", r.Chunk.DocumentID, r.Chunk.Page, r.Chunk.Text))
		citations = append(citations, Citation{
			DocumentID: r.Chunk.DocumentID,
			Page:       r.Chunk.Page,
			StartChar:  r.Chunk.StartChar,
			EndChar:    r.Chunk.EndChar,
			Text:       truncate(r.Chunk.Text, 200),
		})
		if !seen[r.Chunk.DocumentID] {
			seen[r.Chunk.DocumentID] = true
			sources = append(sources, r.Chunk.DocumentID)
		}
	}

	text, err := w.generateAnswer(ctx, question, contextBuilder.String(), results, onToken)
	if err != nil {
		return nil, err
	}
	return &Answer{Answer: text, Citations: citations, Sources: sources}, nil
}

func (w *RAGWorkerState) generateAnswer(ctx context.Context, question, contextText string, results []SearchResult, onToken func(string) error) (string, error) {
	if w.LLM == nil {
		// No model wired; answer extractively from the retrieved text.
		if len(results) == 0 {
			return answerNotFound, nil
		}
		parts := make([]string, 0, len(results))
		for _, r := range results {
			parts = append(parts, r.Chunk.Text)
		}
		text := strings.Join(parts, "\n\n")
		if onToken != nil {
			if err := streamByWords(text, onToken); err != nil {
				return "", err
			}
		}
		return text, nil
	}

	prompt := fmt.Sprintf(askPromptTemplate, contextText, question)
	if onToken != nil {
		if streamer, ok := w.LLM.(LLMStreamer); ok {
			var sb strings.Builder
			err := streamer.CallStream(ctx, prompt, "", func(token string) error {
				sb.WriteString(token)
				return onToken(token)
			})
			if err != nil {
				return "", fmt.Errorf("failed to stream answer: %w", err)
			}
			return sb.String(), nil
		}
	}

	text, err := w.LLM.Call(ctx, prompt, "")
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	text = strings.TrimSpace(text)
	if onToken != nil {
		if err := streamByWords(text, onToken); err != nil {
			return "", err
		}
	}
	return text, nil
}

// streamByWords feeds an already complete answer through the token
// callback, space-delimited.
func streamByWords(text string, onToken func(string) error) error {
	for _, token := range strings.SplitAfter(text, " ") {
		if token == "" {
			continue
		}
		if err := onToken(token); err != nil {
			return err
		}
	}
	return nil
}
