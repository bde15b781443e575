package workers

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericksa/contractiq/internal/cache"
)

func TestSplitText_ShortTextSingleSegment(t *testing.T) {
	segments := splitText("short contract text", 1000, 200)
	assert.Equal(t, []string{"short contract text"}, segments)
}

func TestSplitText_Empty(t *testing.T) {
	assert.Nil(t, splitText("", 1000, 200))
}

func TestSplitText_CoversInputWithOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Sentence number %d about contract obligations. ", i)
	}
	text := b.String()

	segments := splitText(text, 200, 40)
	require.Greater(t, len(segments), 1)

	// Walking the segments with the overlap must visit every char of
	// the input exactly as it appears there.
	covered := 0
	searchFrom := 0
	for _, seg := range segments {
		assert.LessOrEqual(t, len(seg), 200)
		idx := strings.Index(text[searchFrom:], seg)
		require.GreaterOrEqual(t, idx, 0)
		start := searchFrom + idx
		require.LessOrEqual(t, start, covered)
		covered = start + len(seg)
		searchFrom = max(0, covered-40)
	}
	assert.Equal(t, len(text), covered)
	assert.True(t, strings.HasPrefix(text, segments[0]))
}

func TestSplitText_NoSeparators(t *testing.T) {
	text := strings.Repeat("a", 250)
	segments := splitText(text, 100, 20)
	require.Len(t, segments, 3)
	assert.Equal(t, 100, len(segments[0]))
	assert.Equal(t, 100, len(segments[1]))
	assert.Equal(t, 90, len(segments[2]))
}

func TestChunkDocument_OffsetsMatchPageText(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "Clause %d sets out a distinct obligation of the parties. ", i)
	}
	page := PageText{Page: 4, Text: b.String()}

	chunks := ChunkDocument("doc-1", []PageText{page}, 200, 40)
	require.NotEmpty(t, chunks)

	assert.Equal(t, 0, chunks[0].StartChar)
	assert.Equal(t, len(page.Text), chunks[len(chunks)-1].EndChar)
	for i, c := range chunks {
		assert.Equal(t, "doc-1", c.DocumentID)
		assert.Equal(t, 4, c.Page)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, c.Text, page.Text[c.StartChar:c.EndChar])
		if i > 0 {
			assert.LessOrEqual(t, c.StartChar, chunks[i-1].EndChar)
		}
	}
}

func TestRAGWorkerState_Ask_NoDocuments(t *testing.T) {
	rag := NewRAGWorkerState(newTestStore(t), cache.NewMemory(8), NewHashEmbedder(64), 500, 100, 3)
	_, err := rag.Ask(context.Background(), "What is the term?", nil)
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestRAGWorkerState_Ask_UnknownDocument(t *testing.T) {
	rag := NewRAGWorkerState(newTestStore(t), cache.NewMemory(8), NewHashEmbedder(64), 500, 100, 3)
	_, err := rag.Ask(context.Background(), "What is the term?", []string{"nope"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestRAGWorkerState_Ask_AnswersWithCitations(t *testing.T) {
	store := newTestStore(t)
	saveTestDoc(t, store, "doc-1", []PageText{{
		Page: 1,
		Text: "The contract term is five years. Payment is due net 30 days. Governing law is Delaware.",
	}})

	rag := NewRAGWorkerState(store, cache.NewMemory(8), NewHashEmbedder(128), 60, 10, 2)
	llm := &fakeLLM{reply: "The term is five years."}
	rag.SetLLMCaller(llm)

	ans, err := rag.Ask(context.Background(), "How long is the term?", []string{"doc-1"})
	require.NoError(t, err)
	assert.Equal(t, "The term is five years.", ans.Answer)
	assert.Equal(t, []string{"doc-1"}, ans.Sources)
	require.NotEmpty(t, ans.Citations)
	for _, c := range ans.Citations {
		assert.Equal(t, "doc-1", c.DocumentID)
		assert.Equal(t, 1, c.Page)
		assert.NotEmpty(t, c.Text)
	}

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "How long is the term?")
	assert.Contains(t, llm.prompts[0], "[Document doc-1, page 1]")
}

func TestRAGWorkerState_Ask_ExtractiveWithoutModel(t *testing.T) {
	store := newTestStore(t)
	text := "Payment is due net 30 days after the invoice date."
	saveTestDoc(t, store, "doc-1", []PageText{{Page: 1, Text: text}})

	rag := NewRAGWorkerState(store, cache.NewMemory(8), NewHashEmbedder(128), 500, 100, 3)
	ans, err := rag.Ask(context.Background(), "When is payment due?", []string{"doc-1"})
	require.NoError(t, err)
	assert.Equal(t, text, ans.Answer)
	require.Len(t, ans.Citations, 1)
	assert.Equal(t, text, ans.Citations[0].Text)
}

func TestRAGWorkerState_Ask_ModelError(t *testing.T) {
	store := newTestStore(t)
	saveTestDoc(t, store, "doc-1", []PageText{{Page: 1, Text: "Some text."}})

	rag := NewRAGWorkerState(store, cache.NewMemory(8), NewHashEmbedder(64), 500, 100, 3)
	rag.SetLLMCaller(&fakeLLM{err: assert.AnError})

	_, err := rag.Ask(context.Background(), "Anything?", []string{"doc-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate answer")
}

func TestRAGWorkerState_AskStream_TokensRebuildAnswer(t *testing.T) {
	store := newTestStore(t)
	saveTestDoc(t, store, "doc-1", []PageText{{Page: 1, Text: "Some text."}})

	rag := NewRAGWorkerState(store, cache.NewMemory(8), NewHashEmbedder(64), 500, 100, 3)
	rag.SetLLMCaller(&fakeLLM{reply: "Net 30 days after invoice."})

	var tokens []string
	ans, err := rag.AskStream(context.Background(), "When is payment due?", []string{"doc-1"}, func(token string) error {
		tokens = append(tokens, token)
		return nil
	})
	require.NoError(t, err)
	assert.Greater(t, len(tokens), 1)
	assert.Equal(t, ans.Answer, strings.Join(tokens, ""))
}

func TestRAGWorkerState_ChunkCacheAndInvalidation(t *testing.T) {
	store := newTestStore(t)
	saveTestDoc(t, store, "doc-1", []PageText{{Page: 1, Text: "Some contract text."}})

	mem := cache.NewMemory(8)
	rag := NewRAGWorkerState(store, mem, NewHashEmbedder(64), 500, 100, 3)

	_, err := rag.Ask(context.Background(), "What does it say?", []string{"doc-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, mem.Len())

	rag.InvalidateDocument(context.Background(), "doc-1")
	assert.Equal(t, 0, mem.Len())
}
