package workers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLLM returns a canned reply and records every prompt it was
// given.
type fakeLLM struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeLLM) Call(_ context.Context, prompt, _ string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func TestExtractWithLLM_ParsesObjectFromProse(t *testing.T) {
	llm := &fakeLLM{reply: `Sure, here is the extraction:
{"parties": [{"name": "Acme Corp", "role": "Vendor"}], "governing_law": "Delaware"}
Let me know if you need anything else.`}

	ext, ok := extractWithLLM(context.Background(), llm, "contract text")
	require.True(t, ok)
	require.Len(t, ext.Parties, 1)
	assert.Equal(t, Party{Name: "Acme Corp", Role: "Vendor"}, ext.Parties[0])
	assert.Equal(t, "Delaware", ext.GoverningLaw)
}

func TestExtractWithLLM_NoModel(t *testing.T) {
	_, ok := extractWithLLM(context.Background(), nil, "contract text")
	assert.False(t, ok)
}

func TestExtractWithLLM_NoJSONInReply(t *testing.T) {
	llm := &fakeLLM{reply: "I cannot extract fields from this document."}
	_, ok := extractWithLLM(context.Background(), llm, "contract text")
	assert.False(t, ok)
}

func TestExtractWithLLM_EmptyObjectRejected(t *testing.T) {
	llm := &fakeLLM{reply: "{}"}
	_, ok := extractWithLLM(context.Background(), llm, "contract text")
	assert.False(t, ok)
}

func TestExtractWithLLM_CallError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("model unavailable")}
	_, ok := extractWithLLM(context.Background(), llm, "contract text")
	assert.False(t, ok)
}

func TestExtractWithLLM_CapsPromptText(t *testing.T) {
	llm := &fakeLLM{reply: `{"governing_law": "Delaware"}`}
	text := strings.Repeat("a", llmTextCap) + "OVERFLOW"

	_, ok := extractWithLLM(context.Background(), llm, text)
	require.True(t, ok)
	require.Len(t, llm.prompts, 1)
	assert.NotContains(t, llm.prompts[0], "OVERFLOW")
}

func TestExtractFields_LLMSourceAndCaching(t *testing.T) {
	store := newTestStore(t)
	saveTestDoc(t, store, "doc-1", []PageText{{Page: 1, Text: "Some contract text."}})

	llm := &fakeLLM{reply: `{"parties": [{"name": "Acme Corp", "role": "Vendor"}], "term": "2 years"}`}
	worker := NewContractWorkerState(store)
	worker.SetLLMCaller(llm)

	ext, err := worker.ExtractFields(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, SourceLLM, ext.Source)
	assert.Equal(t, "doc-1", ext.DocumentID)
	assert.Equal(t, "2 years", ext.Term)

	// Second call serves the cached result without another model call.
	again, err := worker.ExtractFields(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, ext, again)
	assert.Len(t, llm.prompts, 1)
}

func TestExtractFields_FallbackSource(t *testing.T) {
	store := newTestStore(t)
	saveTestDoc(t, store, "doc-1", []PageText{{
		Page: 1,
		Text: "This Agreement is governed by the laws of the State of Delaware. " +
			"The term is 1 year from signing.",
	}})

	worker := NewContractWorkerState(store)
	ext, err := worker.ExtractFields(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, ext.Source)
	assert.Equal(t, "the State of Delaware", ext.GoverningLaw)
	assert.Equal(t, "1 year", ext.Term)
}

func TestExtractFields_EmptySource(t *testing.T) {
	store := newTestStore(t)
	saveTestDoc(t, store, "doc-1", []PageText{{Page: 1, Text: "lorem ipsum dolor sit amet"}})

	worker := NewContractWorkerState(store)
	ext, err := worker.ExtractFields(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, SourceEmpty, ext.Source)
	assert.NotNil(t, ext.Parties)
	assert.Empty(t, ext.Parties)
	assert.NotNil(t, ext.Signatories)
	assert.Empty(t, ext.Signatories)
}

func TestExtractFields_MissingDocument(t *testing.T) {
	worker := NewContractWorkerState(newTestStore(t))
	_, err := worker.ExtractFields(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}
