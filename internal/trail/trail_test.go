package trail

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTrail(t *testing.T) *Trail {
	t.Helper()
	tr := Open(filepath.Join(t.TempDir(), "trail.db"))
	require.True(t, tr.Enabled())
	t.Cleanup(tr.Close)
	return tr
}

func TestTrail_RecordAndRecent(t *testing.T) {
	tr := newTestTrail(t)

	tr.Record("document.ingested", "doc-a", map[string]any{"filename": "nda.pdf"}, nil)
	tr.Record("extract.complete", "doc-a", nil, nil)
	tr.Record("ask.complete", "", map[string]any{"question": "What is the term?"}, errors.New("model unavailable"))

	events, err := tr.Recent(10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Newest first.
	assert.Equal(t, "ask.complete", events[0].Event)
	assert.Equal(t, "model unavailable", events[0].Error)
	assert.Contains(t, events[0].Payload, "What is the term?")

	assert.Equal(t, "extract.complete", events[1].Event)
	assert.Equal(t, "doc-a", events[1].DocumentID)
	assert.Empty(t, events[1].Payload)

	assert.Equal(t, "document.ingested", events[2].Event)
	assert.Contains(t, events[2].Payload, "nda.pdf")
	assert.False(t, events[2].Timestamp.IsZero())
}

func TestTrail_RecordSanitizesPayload(t *testing.T) {
	tr := newTestTrail(t)
	tr.Record("ask.complete", "doc-a", map[string]any{"email": "jane@example.com"}, nil)

	events, err := tr.Recent(1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotContains(t, events[0].Payload, "jane@example.com")
	assert.Contains(t, events[0].Payload, "REDACTED")
}

func TestTrail_Filter(t *testing.T) {
	tr := newTestTrail(t)
	tr.Record("document.ingested", "doc-a", nil, nil)
	tr.Record("audit.complete", "doc-a", nil, nil)
	tr.Record("document.ingested", "doc-b", nil, nil)

	byEvent, err := tr.Filter("document.ingested", "", time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, byEvent, 2)

	byDoc, err := tr.Filter("", "doc-a", time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, byDoc, 2)

	both, err := tr.Filter("document.ingested", "doc-b", time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "doc-b", both[0].DocumentID)

	limited, err := tr.Filter("", "", time.Time{}, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "document.ingested", limited[0].Event)
	assert.Equal(t, "doc-b", limited[0].DocumentID)
}

func TestTrail_FilterSince(t *testing.T) {
	tr := newTestTrail(t)
	tr.Record("document.ingested", "doc-a", nil, nil)

	past, err := tr.Filter("", "", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 0)
	require.NoError(t, err)
	assert.Len(t, past, 1)

	future, err := tr.Filter("", "", time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC), 0)
	require.NoError(t, err)
	assert.Empty(t, future)
}

func TestTrail_CountsByEvent(t *testing.T) {
	tr := newTestTrail(t)
	tr.Record("document.ingested", "doc-a", nil, nil)
	tr.Record("document.ingested", "doc-b", nil, nil)
	tr.Record("audit.complete", "doc-a", nil, nil)

	counts, err := tr.CountsByEvent()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"document.ingested": 2,
		"audit.complete":    1,
	}, counts)
}

func TestTrail_DisabledIsNoop(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	tr := Open(filepath.Join(blocker, "sub", "trail.db"))
	assert.False(t, tr.Enabled())

	tr.Record("document.ingested", "doc-a", nil, nil)

	events, err := tr.Recent(10)
	require.NoError(t, err)
	assert.Nil(t, events)

	counts, err := tr.CountsByEvent()
	require.NoError(t, err)
	assert.Empty(t, counts)

	tr.Close()
}
