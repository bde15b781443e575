package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGetDelete(t *testing.T) {
	m := NewMemory(4)
	ctx := context.Background()

	_, ok, err := m.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "doc-1", []byte("chunks")))
	value, ok, err := m.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("chunks"), value)
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Delete(ctx, "doc-1"))
	_, ok, err = m.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemory_OverwriteKeepsOneEntry(t *testing.T) {
	m := NewMemory(4)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "doc-1", []byte("old")))
	require.NoError(t, m.Set(ctx, "doc-1", []byte("new")))

	value, ok, err := m.Get(ctx, "doc-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), value)
	assert.Equal(t, 1, m.Len())
}

func TestMemory_EvictsLeastRecentlyUsed(t *testing.T) {
	m := NewMemory(2)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	require.NoError(t, m.Set(ctx, "b", []byte("2")))

	// Touch a so b becomes the eviction candidate.
	_, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, m.Set(ctx, "c", []byte("3")))
	assert.Equal(t, 2, m.Len())

	_, ok, _ = m.Get(ctx, "b")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "a")
	assert.True(t, ok)
	_, ok, _ = m.Get(ctx, "c")
	assert.True(t, ok)
}

func TestMemory_DeleteMissingIsNoop(t *testing.T) {
	m := NewMemory(2)
	assert.NoError(t, m.Delete(context.Background(), "ghost"))
}
