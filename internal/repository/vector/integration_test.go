//go:build integration

package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/repository/common"
)

func TestPgvectorStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	pool := common.SetupTestDB(t)
	store := NewPgvectorStore(pool)
	ctx := context.Background()

	manifest, entries, vectors := sampleIndex()
	require.NoError(t, store.Save(ctx, ref, manifest, entries, vectors))

	m, err := store.Manifest(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "mxbai-embed-large", m.EmbeddingModel)
	assert.Equal(t, 3, m.Dimension)
	assert.Equal(t, 2, m.Count)

	// each stored vector is its own nearest neighbor
	for i, vec := range vectors {
		results, err := store.Search(ctx, ref, vec, 5)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, entries[i].ID, results[0].ID)
		assert.InDelta(t, 0, results[0].Distance, 1e-6)
		assert.InDelta(t, 2.0, results[1].Distance, 1e-5)
	}

	// saving again replaces the previous rows
	require.NoError(t, store.Save(ctx, ref, manifest, entries[:1], vectors[:1]))
	m, err = store.Manifest(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count)

	require.NoError(t, store.Delete(ctx, ref))
	_, err = store.Manifest(ctx, ref)
	assert.True(t, errors.Is(err, errors.CodeIndexIO))
}
