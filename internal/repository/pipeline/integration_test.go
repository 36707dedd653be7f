//go:build integration

package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/model"
	"github.com/Taichi-iskw/yt-rag/internal/repository/common"
)

// exerciseRepository runs the same lifecycle against any Repository implementation
func exerciseRepository(t *testing.T, repo Repository) {
	ctx := context.Background()
	first := uuid.NewString()
	second := uuid.NewString()

	rec, err := repo.Acquire(ctx, "15_pppse4fY", first, "/data/15_pppse4fY")
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, rec.Status)
	assert.Equal(t, first, rec.RunID)

	_, err = repo.Acquire(ctx, "15_pppse4fY", second, "/data/15_pppse4fY")
	assert.True(t, errors.Is(err, errors.CodeConflict))

	err = repo.MarkReady(ctx, "15_pppse4fY", second, ReadyInfo{})
	assert.True(t, errors.Is(err, errors.CodeConflict))

	require.NoError(t, repo.MarkReady(ctx, "15_pppse4fY", first, ReadyInfo{ChunkCount: 5, EmbeddingModel: "mxbai-embed-large", Dimension: 1024}))

	rec, err = repo.Get(ctx, "15_pppse4fY")
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, rec.Status)
	assert.Equal(t, 5, rec.ChunkCount)
	assert.Equal(t, 1024, rec.Dimension)
	assert.Nil(t, rec.ErrorMessage)

	rec, err = repo.Acquire(ctx, "15_pppse4fY", second, "/data/15_pppse4fY")
	require.NoError(t, err)
	assert.Equal(t, second, rec.RunID)
	require.NoError(t, repo.MarkFailed(ctx, "15_pppse4fY", second, "PROVIDER_ERROR: no captions"))

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.StatusFailed, records[0].Status)
	require.NotNil(t, records[0].ErrorMessage)

	require.NoError(t, repo.Delete(ctx, "15_pppse4fY"))
	_, err = repo.Get(ctx, "15_pppse4fY")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestPostgresRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	pool := common.SetupTestDB(t)
	exerciseRepository(t, NewPostgresRepository(pool, 30*time.Minute))
}

func TestPostgresRepository_Integration_StaleTakeover(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	pool := common.SetupTestDB(t)
	ctx := context.Background()

	repo := NewPostgresRepository(pool, time.Minute)
	start := time.Now().UTC()
	repo.now = func() time.Time { return start }
	stale := uuid.NewString()
	_, err := repo.Acquire(ctx, "vid", stale, "/data/vid")
	require.NoError(t, err)

	repo.now = func() time.Time { return start.Add(2 * time.Minute) }
	fresh := uuid.NewString()
	rec, err := repo.Acquire(ctx, "vid", fresh, "/data/vid")
	require.NoError(t, err)
	assert.Equal(t, fresh, rec.RunID)

	assert.True(t, errors.Is(repo.MarkReady(ctx, "vid", stale, ReadyInfo{}), errors.CodeConflict))
}

func TestRedisRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	client := common.SetupTestRedis(t)
	exerciseRepository(t, NewRedisRepository(client, 30*time.Minute))
}

func TestRedisRepository_Integration_LockExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	client := common.SetupTestRedis(t)
	ctx := context.Background()
	repo := NewRedisRepository(client, 200*time.Millisecond)

	_, err := repo.Acquire(ctx, "vid", "run-1", "/data/vid")
	require.NoError(t, err)

	time.Sleep(300 * time.Millisecond)
	rec, err := repo.Acquire(ctx, "vid", "run-2", "/data/vid")
	require.NoError(t, err)
	assert.Equal(t, "run-2", rec.RunID)

	assert.True(t, errors.Is(repo.MarkReady(ctx, "vid", "run-1", ReadyInfo{}), errors.CodeConflict))
	require.NoError(t, repo.MarkReady(ctx, "vid", "run-2", ReadyInfo{ChunkCount: 2}))
}
