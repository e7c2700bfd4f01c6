package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songtrybe/youtube-metadata-cache/internal/db/models"
)

func TestMemoryVideoCacheRepository(t *testing.T) {
	testVideoCacheRepository(t, func(*testing.T) VideoCacheRepository {
		return NewMemoryVideoCacheRepository()
	})
}

func TestMemoryVideoCacheRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryVideoCacheRepository()
	at := time.Now()

	rec := &models.CachedVideoRecord{
		VideoID:        "aaaaaaaaaaa",
		Title:          "original",
		LastFetchedAt:  at,
		Stats:          &models.VideoStats{ViewCount: 1},
		StatsFetchedAt: &at,
	}
	require.NoError(t, repo.Put(ctx, rec))

	rec.Title = "mutated after put"
	rec.Stats.ViewCount = 99

	got, err := repo.Get(ctx, "aaaaaaaaaaa")
	require.NoError(t, err)
	got.Stats.ViewCount = 42

	again, err := repo.Get(ctx, "aaaaaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, "original", again.Title)
	assert.Equal(t, int64(1), again.Stats.ViewCount)
	assert.Equal(t, 1, repo.Len())
}

func TestMemoryVideoCacheRepository_DropsHalfStats(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryVideoCacheRepository()

	require.NoError(t, repo.Put(ctx, &models.CachedVideoRecord{
		VideoID:       "bbbbbbbbbbb",
		LastFetchedAt: time.Now(),
		Stats:         &models.VideoStats{ViewCount: 3},
	}))

	got, err := repo.Get(ctx, "bbbbbbbbbbb")
	require.NoError(t, err)
	assert.Nil(t, got.Stats)
	assert.Nil(t, got.StatsFetchedAt)
}
