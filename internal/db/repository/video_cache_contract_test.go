package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songtrybe/youtube-metadata-cache/internal/db"
	"github.com/songtrybe/youtube-metadata-cache/internal/db/models"
)

// testVideoCacheRepository exercises the store contract against any backend.
// reset must return an empty store.
func testVideoCacheRepository(t *testing.T, reset func(t *testing.T) VideoCacheRepository) {
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	newRecord := func(id string, fetchedAt time.Time) *models.CachedVideoRecord {
		return &models.CachedVideoRecord{
			VideoID:         id,
			Title:           "Title " + id,
			ChannelTitle:    "Channel",
			PublishedAt:     base.Add(-48 * time.Hour),
			DurationRaw:     "PT4M2S",
			DurationSeconds: 242,
			Thumbnails:      models.Thumbnails{HighURL: "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"},
			LastFetchedAt:   fetchedAt,
		}
	}
	withStats := func(rec *models.CachedVideoRecord, views, likes int64, at time.Time) *models.CachedVideoRecord {
		rec.Stats = &models.VideoStats{ViewCount: views, LikeCount: likes}
		rec.StatsFetchedAt = &at
		return rec
	}

	t.Run("get absent record returns not found", func(t *testing.T) {
		repo := reset(t)

		_, err := repo.Get(ctx, "missing0000")
		require.Error(t, err)
		assert.True(t, db.IsNotFound(err))
	})

	t.Run("put then get round trips", func(t *testing.T) {
		repo := reset(t)
		rec := withStats(newRecord("aaaaaaaaaaa", base), 100, 7, base)

		require.NoError(t, repo.Put(ctx, rec))

		got, err := repo.Get(ctx, "aaaaaaaaaaa")
		require.NoError(t, err)
		assert.Equal(t, rec.Title, got.Title)
		assert.Equal(t, rec.ChannelTitle, got.ChannelTitle)
		assert.Equal(t, rec.DurationRaw, got.DurationRaw)
		assert.Equal(t, 242, got.DurationSeconds)
		assert.Equal(t, rec.Thumbnails, got.Thumbnails)
		assert.True(t, rec.PublishedAt.Equal(got.PublishedAt))
		assert.True(t, base.Equal(got.LastFetchedAt))
		require.True(t, got.HasStats())
		assert.Equal(t, int64(100), got.Stats.ViewCount)
		assert.Equal(t, int64(7), got.Stats.LikeCount)
	})

	t.Run("put without stats keeps existing stats", func(t *testing.T) {
		repo := reset(t)
		require.NoError(t, repo.Put(ctx, withStats(newRecord("bbbbbbbbbbb", base), 50, 5, base)))

		later := base.Add(time.Hour)
		update := newRecord("bbbbbbbbbbb", later)
		update.Title = "Renamed"
		require.NoError(t, repo.Put(ctx, update))

		got, err := repo.Get(ctx, "bbbbbbbbbbb")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.True(t, later.Equal(got.LastFetchedAt))
		require.True(t, got.HasStats())
		assert.Equal(t, int64(50), got.Stats.ViewCount)
		assert.True(t, base.Equal(*got.StatsFetchedAt))
	})

	t.Run("put with stats replaces stats", func(t *testing.T) {
		repo := reset(t)
		require.NoError(t, repo.Put(ctx, withStats(newRecord("ccccccccccc", base), 50, 5, base)))

		later := base.Add(time.Hour)
		require.NoError(t, repo.Put(ctx, withStats(newRecord("ccccccccccc", later), 75, 9, later)))

		got, err := repo.Get(ctx, "ccccccccccc")
		require.NoError(t, err)
		assert.Equal(t, int64(75), got.Stats.ViewCount)
		assert.Equal(t, int64(9), got.Stats.LikeCount)
		assert.True(t, later.Equal(*got.StatsFetchedAt))
	})

	t.Run("last fetched never moves backwards", func(t *testing.T) {
		repo := reset(t)
		require.NoError(t, repo.Put(ctx, newRecord("ddddddddddd", base)))
		require.NoError(t, repo.Put(ctx, newRecord("ddddddddddd", base.Add(-24*time.Hour))))

		got, err := repo.Get(ctx, "ddddddddddd")
		require.NoError(t, err)
		assert.True(t, base.Equal(got.LastFetchedAt))
	})

	t.Run("put is idempotent", func(t *testing.T) {
		repo := reset(t)
		rec := newRecord("eeeeeeeeeee", base)
		require.NoError(t, repo.Put(ctx, rec))
		require.NoError(t, repo.Put(ctx, rec))

		recent, err := repo.ListRecent(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, recent, 1)
	})

	t.Run("query older than is strict and oldest first", func(t *testing.T) {
		repo := reset(t)
		cutoff := base
		require.NoError(t, repo.Put(ctx, newRecord("old00000001", cutoff.Add(-2*time.Hour))))
		require.NoError(t, repo.Put(ctx, newRecord("old00000002", cutoff.Add(-3*time.Hour))))
		require.NoError(t, repo.Put(ctx, newRecord("edge0000000", cutoff)))
		require.NoError(t, repo.Put(ctx, newRecord("new00000000", cutoff.Add(time.Hour))))

		got, err := repo.QueryOlderThan(ctx, cutoff, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "old00000002", got[0].VideoID)
		assert.Equal(t, "old00000001", got[1].VideoID)

		limited, err := repo.QueryOlderThan(ctx, cutoff, 1)
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, "old00000002", limited[0].VideoID)
	})

	t.Run("delete removes record and tolerates absence", func(t *testing.T) {
		repo := reset(t)
		require.NoError(t, repo.Put(ctx, newRecord("fffffffffff", base)))

		require.NoError(t, repo.Delete(ctx, "fffffffffff"))
		require.NoError(t, repo.Delete(ctx, "fffffffffff"))

		_, err := repo.Get(ctx, "fffffffffff")
		assert.True(t, db.IsNotFound(err))
	})

	t.Run("delete batch removes only listed records", func(t *testing.T) {
		repo := reset(t)
		for _, id := range []string{"ggggggggggg", "hhhhhhhhhhh", "iiiiiiiiiii"} {
			require.NoError(t, repo.Put(ctx, newRecord(id, base)))
		}

		require.NoError(t, repo.DeleteBatch(ctx, []string{"ggggggggggg", "iiiiiiiiiii", "notstored00"}))
		require.NoError(t, repo.DeleteBatch(ctx, nil))

		recent, err := repo.ListRecent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, "hhhhhhhhhhh", recent[0].VideoID)
	})

	t.Run("list recent is newest first", func(t *testing.T) {
		repo := reset(t)
		require.NoError(t, repo.Put(ctx, newRecord("jjjjjjjjjjj", base.Add(-time.Hour))))
		require.NoError(t, repo.Put(ctx, newRecord("kkkkkkkkkkk", base)))
		require.NoError(t, repo.Put(ctx, newRecord("lllllllllll", base.Add(-2*time.Hour))))

		recent, err := repo.ListRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "kkkkkkkkkkk", recent[0].VideoID)
		assert.Equal(t, "jjjjjjjjjjj", recent[1].VideoID)
	})

	t.Run("non-positive limit returns nothing", func(t *testing.T) {
		repo := reset(t)
		require.NoError(t, repo.Put(ctx, newRecord("old00000001", base.Add(-time.Hour))))

		for _, limit := range []int{0, -1} {
			older, err := repo.QueryOlderThan(ctx, base, limit)
			require.NoError(t, err)
			assert.Empty(t, older, "QueryOlderThan limit %d", limit)

			recent, err := repo.ListRecent(ctx, limit)
			require.NoError(t, err)
			assert.Empty(t, recent, "ListRecent limit %d", limit)
		}
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, reset(t).Ping(ctx))
	})
}
