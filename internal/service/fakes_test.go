package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	ytapi "google.golang.org/api/youtube/v3"

	dbmodels "github.com/songtrybe/youtube-metadata-cache/internal/db/models"
	"github.com/songtrybe/youtube-metadata-cache/internal/db/repository"
	"github.com/songtrybe/youtube-metadata-cache/internal/events"
	"github.com/songtrybe/youtube-metadata-cache/internal/service/youtube"
)

var testNow = time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

func ytVideo(id, title string, views uint64) *ytapi.Video {
	return &ytapi.Video{
		Id: id,
		Snippet: &ytapi.VideoSnippet{
			Title:        title,
			ChannelTitle: "Channel " + id,
			PublishedAt:  "2024-01-02T03:04:05Z",
			Thumbnails: &ytapi.ThumbnailDetails{
				High: &ytapi.Thumbnail{Url: "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"},
			},
		},
		ContentDetails: &ytapi.VideoContentDetails{Duration: "PT3M33S"},
		Statistics:     &ytapi.VideoStatistics{ViewCount: views, LikeCount: views / 10},
	}
}

func cachedRecord(id string, fetchedAt time.Time) *dbmodels.CachedVideoRecord {
	statsAt := fetchedAt
	return &dbmodels.CachedVideoRecord{
		VideoID:         id,
		Title:           "Cached " + id,
		ChannelTitle:    "Channel",
		PublishedAt:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		DurationRaw:     "PT1M",
		DurationSeconds: 60,
		LastFetchedAt:   fetchedAt,
		Stats:           &dbmodels.VideoStats{ViewCount: 100, LikeCount: 10},
		StatsFetchedAt:  &statsAt,
	}
}

// fakeFetcher answers from a fixed set of videos. Ids in failed come back as
// Failed, unknown ids as Missing.
type fakeFetcher struct {
	mu     sync.Mutex
	videos map[string]*ytapi.Video
	failed map[string]bool
	err    error
	calls  [][]string
}

func newFakeFetcher(videos ...*ytapi.Video) *fakeFetcher {
	f := &fakeFetcher{videos: map[string]*ytapi.Video{}, failed: map[string]bool{}}
	for _, v := range videos {
		f.videos[v.Id] = v
	}
	return f
}

func (f *fakeFetcher) FetchMany(_ context.Context, ids []string) (*youtube.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, append([]string(nil), ids...))
	if f.err != nil {
		return nil, f.err
	}

	res := &youtube.FetchResult{Videos: map[string]*ytapi.Video{}}
	for _, id := range ids {
		switch {
		case f.failed[id]:
			res.Failed = append(res.Failed, id)
		case f.videos[id] != nil:
			res.Videos[id] = f.videos[id]
		default:
			res.Missing = append(res.Missing, id)
		}
	}
	return res, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// faultyStore wraps the memory store with injectable failures and an access count.
type faultyStore struct {
	*repository.MemoryVideoCacheRepository
	getErr    error
	putErr    error
	queryErr  error
	deleteErr error
	accesses  atomic.Int32
}

func newFaultyStore() *faultyStore {
	return &faultyStore{MemoryVideoCacheRepository: repository.NewMemoryVideoCacheRepository()}
}

func (s *faultyStore) Get(ctx context.Context, id string) (*dbmodels.CachedVideoRecord, error) {
	s.accesses.Add(1)
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.MemoryVideoCacheRepository.Get(ctx, id)
}

func (s *faultyStore) Put(ctx context.Context, rec *dbmodels.CachedVideoRecord) error {
	s.accesses.Add(1)
	if s.putErr != nil {
		return s.putErr
	}
	return s.MemoryVideoCacheRepository.Put(ctx, rec)
}

func (s *faultyStore) QueryOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*dbmodels.CachedVideoRecord, error) {
	s.accesses.Add(1)
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.MemoryVideoCacheRepository.QueryOlderThan(ctx, cutoff, limit)
}

func (s *faultyStore) Delete(ctx context.Context, id string) error {
	s.accesses.Add(1)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.MemoryVideoCacheRepository.Delete(ctx, id)
}

func (s *faultyStore) DeleteBatch(ctx context.Context, ids []string) error {
	s.accesses.Add(1)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.MemoryVideoCacheRepository.DeleteBatch(ctx, ids)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}
