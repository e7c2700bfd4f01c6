package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/songtrybe/youtube-metadata-cache/internal/db"
	"github.com/songtrybe/youtube-metadata-cache/internal/db/models"
)

// MemoryVideoCacheRepository keeps records in process memory. It follows the
// same Put semantics as the PostgreSQL store and backs tests and local runs.
type MemoryVideoCacheRepository struct {
	mu      sync.RWMutex
	records map[string]models.CachedVideoRecord
}

// NewMemoryVideoCacheRepository creates an empty in-memory store.
func NewMemoryVideoCacheRepository() *MemoryVideoCacheRepository {
	return &MemoryVideoCacheRepository{records: make(map[string]models.CachedVideoRecord)}
}

func (r *MemoryVideoCacheRepository) Get(_ context.Context, videoID string) (*models.CachedVideoRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[videoID]
	if !ok {
		return nil, fmt.Errorf("get cached video: %w", db.ErrNotFound)
	}
	return cloneRecord(rec), nil
}

func (r *MemoryVideoCacheRepository) Put(_ context.Context, rec *models.CachedVideoRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := *cloneRecord(*rec)
	if prev, ok := r.records[rec.VideoID]; ok {
		if prev.LastFetchedAt.After(next.LastFetchedAt) {
			next.LastFetchedAt = prev.LastFetchedAt
		}
		if !next.HasStats() {
			next.Stats, next.StatsFetchedAt = prev.Stats, prev.StatsFetchedAt
		}
	}
	if !next.HasStats() {
		next.Stats, next.StatsFetchedAt = nil, nil
	}

	r.records[rec.VideoID] = next
	return nil
}

func (r *MemoryVideoCacheRepository) QueryOlderThan(_ context.Context, cutoff time.Time, limit int) ([]*models.CachedVideoRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.CachedVideoRecord
	for _, rec := range r.records {
		if rec.LastFetchedAt.Before(cutoff) {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastFetchedAt.Before(out[j].LastFetchedAt)
	})

	return truncate(out, limit), nil
}

func (r *MemoryVideoCacheRepository) Delete(_ context.Context, videoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, videoID)
	return nil
}

func (r *MemoryVideoCacheRepository) DeleteBatch(_ context.Context, videoIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range videoIDs {
		delete(r.records, id)
	}
	return nil
}

func (r *MemoryVideoCacheRepository) ListRecent(_ context.Context, limit int) ([]*models.CachedVideoRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.CachedVideoRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastFetchedAt.After(out[j].LastFetchedAt)
	})

	return truncate(out, limit), nil
}

func (r *MemoryVideoCacheRepository) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored records.
func (r *MemoryVideoCacheRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func cloneRecord(rec models.CachedVideoRecord) *models.CachedVideoRecord {
	if rec.Stats != nil {
		stats := *rec.Stats
		rec.Stats = &stats
	}
	if rec.StatsFetchedAt != nil {
		at := *rec.StatsFetchedAt
		rec.StatsFetchedAt = &at
	}
	return &rec
}

func truncate(recs []*models.CachedVideoRecord, limit int) []*models.CachedVideoRecord {
	if limit <= 0 {
		return nil
	}
	if len(recs) > limit {
		return recs[:limit]
	}
	return recs
}
