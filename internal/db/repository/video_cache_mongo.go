package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/songtrybe/youtube-metadata-cache/internal/db"
	"github.com/songtrybe/youtube-metadata-cache/internal/db/models"
)

type mongoVideoCacheRepository struct {
	coll *mongo.Collection
}

// NewMongoClient connects to MongoDB and verifies the connection.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client, nil
}

// NewMongoVideoCacheRepository creates a MongoDB-backed VideoCacheRepository
// and ensures the lastFetchedAt index used by the sweeps exists.
func NewMongoVideoCacheRepository(ctx context.Context, client *mongo.Client, database, collection string) (VideoCacheRepository, error) {
	coll := client.Database(database).Collection(collection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "lastFetchedAt", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("create lastFetchedAt index: %w", err)
	}

	return &mongoVideoCacheRepository{coll: coll}, nil
}

func (r *mongoVideoCacheRepository) Get(ctx context.Context, videoID string) (*models.CachedVideoRecord, error) {
	var rec models.CachedVideoRecord
	err := r.coll.FindOne(ctx, bson.M{"_id": videoID}).Decode(&rec)
	if err != nil {
		return nil, wrapMongoError(err, "get cached video")
	}
	normalizeStats(&rec)
	return &rec, nil
}

func (r *mongoVideoCacheRepository) Put(ctx context.Context, rec *models.CachedVideoRecord) error {
	set := bson.M{
		"title":           rec.Title,
		"channelTitle":    rec.ChannelTitle,
		"publishedAt":     rec.PublishedAt,
		"durationIso":     rec.DurationRaw,
		"durationSeconds": rec.DurationSeconds,
		"thumbnails":      rec.Thumbnails,
	}
	if rec.HasStats() {
		set["stats"] = rec.Stats
		set["statsFetchedAt"] = *rec.StatsFetchedAt
	}

	update := bson.M{
		"$set": set,
		"$max": bson.M{"lastFetchedAt": rec.LastFetchedAt},
	}

	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": rec.VideoID}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return wrapMongoError(err, "put cached video")
	}
	return nil
}

func (r *mongoVideoCacheRepository) QueryOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*models.CachedVideoRecord, error) {
	// SetLimit(0) means no limit in MongoDB
	if limit <= 0 {
		return nil, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "lastFetchedAt", Value: 1}}).
		SetLimit(int64(limit))

	return r.find(ctx, bson.M{"lastFetchedAt": bson.M{"$lt": cutoff}}, opts, "query cached videos older than")
}

func (r *mongoVideoCacheRepository) Delete(ctx context.Context, videoID string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": videoID}); err != nil {
		return wrapMongoError(err, "delete cached video")
	}
	return nil
}

// DeleteBatch issues one DeleteMany. MongoDB applies it per document, so a
// failure part way can leave some of the batch deleted.
func (r *mongoVideoCacheRepository) DeleteBatch(ctx context.Context, videoIDs []string) error {
	if len(videoIDs) == 0 {
		return nil
	}
	if _, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": videoIDs}}); err != nil {
		return wrapMongoError(err, "delete cached video batch")
	}
	return nil
}

func (r *mongoVideoCacheRepository) ListRecent(ctx context.Context, limit int) ([]*models.CachedVideoRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "lastFetchedAt", Value: -1}}).
		SetLimit(int64(limit))

	return r.find(ctx, bson.M{}, opts, "list recent cached videos")
}

func (r *mongoVideoCacheRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func (r *mongoVideoCacheRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder, op string) ([]*models.CachedVideoRecord, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapMongoError(err, op)
	}
	defer cursor.Close(ctx)

	var recs []*models.CachedVideoRecord
	for cursor.Next(ctx) {
		rec := &models.CachedVideoRecord{}
		if err := cursor.Decode(rec); err != nil {
			return nil, fmt.Errorf("decode cached video: %w", err)
		}
		normalizeStats(rec)
		recs = append(recs, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate cached videos: %w", err)
	}

	return recs, nil
}

// normalizeStats drops a half-written stats snapshot.
func normalizeStats(rec *models.CachedVideoRecord) {
	if !rec.HasStats() {
		rec.Stats, rec.StatsFetchedAt = nil, nil
	}
}

func wrapMongoError(err error, operation string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", operation, db.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
