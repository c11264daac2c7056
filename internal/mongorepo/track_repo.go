package mongorepo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xxxsen/tunebox/internal/model"
	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
)

type trackDocument struct {
	ID            string    `bson:"_id"`
	Name          string    `bson:"name"`
	Artists       []string  `bson:"artists"`
	Album         string    `bson:"album"`
	Genre         string    `bson:"genre"`
	DurationMs    int64     `bson:"duration_ms"`
	ContentRating string    `bson:"content_rating"`
	Playable      bool      `bson:"playable"`
	Embedding     []float32 `bson:"embedding,omitempty"`
	Ctime         int64     `bson:"ctime"`
	Mtime         int64     `bson:"mtime"`
}

func (d *trackDocument) toModel() model.StoredTrack {
	return model.StoredTrack{
		ID:            d.ID,
		Name:          d.Name,
		Artists:       d.Artists,
		Album:         d.Album,
		Genre:         d.Genre,
		DurationMs:    d.DurationMs,
		ContentRating: d.ContentRating,
		Playable:      d.Playable,
		Embedding:     d.Embedding,
		Ctime:         d.Ctime,
		Mtime:         d.Mtime,
	}
}

type similarDocument struct {
	ID      string   `bson:"_id"`
	Name    string   `bson:"name"`
	Artists []string `bson:"artists"`
	Album   string   `bson:"album"`
	Genre   string   `bson:"genre"`
	Score   float64  `bson:"score"`
}

// TrackRepo stores tracks in a collection indexed by an Atlas vector search
// index on the embedding field.
type TrackRepo struct {
	coll      *mongo.Collection
	indexName string
	now       func() time.Time
}

func NewTrackRepo(db *mongo.Database, indexName string, now func() time.Time) *TrackRepo {
	if now == nil {
		now = time.Now
	}
	return &TrackRepo{coll: db.Collection(TracksCollection), indexName: indexName, now: now}
}

func (r *TrackRepo) Upsert(ctx context.Context, track *model.StoredTrack) error {
	now := r.now().UnixMilli()
	artists := track.Artists
	if artists == nil {
		artists = []string{}
	}
	set := bson.M{
		"name":           track.Name,
		"artists":        artists,
		"album":          track.Album,
		"duration_ms":    track.DurationMs,
		"content_rating": track.ContentRating,
		"playable":       track.Playable,
		"mtime":          now,
	}
	if track.Genre != "" {
		set["genre"] = track.Genre
	}
	if len(track.Embedding) > 0 {
		set["embedding"] = track.Embedding
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"ctime": now},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": track.ID}, update, options.Update().SetUpsert(true))
	return err
}

func (r *TrackRepo) Get(ctx context.Context, id string) (*model.StoredTrack, error) {
	var doc trackDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	track := doc.toModel()
	return &track, nil
}

func (r *TrackRepo) ListCandidates(ctx context.Context, excludeID string, filter model.SimilarityFilter, limit int) ([]model.StoredTrack, error) {
	query := bson.M{
		"_id":       bson.M{"$ne": excludeID},
		"embedding": bson.M{"$exists": true, "$ne": bson.A{}},
	}
	if filter.Genre != "" {
		query["genre"] = filter.Genre
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(limit))
	return r.find(ctx, query, opts)
}

func (r *TrackRepo) ListMissingEmbedding(ctx context.Context, limit int) ([]model.StoredTrack, error) {
	query := bson.M{"embedding": bson.M{"$exists": false}}
	opts := options.Find().SetSort(bson.D{{Key: "mtime", Value: 1}}).SetLimit(int64(limit))
	return r.find(ctx, query, opts)
}

func (r *TrackRepo) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]model.StoredTrack, error) {
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var tracks []model.StoredTrack
	for cursor.Next(ctx) {
		var doc trackDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		tracks = append(tracks, doc.toModel())
	}
	return tracks, cursor.Err()
}

// VectorSearchAvailable reports whether the configured search index exists.
// Deployments without Atlas search reject the listing and report false.
func (r *TrackRepo) VectorSearchAvailable(ctx context.Context) bool {
	if r.indexName == "" {
		return false
	}
	cursor, err := r.coll.SearchIndexes().List(ctx, options.SearchIndexes().SetName(r.indexName))
	if err != nil {
		return false
	}
	defer cursor.Close(ctx)
	return cursor.Next(ctx)
}

// VectorSearch asks the index for one extra neighbour so that dropping the
// source track still leaves Limit results. Atlas reports cosine similarity
// as (1+cos)/2, which is mapped back to cos.
func (r *TrackRepo) VectorSearch(ctx context.Context, q model.VectorQuery) ([]model.SimilarityResult, error) {
	post := bson.M{"_id": bson.M{"$ne": q.SourceID}}
	if q.Filter.Genre != "" {
		post["genre"] = q.Filter.Genre
	}
	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.M{
			"index":         r.indexName,
			"path":          "embedding",
			"queryVector":   q.Vector,
			"numCandidates": q.NumCandidates,
			"limit":         q.Limit + 1,
		}}},
		{{Key: "$match", Value: post}},
		{{Key: "$limit", Value: q.Limit}},
		{{Key: "$project", Value: bson.M{
			"name":    1,
			"artists": 1,
			"album":   1,
			"genre":   1,
			"score":   bson.M{"$meta": "vectorSearchScore"},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	results := make([]model.SimilarityResult, 0, q.Limit)
	for cursor.Next(ctx) {
		var doc similarDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		results = append(results, model.SimilarityResult{
			TrackID:         doc.ID,
			Name:            doc.Name,
			Artists:         doc.Artists,
			Album:           doc.Album,
			Genre:           doc.Genre,
			SimilarityScore: 2*doc.Score - 1,
		})
	}
	return results, cursor.Err()
}
