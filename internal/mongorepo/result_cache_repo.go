package mongorepo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xxxsen/tunebox/internal/model"
)

type cacheDocument struct {
	Key       string    `bson:"_id"`
	Result    string    `bson:"result"`
	ExpiresAt time.Time `bson:"expires_at"`
	Mtime     int64     `bson:"mtime"`
}

type ResultCacheRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewResultCacheRepo(db *mongo.Database, now func() time.Time) *ResultCacheRepo {
	if now == nil {
		now = time.Now
	}
	return &ResultCacheRepo{coll: db.Collection(ResultCacheCollection), now: now}
}

func (r *ResultCacheRepo) Get(ctx context.Context, key string) (*model.CacheEntry, bool, error) {
	filter := bson.M{"_id": key, "expires_at": bson.M{"$gt": r.now()}}
	var doc cacheDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &model.CacheEntry{Key: doc.Key, Result: []byte(doc.Result), ExpiresAt: doc.ExpiresAt}, true, nil
}

func (r *ResultCacheRepo) Put(ctx context.Context, key string, result []byte, ttl time.Duration) error {
	now := r.now()
	update := bson.M{"$set": bson.M{
		"result":     string(result),
		"expires_at": now.Add(ttl),
		"mtime":      now.UnixMilli(),
	}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	return err
}
