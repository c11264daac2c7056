package mongorepo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xxxsen/tunebox/internal/model"
)

type embeddingCacheDocument struct {
	ModelName   string    `bson:"model_name"`
	TaskType    string    `bson:"task_type"`
	ContentHash string    `bson:"content_hash"`
	Embedding   []float32 `bson:"embedding"`
	Ctime       int64     `bson:"ctime"`
}

type EmbeddingCacheRepo struct {
	coll *mongo.Collection
}

func NewEmbeddingCacheRepo(db *mongo.Database) *EmbeddingCacheRepo {
	return &EmbeddingCacheRepo{coll: db.Collection(EmbeddingCacheCollection)}
}

func embeddingCacheID(modelName, taskType, contentHash string) string {
	return modelName + "|" + taskType + "|" + contentHash
}

func (r *EmbeddingCacheRepo) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	var doc embeddingCacheDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": embeddingCacheID(modelName, taskType, contentHash)}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, false, nil
		}
		return nil, false, err
	}
	return doc.Embedding, true, nil
}

func (r *EmbeddingCacheRepo) Save(ctx context.Context, item *model.EmbeddingCache) error {
	update := bson.M{"$set": embeddingCacheDocument{
		ModelName:   item.ModelName,
		TaskType:    item.TaskType,
		ContentHash: item.ContentHash,
		Embedding:   item.Embedding,
		Ctime:       item.Ctime,
	}}
	id := embeddingCacheID(item.ModelName, item.TaskType, item.ContentHash)
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(true))
	return err
}

func (r *EmbeddingCacheRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"ctime": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
