package store

import (
	"context"

	"github.com/xxxsen/tunebox/internal/config"
	"github.com/xxxsen/tunebox/internal/mongorepo"
)

func init() {
	Register("mongo", newMongoBackend)
}

func newMongoBackend(ctx context.Context, cfg config.StoreConfig, opts Options) (*Backend, error) {
	client, err := mongorepo.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		return nil, err
	}
	database := client.Database(cfg.Mongo.Database)
	return &Backend{
		Name:           "mongo",
		Cache:          mongorepo.NewResultCacheRepo(database, opts.Now),
		Tracks:         mongorepo.NewTrackRepo(database, cfg.Mongo.VectorIndex, opts.Now),
		EmbeddingCache: mongorepo.NewEmbeddingCacheRepo(database),
		closer:         client.Disconnect,
	}, nil
}
