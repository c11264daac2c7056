package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type EmbeddingBackfiller interface {
	BackfillEmbeddings(ctx context.Context, batch int) (int, error)
}

// EmbeddingBackfillJob gives stored tracks that were saved without an
// embedding another chance, one batch per run.
type EmbeddingBackfillJob struct {
	svc       EmbeddingBackfiller
	batchSize int
}

func NewEmbeddingBackfillJob(svc EmbeddingBackfiller, batchSize int) *EmbeddingBackfillJob {
	return &EmbeddingBackfillJob{svc: svc, batchSize: batchSize}
}

func (j *EmbeddingBackfillJob) Name() string {
	return "embedding_backfill"
}

func (j *EmbeddingBackfillJob) Run(ctx context.Context) error {
	if j.svc == nil {
		return nil
	}
	batch := j.batchSize
	if batch <= 0 {
		batch = 50
	}
	updated, err := j.svc.BackfillEmbeddings(ctx, batch)
	if err != nil {
		return err
	}
	if updated > 0 {
		logutil.GetLogger(ctx).Info("track embeddings backfilled", zap.Int("count", updated))
	}
	return nil
}
