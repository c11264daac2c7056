package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/tunebox/internal/model"
	"github.com/xxxsen/tunebox/internal/pkg/dbutil"
	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
)

var trackColumns = []string{"id", "name", "artists", "album", "genre", "duration_ms", "content_rating", "playable", "embedding", "ctime", "mtime"}

type TrackRepo struct {
	db  *sql.DB
	dim int
	now func() time.Time
}

// NewTrackRepo returns a pgvector backed track store. With dim > 0 the
// nearest neighbour query casts to vector(dim) so it can use the HNSW
// expression index created by EnsureVectorIndex.
func NewTrackRepo(db *sql.DB, dim int, now func() time.Time) *TrackRepo {
	if now == nil {
		now = time.Now
	}
	return &TrackRepo{db: db, dim: dim, now: now}
}

func (r *TrackRepo) EnsureVectorIndex(ctx context.Context) error {
	if r.dim <= 0 {
		return nil
	}
	query := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS idx_tracks_embedding_hnsw ON tracks USING hnsw ((embedding::vector(%d)) vector_cosine_ops) WHERE vector_dims(embedding) = %d`,
		r.dim, r.dim,
	)
	_, err := r.db.ExecContext(ctx, query)
	return err
}

func (r *TrackRepo) Upsert(ctx context.Context, track *model.StoredTrack) error {
	const query = `
		INSERT INTO tracks (id, name, artists, album, genre, duration_ms, content_rating, playable, embedding, ctime, mtime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			artists = EXCLUDED.artists,
			album = EXCLUDED.album,
			genre = COALESCE(NULLIF(EXCLUDED.genre, ''), tracks.genre),
			duration_ms = EXCLUDED.duration_ms,
			content_rating = EXCLUDED.content_rating,
			playable = EXCLUDED.playable,
			embedding = COALESCE(EXCLUDED.embedding, tracks.embedding),
			mtime = EXCLUDED.mtime
	`
	artists, err := json.Marshal(nonNilStrings(track.Artists))
	if err != nil {
		return err
	}
	var embedding interface{}
	if len(track.Embedding) > 0 {
		embedding = pgvector.NewVector(track.Embedding)
	}
	now := r.now().UnixMilli()
	_, err = r.db.ExecContext(ctx, query,
		track.ID,
		track.Name,
		string(artists),
		track.Album,
		track.Genre,
		track.DurationMs,
		track.ContentRating,
		track.Playable,
		embedding,
		now,
		now,
	)
	return err
}

func (r *TrackRepo) Get(ctx context.Context, id string) (*model.StoredTrack, error) {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildSelect("tracks", where, trackColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	return scanTrack(rows)
}

func (r *TrackRepo) ListCandidates(ctx context.Context, excludeID string, filter model.SimilarityFilter, limit int) ([]model.StoredTrack, error) {
	where := map[string]interface{}{
		"id !=":     excludeID,
		"embedding": builder.IsNotNull,
		"_orderby":  "id asc",
		"_limit":    []uint{0, uint(limit)},
	}
	if filter.Genre != "" {
		where["genre"] = filter.Genre
	}
	return r.list(ctx, where)
}

func (r *TrackRepo) ListMissingEmbedding(ctx context.Context, limit int) ([]model.StoredTrack, error) {
	where := map[string]interface{}{
		"embedding": builder.IsNull,
		"_orderby":  "mtime asc",
		"_limit":    []uint{0, uint(limit)},
	}
	return r.list(ctx, where)
}

func (r *TrackRepo) list(ctx context.Context, where map[string]interface{}) ([]model.StoredTrack, error) {
	sqlStr, args, err := builder.BuildSelect("tracks", where, trackColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tracks []model.StoredTrack
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *track)
	}
	return tracks, rows.Err()
}

func (r *TrackRepo) VectorSearchAvailable(ctx context.Context) bool {
	var ok int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM pg_extension WHERE extname = 'vector'`).Scan(&ok)
	return err == nil && ok == 1
}

// VectorSearch ranks by cosine distance through pgvector. The source track
// and rows of another dimension are excluded in SQL; ef_search is raised to
// the requested candidate count for the duration of the transaction.
func (r *TrackRepo) VectorSearch(ctx context.Context, q model.VectorQuery) ([]model.SimilarityResult, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()
	if q.NumCandidates > 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", q.NumCandidates)); err != nil {
			return nil, err
		}
	}
	column := "embedding"
	if r.dim > 0 {
		column = fmt.Sprintf("(embedding::vector(%d))", r.dim)
	}
	conds := []string{"embedding IS NOT NULL", "id <> $2", "vector_dims(embedding) = $3"}
	args := []interface{}{pgvector.NewVector(q.Vector), q.SourceID, len(q.Vector)}
	if q.Filter.Genre != "" {
		args = append(args, q.Filter.Genre)
		conds = append(conds, fmt.Sprintf("genre = $%d", len(args)))
	}
	args = append(args, q.Limit)
	query := fmt.Sprintf(
		`SELECT id, name, artists, album, genre, 1 - (%s <=> $1) AS score FROM tracks WHERE %s ORDER BY %s <=> $1 LIMIT $%d`,
		column, strings.Join(conds, " AND "), column, len(args),
	)
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := make([]model.SimilarityResult, 0, q.Limit)
	for rows.Next() {
		var item model.SimilarityResult
		var artists []byte
		if err := rows.Scan(&item.TrackID, &item.Name, &artists, &item.Album, &item.Genre, &item.SimilarityScore); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(artists, &item.Artists); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrack(row rowScanner) (*model.StoredTrack, error) {
	var track model.StoredTrack
	var artists []byte
	var embedding *pgvector.Vector
	if err := row.Scan(&track.ID, &track.Name, &artists, &track.Album, &track.Genre, &track.DurationMs,
		&track.ContentRating, &track.Playable, &embedding, &track.Ctime, &track.Mtime); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(artists, &track.Artists); err != nil {
		return nil, err
	}
	if embedding != nil {
		track.Embedding = embedding.Slice()
	}
	return &track, nil
}

func nonNilStrings(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
