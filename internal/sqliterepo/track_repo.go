package sqliterepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/tunebox/internal/model"
	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
)

var trackColumns = []string{"id", "name", "artists", "album", "genre", "duration_ms", "content_rating", "playable", "embedding", "ctime", "mtime"}

// TrackRepo keeps embeddings as JSON arrays. SQLite has no vector index, so
// similarity queries always go through the brute force path.
type TrackRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewTrackRepo(db *sql.DB, now func() time.Time) *TrackRepo {
	if now == nil {
		now = time.Now
	}
	return &TrackRepo{db: db, now: now}
}

func (r *TrackRepo) Upsert(ctx context.Context, track *model.StoredTrack) error {
	const query = `
		INSERT INTO tracks (id, name, artists, album, genre, duration_ms, content_rating, playable, embedding, ctime, mtime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			artists = excluded.artists,
			album = excluded.album,
			genre = COALESCE(NULLIF(excluded.genre, ''), tracks.genre),
			duration_ms = excluded.duration_ms,
			content_rating = excluded.content_rating,
			playable = excluded.playable,
			embedding = COALESCE(excluded.embedding, tracks.embedding),
			mtime = excluded.mtime
	`
	artists := track.Artists
	if artists == nil {
		artists = []string{}
	}
	rawArtists, err := json.Marshal(artists)
	if err != nil {
		return err
	}
	var embedding interface{}
	if len(track.Embedding) > 0 {
		raw, err := json.Marshal(track.Embedding)
		if err != nil {
			return err
		}
		embedding = string(raw)
	}
	now := r.now().UnixMilli()
	_, err = r.db.ExecContext(ctx, query,
		track.ID,
		track.Name,
		string(rawArtists),
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
	tracks, err := r.list(ctx, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &tracks[0], nil
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

func (r *TrackRepo) VectorSearchAvailable(ctx context.Context) bool {
	return false
}

func (r *TrackRepo) VectorSearch(ctx context.Context, q model.VectorQuery) ([]model.SimilarityResult, error) {
	return nil, appErr.ErrPrimarySearchUnavailable
}

func (r *TrackRepo) list(ctx context.Context, where map[string]interface{}) ([]model.StoredTrack, error) {
	sqlStr, args, err := builder.BuildSelect("tracks", where, trackColumns)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tracks []model.StoredTrack
	for rows.Next() {
		var track model.StoredTrack
		var artists string
		var embedding sql.NullString
		if err := rows.Scan(&track.ID, &track.Name, &artists, &track.Album, &track.Genre, &track.DurationMs,
			&track.ContentRating, &track.Playable, &embedding, &track.Ctime, &track.Mtime); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(artists), &track.Artists); err != nil {
			return nil, err
		}
		if embedding.Valid && embedding.String != "" {
			if err := json.Unmarshal([]byte(embedding.String), &track.Embedding); err != nil {
				return nil, err
			}
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}
