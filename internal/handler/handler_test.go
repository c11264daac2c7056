package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/tunebox/internal/embed"
	"github.com/xxxsen/tunebox/internal/model"
	"github.com/xxxsen/tunebox/internal/pkg/errcode"
	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
)

type fakeMusic struct {
	search     model.TrackSearch
	similarN   int
	similarArg model.SimilarityFilter
	country    string
	audio      *embed.AudioInput
	err        error
}

func (f *fakeMusic) Search(ctx context.Context, q model.TrackSearch) (*model.TrackList, error) {
	f.search = q
	if f.err != nil {
		return nil, f.err
	}
	return &model.TrackList{TotalCount: 1, Items: []model.TrackItem{{Data: &model.Track{ID: "t1", Name: "Song"}}}}, nil
}

func (f *fakeMusic) TopTrending(ctx context.Context, req model.TopTrending) (*model.TrendingTracksResponse, error) {
	return &model.TrendingTracksResponse{}, f.err
}

func (f *fakeMusic) DownloadLink(ctx context.Context, id string) (*model.DownloadTrackResponse, error) {
	return &model.DownloadTrackResponse{Success: true}, f.err
}

func (f *fakeMusic) Lyrics(ctx context.Context, id string) (*model.TrackLyricsResponse, error) {
	return &model.TrackLyricsResponse{}, f.err
}

func (f *fakeMusic) TrackInfo(ctx context.Context, id string) (json.RawMessage, error) {
	return json.RawMessage(`{"id":"` + id + `"}`), f.err
}

func (f *fakeMusic) Similar(ctx context.Context, id string, n int, filter model.SimilarityFilter) ([]model.SimilarityResult, error) {
	f.similarN = n
	f.similarArg = filter
	return []model.SimilarityResult{{TrackID: "t2", SimilarityScore: 0.9}}, f.err
}

func (f *fakeMusic) EmbedTrackAudio(ctx context.Context, id string, audio *embed.AudioInput) (*model.StoredTrack, error) {
	f.audio = audio
	if f.err != nil {
		return nil, f.err
	}
	return &model.StoredTrack{ID: id, Embedding: make([]float32, 8)}, nil
}

func (f *fakeMusic) PopularSongs(ctx context.Context, country string) (*model.PopularSongsResult, error) {
	f.country = country
	return &model.PopularSongsResult{}, f.err
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T, music *fakeMusic) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			RegisterRoutes(group, RouterDeps{Music: NewMusicHandler(music), DownloadWindow: time.Minute})
		}),
	)
	require.NoError(t, err)
	return engine
}

func call(t *testing.T, router http.Handler, method, path string, body interface{}) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var out envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

func requireOK(t *testing.T, out envelope) {
	t.Helper()
	require.Less(t, out.Code, errcode.ErrUnknown, out.Msg)
}

func TestMusicHandler_Search(t *testing.T) {
	music := &fakeMusic{}
	router := setupRouter(t, music)

	out := call(t, router, http.MethodPost, "/api/v1/music/search", map[string]interface{}{"query": "daft punk", "limit": 3})
	requireOK(t, out)
	require.Equal(t, model.TrackSearch{Query: "daft punk", Limit: 3}, music.search)

	var list model.TrackList
	require.NoError(t, json.Unmarshal(out.Data, &list))
	require.Len(t, list.Items, 1)
	require.Equal(t, "t1", list.Items[0].Data.ID)
}

func TestMusicHandler_SimilarParsesQuery(t *testing.T) {
	music := &fakeMusic{}
	router := setupRouter(t, music)

	out := call(t, router, http.MethodGet, "/api/v1/music/tracks/t1/similar?n=7&genre=rock", nil)
	requireOK(t, out)
	require.Equal(t, 7, music.similarN)
	require.Equal(t, "rock", music.similarArg.Genre)

	out = call(t, router, http.MethodGet, "/api/v1/music/tracks/t1/similar?n=seven", nil)
	require.Equal(t, errcode.ErrInvalid, out.Code)
}

func TestMusicHandler_TrackInfoPassesRawJSON(t *testing.T) {
	router := setupRouter(t, &fakeMusic{})
	out := call(t, router, http.MethodGet, "/api/v1/music/tracks/abc", nil)
	require.JSONEq(t, `{"id":"abc"}`, string(out.Data))
}

func TestMusicHandler_EmbedAudio(t *testing.T) {
	music := &fakeMusic{}
	router := setupRouter(t, music)
	out := call(t, router, http.MethodPost, "/api/v1/music/tracks/t1/audio", map[string]interface{}{
		"sample_rate": 8000,
		"samples":     []float32{0.1, -0.1, 0.2},
	})
	requireOK(t, out)
	require.NotNil(t, music.audio)
	require.Equal(t, 8000, music.audio.SampleRate)
	require.Len(t, music.audio.Samples, 3)
}

func TestMusicHandler_PopularCountry(t *testing.T) {
	music := &fakeMusic{}
	router := setupRouter(t, music)
	call(t, router, http.MethodGet, "/api/v1/music/popular?country=vn", nil)
	require.Equal(t, "vn", music.country)
}

func TestMusicHandler_DownloadRateLimited(t *testing.T) {
	router := setupRouter(t, &fakeMusic{})
	out := call(t, router, http.MethodGet, "/api/v1/music/download/t1", nil)
	requireOK(t, out)
	out = call(t, router, http.MethodGet, "/api/v1/music/download/t1", nil)
	require.Equal(t, errcode.ErrTooMany, out.Code)
}

func TestMusicHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{err: fmt.Errorf("%w: bad", appErr.ErrInvalid), code: errcode.ErrInvalid},
		{err: appErr.ErrNotFound, code: errcode.ErrNotFound},
		{err: fmt.Errorf("search: %w", appErr.ErrUpstreamUnavailable), code: errcode.ErrUpstreamUnavailable},
		{err: fmt.Errorf("search: %w", appErr.ErrMalformedUpstreamPayload), code: errcode.ErrUpstreamPayload},
		{err: fmt.Errorf("get: %w", appErr.ErrStorageUnavailable), code: errcode.ErrStorageUnavailable},
		{err: appErr.ErrDimensionMismatch, code: errcode.ErrEmbeddingUnavailable},
		{err: fmt.Errorf("boom"), code: errcode.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			router := setupRouter(t, &fakeMusic{err: tt.err})
			out := call(t, router, http.MethodGet, "/api/v1/music/lyrics/t1", nil)
			require.Equal(t, tt.code, out.Code)
		})
	}
}

func TestHealth(t *testing.T) {
	router := setupRouter(t, &fakeMusic{})
	out := call(t, router, http.MethodGet, "/api/v1/health", nil)
	requireOK(t, out)
	require.JSONEq(t, `{"status":"ok"}`, string(out.Data))
}
