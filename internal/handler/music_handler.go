package handler

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/tunebox/internal/embed"
	"github.com/xxxsen/tunebox/internal/model"
	"github.com/xxxsen/tunebox/internal/pkg/errcode"
	"github.com/xxxsen/tunebox/internal/pkg/response"
)

// MusicAPI is the set of music operations exposed over HTTP.
type MusicAPI interface {
	Search(ctx context.Context, q model.TrackSearch) (*model.TrackList, error)
	TopTrending(ctx context.Context, req model.TopTrending) (*model.TrendingTracksResponse, error)
	DownloadLink(ctx context.Context, id string) (*model.DownloadTrackResponse, error)
	Lyrics(ctx context.Context, id string) (*model.TrackLyricsResponse, error)
	TrackInfo(ctx context.Context, id string) (json.RawMessage, error)
	Similar(ctx context.Context, id string, n int, filter model.SimilarityFilter) ([]model.SimilarityResult, error)
	EmbedTrackAudio(ctx context.Context, id string, audio *embed.AudioInput) (*model.StoredTrack, error)
	PopularSongs(ctx context.Context, country string) (*model.PopularSongsResult, error)
}

type MusicHandler struct {
	music MusicAPI
}

func NewMusicHandler(music MusicAPI) *MusicHandler {
	return &MusicHandler{music: music}
}

func (h *MusicHandler) Search(c *gin.Context) {
	var req model.TrackSearch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	res, err := h.music.Search(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *MusicHandler) TopTrending(c *gin.Context) {
	var req model.TopTrending
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	res, err := h.music.TopTrending(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *MusicHandler) Download(c *gin.Context) {
	res, err := h.music.DownloadLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *MusicHandler) Lyrics(c *gin.Context) {
	res, err := h.music.Lyrics(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *MusicHandler) TrackInfo(c *gin.Context) {
	res, err := h.music.TrackInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *MusicHandler) Similar(c *gin.Context) {
	n := 0
	if raw := c.Query("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, errcode.ErrInvalid, "invalid n")
			return
		}
		n = parsed
	}
	res, err := h.music.Similar(c.Request.Context(), c.Param("id"), n, model.SimilarityFilter{Genre: c.Query("genre")})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

type embedAudioRequest struct {
	SampleRate int       `json:"sample_rate"`
	Samples    []float32 `json:"samples"`
}

func (h *MusicHandler) EmbedAudio(c *gin.Context) {
	var req embedAudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	track, err := h.music.EmbedTrackAudio(c.Request.Context(), c.Param("id"), &embed.AudioInput{
		Samples:    req.Samples,
		SampleRate: req.SampleRate,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": track.ID, "dimension": len(track.Embedding)})
}

func (h *MusicHandler) Popular(c *gin.Context) {
	res, err := h.music.PopularSongs(c.Request.Context(), c.Query("country"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}
