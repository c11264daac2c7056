// Package upstream talks to the RapidAPI music provider and its separate
// download host.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xxxsen/tunebox/internal/config"
	"github.com/xxxsen/tunebox/internal/metrics"
	"github.com/xxxsen/tunebox/internal/model"
	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
)

const (
	searchTopResults = "5"
	spotifyTrackURL  = "https://open.spotify.com/track/"
	maxBodySize      = 8 << 20
)

type Client struct {
	apiKey       string
	host         string
	baseURL      string
	downloadHost string
	downloadURL  string
	httpClient   *http.Client
	limiter      *rate.Limiter
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func NewClient(cfg config.RapidAPIConfig, opts ...Option) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
		if burst <= 0 {
			burst = 1
		}
	}
	downloadHost := cfg.DownloadHost
	if downloadHost == "" {
		downloadHost = cfg.Host
	}
	c := &Client{
		apiKey:       cfg.APIKey,
		host:         cfg.Host,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		downloadHost: downloadHost,
		downloadURL:  cfg.DownloadURL,
		httpClient:   &http.Client{Timeout: timeout},
		limiter:      rate.NewLimiter(limit, burst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Tracks []model.TrackItem `json:"tracks"`
}

func (c *Client) Search(ctx context.Context, q model.TrackSearch) (*model.TrackList, error) {
	params := url.Values{}
	params.Set("type", "tracks")
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("numberOfTopResults", searchTopResults)
	params.Set("q", q.Query)
	var resp searchResponse
	if err := c.get(ctx, "search", c.host, c.baseURL+"/search/", params, &resp); err != nil {
		return nil, err
	}
	items := resp.Tracks
	if items == nil {
		items = []model.TrackItem{}
	}
	return &model.TrackList{
		TotalCount: len(items),
		Items:      items,
		PagingInfo: &model.PagingInfo{NextOffset: q.Offset + len(items), Limit: q.Limit},
	}, nil
}

// Trending fetches the chart. The provider answers with a bare array.
func (c *Client) Trending(ctx context.Context, country model.Country, period model.Period, date string) (*model.TrendingTracksResponse, error) {
	params := url.Values{}
	params.Set("country", string(country))
	params.Set("period", string(period))
	if date != "" {
		params.Set("date", date)
	}
	var tracks []model.TrendingTrack
	if err := c.get(ctx, "trending", c.host, c.baseURL+"/top_200_tracks", params, &tracks); err != nil {
		return nil, err
	}
	if tracks == nil {
		tracks = []model.TrendingTrack{}
	}
	return &model.TrendingTracksResponse{Tracks: tracks}, nil
}

func (c *Client) Lyrics(ctx context.Context, id string) (*model.TrackLyricsResponse, error) {
	params := url.Values{}
	params.Set("id", id)
	raw, err := c.do(ctx, "lyrics", c.host, c.baseURL+"/track_lyrics/", params)
	if err != nil {
		return nil, err
	}
	// error bodies such as {"message": ...} arrive with status 200
	if !hasObjectField(raw, "lyrics") {
		return nil, malformed("lyrics", "missing lyrics object")
	}
	var resp model.TrackLyricsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, malformed("lyrics", err.Error())
	}
	return &resp, nil
}

// TrackInfo returns the provider payload untouched; it only has to be a
// JSON object.
func (c *Client) TrackInfo(ctx context.Context, id string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("ids", id)
	var obj map[string]json.RawMessage
	raw, err := c.do(ctx, "track_info", c.host, c.baseURL+"/tracks/", params)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, malformed("track_info", "not a json object")
	}
	return json.RawMessage(raw), nil
}

func (c *Client) DownloadLink(ctx context.Context, id string) (*model.DownloadTrackResponse, error) {
	if c.downloadURL == "" {
		return nil, fmt.Errorf("download url not configured: %w", appErr.ErrUpstreamUnavailable)
	}
	params := url.Values{}
	params.Set("songId", spotifyTrackURL+id)
	var resp model.DownloadTrackResponse
	if err := c.get(ctx, "download", c.downloadHost, c.downloadURL, params, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data.DownloadLink == "" {
		return nil, malformed("download", "no download link")
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, op, host, endpoint string, params url.Values, out interface{}) error {
	raw, err := c.do(ctx, op, host, endpoint, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return malformed(op, err.Error())
	}
	return nil
}

func malformed(op, reason string) error {
	metrics.UpstreamRequestsTotal.WithLabelValues(op, "malformed").Inc()
	return fmt.Errorf("decode %s response: %w: %s", op, appErr.ErrMalformedUpstreamPayload, reason)
}

// hasObjectField reports whether raw is a JSON object whose field holds an
// object.
func hasObjectField(raw []byte, field string) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	value := bytes.TrimSpace(obj[field])
	return len(value) > 0 && value[0] == '{'
}

func (c *Client) do(ctx context.Context, op, host, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limit wait: %w: %w", op, appErr.ErrUpstreamUnavailable, err)
	}
	target := endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", host)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(op, "error").Inc()
		logutil.GetLogger(ctx).Error("upstream request failed", zap.String("op", op), zap.Error(err))
		return nil, fmt.Errorf("%s request: %w: %w", op, appErr.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w: %w", op, appErr.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logutil.GetLogger(ctx).Error("upstream returned error status",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 256)),
		)
		return nil, fmt.Errorf("%s status %d: %w", op, resp.StatusCode, appErr.ErrUpstreamUnavailable)
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
