package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	openAIErrorBodyLimit = 4 << 10
)

type openAIConfig struct {
	APIKey     string `json:"api_key"`
	BaseURL    string `json:"base_url"`
	Dimensions int    `json:"dimensions"`
	// seconds, 0 leaves the request bound only by ctx
	Timeout int `json:"timeout"`
}

type openAIEmbedRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type openAIEmbedding struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type openAIEmbedResponse struct {
	Data []openAIEmbedding `json:"data"`
}

// openAIEmbedProvider speaks the /embeddings endpoint shared by OpenAI and
// compatible servers.
type openAIEmbedProvider struct {
	apiKey     string
	endpoint   string
	dimensions int
	client     *http.Client
}

func (p *openAIEmbedProvider) Name() string {
	return "openai"
}

func (p *openAIEmbedProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	body, err := json.Marshal(openAIEmbedRequest{Model: model, Input: text, Dimensions: p.dimensions})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, openAIErrorBodyLimit))
		return nil, fmt.Errorf("%w: openai status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	for _, item := range out.Data {
		if item.Index == 0 && len(item.Embedding) > 0 {
			return item.Embedding, nil
		}
	}
	return nil, fmt.Errorf("%w: openai response has no embeddings", ErrUnavailable)
}

func createOpenAIEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Dimensions < 0 || cfg.Timeout < 0 {
		return nil, fmt.Errorf("openai dimensions and timeout must not be negative")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIEmbedProvider{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		endpoint:   baseURL + "/embeddings",
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}, nil
}

func init() {
	RegisterEmbed("openai", createOpenAIEmbedFactory)
}
