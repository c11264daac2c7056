package ai

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

const defaultLocalDimension = 384

type localConfig struct {
	Dimension int `json:"dimension"`
}

// localEmbedProvider is a feature-hashing text encoder: word tokens and
// character trigrams are hashed into a fixed number of signed buckets. It
// needs no network access and is a pure function of its input.
type localEmbedProvider struct {
	dim int
}

func NewLocalEmbedProvider(dim int) IEmbedProvider {
	if dim <= 0 {
		dim = defaultLocalDimension
	}
	return &localEmbedProvider{dim: dim}
}

func (p *localEmbedProvider) Name() string {
	return "local"
}

func (p *localEmbedProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, p.dim)
	tokens := tokenize(text)
	for _, tok := range tokens {
		p.add(vec, "w:"+tok, 1.0)
		runes := []rune(" " + tok + " ")
		for i := 0; i+3 <= len(runes); i++ {
			p.add(vec, "c:"+string(runes[i:i+3]), 0.5)
		}
	}
	return vec, nil
}

func (p *localEmbedProvider) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(p.dim))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func createLocalEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &localConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return NewLocalEmbedProvider(cfg.Dimension), nil
}

func init() {
	RegisterEmbed("local", createLocalEmbedFactory)
}
