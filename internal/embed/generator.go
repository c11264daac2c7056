// Package embed turns track metadata, and optionally audio, into the
// fixed-length vectors used for similarity search.
package embed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/tunebox/internal/ai"
	"github.com/xxxsen/tunebox/internal/model"
	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
	"github.com/xxxsen/tunebox/internal/pkg/vecmath"
)

type Mode string

const (
	ModeMetadata Mode = "metadata"
	ModeHybrid   Mode = "hybrid"
)

const (
	AudioWeight    = 0.4
	MetadataWeight = 0.6
)

// Generator produces embeddings for one deployment. The mode and dimension
// are fixed at construction: vectors from the metadata path and the hybrid
// path have different lengths and must never be compared with each other.
type Generator struct {
	embedder ai.IEmbedder
	mode     Mode
	dim      int
	timeout  time.Duration
}

func NewGenerator(embedder ai.IEmbedder, mode Mode, dim int, timeout time.Duration) *Generator {
	if mode == "" {
		mode = ModeMetadata
	}
	return &Generator{embedder: embedder, mode: mode, dim: dim, timeout: timeout}
}

func (g *Generator) Mode() Mode {
	return g.mode
}

func (g *Generator) Dimension() int {
	return g.dim
}

// MetadataText is the text fed to the encoder: name, primary artist, album.
func MetadataText(t *model.StoredTrack) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{t.Name, t.PrimaryArtist(), t.Album} {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Generate returns the embedding for t. In metadata mode audio is ignored;
// in hybrid mode audio is required.
func (g *Generator) Generate(ctx context.Context, t *model.StoredTrack, audio *AudioInput) ([]float32, error) {
	if g.embedder == nil {
		return nil, ai.ErrUnavailable
	}
	if t == nil {
		return nil, appErr.ErrInvalid
	}
	if g.mode == ModeHybrid && audio == nil {
		return nil, fmt.Errorf("%w: hybrid embedding requires audio", appErr.ErrInvalid)
	}
	meta, err := g.metadataEmbedding(ctx, t)
	if err != nil {
		return nil, err
	}
	vec := meta
	if g.mode == ModeHybrid {
		features, err := ExtractAudioFeatures(audio.Samples, audio.SampleRate)
		if err != nil {
			return nil, err
		}
		vec, err = Blend(features, meta)
		if err != nil {
			return nil, err
		}
	}
	if g.dim > 0 && len(vec) != g.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", appErr.ErrDimensionMismatch, len(vec), g.dim)
	}
	return vec, nil
}

func (g *Generator) metadataEmbedding(ctx context.Context, t *model.StoredTrack) ([]float32, error) {
	text := MetadataText(t)
	if text == "" {
		return nil, fmt.Errorf("%w: track %s has no metadata", appErr.ErrInvalid, t.ID)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	raw, err := g.embedder.Embed(ctx, text, ai.TaskSimilarity)
	if err != nil {
		return nil, err
	}
	if vecmath.IsZero(raw) {
		return nil, appErr.ErrZeroVector
	}
	return vecmath.Normalize(raw), nil
}

// Blend normalizes both parts and concatenates them weighted
// AudioWeight / MetadataWeight.
func Blend(audio, meta []float32) ([]float32, error) {
	if vecmath.IsZero(audio) || vecmath.IsZero(meta) {
		return nil, appErr.ErrZeroVector
	}
	out := make([]float32, 0, len(audio)+len(meta))
	out = append(out, vecmath.Scale(vecmath.Normalize(audio), AudioWeight)...)
	out = append(out, vecmath.Scale(vecmath.Normalize(meta), MetadataWeight)...)
	return out, nil
}
