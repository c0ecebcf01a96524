package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"pdf-chat/internal/models"
)

// Provider turns a text into a vector. It may fail per call.
type Provider interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Service applies the zero-vector fallback policy on top of a Provider: a
// failed or malformed embedding is replaced by a zero vector of the configured
// dimension, so callers always get exactly one vector of that length per text.
type Service struct {
	provider  Provider
	dimension int
	timeout   time.Duration
}

func NewService(provider Provider, dimension int, timeout time.Duration) *Service {
	if dimension <= 0 {
		dimension = models.DefaultEmbeddingDimension
	}
	return &Service{provider: provider, dimension: dimension, timeout: timeout}
}

func (s *Service) Dimension() int {
	return s.dimension
}

// Embed returns the embedding of text, or a zero vector if the provider fails.
func (s *Service) Embed(ctx context.Context, text string) []float32 {
	vec, err := s.embed(ctx, text)
	if err != nil {
		log.Warn().Err(err).Str("text", preview(text)).Msg("Error generating embedding, using zero vector")
		return models.ZeroVector(s.dimension)
	}
	return vec
}

// EmbedBatch embeds every text independently; one failure does not affect the others.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vectors = append(vectors, s.Embed(ctx, text))
	}
	return vectors
}

func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("%w: no provider configured", models.ErrEmbeddingFailure)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	vec, err := s.provider.EmbedQuery(ctx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingFailure, models.ErrBackendTimeout)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingFailure, err)
	}
	if len(vec) != s.dimension {
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d", models.ErrEmbeddingFailure, s.dimension, len(vec))
	}
	return vec, nil
}

// preview shortens text for logs without splitting a character.
func preview(text string) string {
	const max = 50
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
