// Package embedding provides text embedding via a hosted API, with caching.
package embedding

import (
	"context"
	"fmt"

	"github.com/seradocs/sera/internal/config"
	"github.com/seradocs/sera/internal/models"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// ModelName identifies the embedding model. The store pins this identity:
	// query-time embeddings must come from the same model as ingestion-time ones.
	ModelName() string
	Close() error
}

// NewEmbedder builds the configured embedding provider. The hosted provider
// is wrapped in an LRU cache when cache_size > 0.
func NewEmbedder(cfg *config.EmbeddingConfig, apiKey string) (Embedder, error) {
	switch cfg.Provider {
	case "mock":
		return NewMockEmbedder(cfg.Dimensions), nil
	case "openai", "":
		e, err := NewOpenAIEmbedder(cfg, apiKey)
		if err != nil {
			return nil, err
		}
		if cfg.CacheSize > 0 {
			return NewCachedEmbedder(e, cfg.CacheSize), nil
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", models.ErrConfiguration, cfg.Provider)
	}
}
