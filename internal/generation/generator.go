// Package generation produces grounded answers from retrieved chunks via a
// hosted chat completion API.
package generation

import (
	"context"

	"github.com/seradocs/sera/internal/models"
)

// Generator produces an answer to a query grounded in the given sources.
type Generator interface {
	Generate(ctx context.Context, query string, sources []models.RetrievalResult) (string, error)
	ModelName() string
	Close() error
}
