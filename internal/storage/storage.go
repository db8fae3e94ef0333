// Package storage defines the persistence interface for documents, chunks,
// and the conversation log.
package storage

import (
	"context"

	"github.com/seradocs/sera/internal/models"
)

// Storage defines document, chunk, and message persistence operations.
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// Chunk operations
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	GetChunks(ctx context.Context, ids []string) ([]*models.Chunk, error)
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.Chunk, error)
	ListChunks(ctx context.Context) ([]*models.Chunk, error)
	BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error

	// Conversation log
	AppendMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, limit int) ([]*models.Message, error)
	ClearMessages(ctx context.Context) error

	// Embedding model pinning
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	// ClearAll removes all documents, chunks, and messages.
	ClearAll(ctx context.Context) error

	Close() error
}

// Meta keys pinned in the store.
const (
	MetaEmbeddingModel      = "embedding_model"
	MetaEmbeddingDimensions = "embedding_dimensions"
)
