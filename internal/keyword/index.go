// Package keyword provides BM25 keyword search over chunks, backed by Bleve.
package keyword

import "context"

// ChunkDoc is the indexed representation of a chunk.
type ChunkDoc struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
}

// Index defines keyword search operations over chunks.
type Index interface {
	Index(ctx context.Context, chunkID string, doc *ChunkDoc) error
	Batch(ctx context.Context, docs map[string]*ChunkDoc) error
	Search(ctx context.Context, query string, limit int) ([]*Result, error)
	Delete(ctx context.Context, chunkIDs []string) error
	Clear() error
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword search hit. ID is the chunk ID.
type Result struct {
	ID    string
	Score float64
}
