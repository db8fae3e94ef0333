// Package models defines core data structures for documents, chunks, queries, and messages.
package models

import "time"

// Document represents one uploaded file with its extracted text.
type Document struct {
	ID        string    `json:"id" db:"id"`
	Filename  string    `json:"filename" db:"filename"`
	Text      string    `json:"-" db:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Chunk is a contiguous substring of a document's text, the unit of retrieval.
// Offsets are rune offsets into the document text.
type Chunk struct {
	ID          string        `json:"id" db:"id"`
	DocumentID  string        `json:"document_id" db:"document_id"`
	ChunkIndex  int           `json:"chunk_index" db:"chunk_index"`
	Text        string        `json:"text" db:"text"`
	StartOffset int           `json:"start_offset" db:"start_offset"`
	EndOffset   int           `json:"end_offset" db:"end_offset"`
	Metadata    ChunkMetadata `json:"metadata" db:"metadata"`
	Embedding   []float32     `json:"-" db:"-"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

// ChunkMetadata is the provenance record attached to every chunk. Known
// fields are fixed; Extra carries arbitrary source-format metadata.
type ChunkMetadata struct {
	Filename    string            `json:"filename"`
	FileType    string            `json:"file_type"`
	ChunkIndex  int               `json:"chunk_index"`
	StartOffset int               `json:"start_offset"`
	EndOffset   int               `json:"end_offset"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in the conversation log. Append-only; cleared by
// explicit user action.
type Message struct {
	ID        int64             `json:"id" db:"id"`
	Role      string            `json:"role" db:"role"`
	Content   string            `json:"content" db:"content"`
	Sources   []RetrievalResult `json:"sources,omitempty" db:"-"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

// Stats is a read-only snapshot of the store contents and the embedding
// model it is pinned to.
type Stats struct {
	TotalChunks    int64  `json:"total_chunks"`
	TotalDocuments int64  `json:"total_documents"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	Dimensions     int    `json:"dimensions,omitempty"`
}
