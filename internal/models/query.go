package models

import (
	"fmt"
	"strings"
	"time"
)

// Retrieval modes for QueryRequest.Mode.
const (
	ModeSemantic = "semantic"
	ModeKeyword  = "keyword"
	ModeHybrid   = "hybrid"
)

// QueryRequest is a question against the ingested documents.
type QueryRequest struct {
	Query         string `json:"query"`
	TopK          int    `json:"top_k,omitempty"`
	UseGeneration *bool  `json:"use_generation,omitempty"`
	// Mode selects retrieval: semantic (default), keyword, or hybrid.
	Mode string `json:"mode,omitempty"`
}

// Generation returns whether an answer should be generated (default true).
func (q *QueryRequest) Generation() bool {
	if q.UseGeneration == nil {
		return true
	}
	return *q.UseGeneration
}

// Validate checks the query and normalizes TopK and Mode against the given
// default and maximum. Returns ErrInvalidQuery for an empty or blank query.
func (q *QueryRequest) Validate(defaultTopK, maxTopK int) error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("%w: query is empty", ErrInvalidQuery)
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	switch q.Mode {
	case "":
		q.Mode = ModeSemantic
	case ModeSemantic, ModeKeyword, ModeHybrid:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidQuery, q.Mode)
	}
	return nil
}

// RetrievalResult is one retrieved chunk with its similarity score, ranked.
type RetrievalResult struct {
	ChunkID         string        `json:"chunk_id"`
	Content         string        `json:"content"`
	SimilarityScore float64       `json:"similarity_score"`
	Metadata        ChunkMetadata `json:"metadata"`
}

// QueryResponse is the answer to a query. Answer is nil when generation was
// not requested or the store was empty; a failed generation yields a
// placeholder answer with the sources intact.
type QueryResponse struct {
	Query     string            `json:"query"`
	Answer    *string           `json:"answer"`
	Sources   []RetrievalResult `json:"sources"`
	Timestamp time.Time         `json:"timestamp"`
}

// UploadResponse confirms a successful ingestion.
type UploadResponse struct {
	FileID        string `json:"file_id"`
	Filename      string `json:"filename"`
	ChunksCreated int    `json:"chunks_created"`
}
