// Package ingest turns uploaded files into persisted, embedded chunks.
package ingest

import (
	"fmt"

	"github.com/seradocs/sera/internal/models"
)

// Chunker splits text into overlapping fixed-size windows. Sizes and offsets
// are in runes so multi-byte text never splits mid-character.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker. Overlap must be non-negative and strictly
// smaller than the chunk size, otherwise the window could not advance.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrConfiguration, chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", models.ErrConfiguration, chunkSize, chunkOverlap)
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Chunk splits text into chunks for docID. Chunk i covers rune offsets
// [i*step, i*step+size) where step = size - overlap; the final chunk is
// emitted even when shorter. Empty text yields no chunks.
func (c *Chunker) Chunk(docID, text string) []*models.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	chunks := make([]*models.Chunk, 0, (len(runes)+step-1)/step)
	for index, start := 0, 0; start < len(runes); index, start = index+1, start+step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, &models.Chunk{
			ID:          fmt.Sprintf("%s_%d", docID, index),
			DocumentID:  docID,
			ChunkIndex:  index,
			Text:        string(runes[start:end]),
			StartOffset: start,
			EndOffset:   end,
		})
		if end >= len(runes) {
			break
		}
	}
	return chunks
}
