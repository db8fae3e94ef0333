package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seradocs/sera/internal/config"
	"github.com/seradocs/sera/internal/embedding"
	"github.com/seradocs/sera/internal/extract"
	"github.com/seradocs/sera/internal/fileid"
	"github.com/seradocs/sera/internal/models"
	"github.com/seradocs/sera/internal/store"
)

// Ingestor runs the ingestion pipeline: validate, extract, chunk, embed,
// store. A document either lands completely or not at all.
type Ingestor struct {
	cfg       *config.IngestConfig
	extractor *extract.Extractor
	chunker   *Chunker
	embedder  embedding.Embedder
	store     *store.Store
	logger    *zap.Logger
	allowed   map[string]bool
}

// NewIngestor builds the pipeline. Chunking settings are validated here so a
// bad configuration fails at startup, not on the first upload.
func NewIngestor(cfg *config.IngestConfig, extractor *extract.Extractor, embedder embedding.Embedder, st *store.Store, logger *zap.Logger) (*Ingestor, error) {
	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &Ingestor{
		cfg:       cfg,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     st,
		logger:    logger,
		allowed:   allowed,
	}, nil
}

// Ingest processes an uploaded file under a fresh document ID.
func (in *Ingestor) Ingest(ctx context.Context, content []byte, filename string) (*models.UploadResponse, error) {
	return in.IngestAs(ctx, content, filename, uuid.New().String())
}

// IngestFile processes a file from disk under its path-derived ID, so
// re-ingesting the same path replaces the earlier version.
func (in *Ingestor) IngestFile(ctx context.Context, path string) (*models.UploadResponse, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return in.IngestAs(ctx, content, filepath.Base(abs), fileid.FileDocID(abs))
}

// IngestAs processes content under the given document ID. An existing
// document with that ID is replaced.
func (in *Ingestor) IngestAs(ctx context.Context, content []byte, filename, docID string) (*models.UploadResponse, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !in.allowed[ext] || !in.extractor.Supported(ext) {
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedFormat, ext)
	}
	if in.cfg.MaxFileSize > 0 && int64(len(content)) > in.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", models.ErrPayloadTooLarge, len(content), in.cfg.MaxFileSize)
	}

	text, err := in.extractor.Extract(content, ext)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no extractable text in %s", models.ErrExtraction, filename)
	}

	chunks := in.chunker.Chunk(docID, text)
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
		chunk.Metadata = models.ChunkMetadata{
			Filename:    filename,
			FileType:    ext,
			ChunkIndex:  chunk.ChunkIndex,
			StartOffset: chunk.StartOffset,
			EndOffset:   chunk.EndOffset,
		}
	}

	embeddings, err := in.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	for i, chunk := range chunks {
		chunk.Embedding = embeddings[i]
	}

	// Replace an earlier version ingested under the same ID (watched files).
	if err := in.store.DeleteDocument(ctx, docID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("replace document: %w", err)
	}

	doc := &models.Document{ID: docID, Filename: filename, Text: text}
	if err := in.store.AddDocument(ctx, doc, chunks); err != nil {
		return nil, err
	}

	in.logger.Info("document ingested",
		zap.String("document_id", docID),
		zap.String("filename", filename),
		zap.Int("chunks", len(chunks)),
		zap.Int("bytes", len(content)))
	return &models.UploadResponse{
		FileID:        docID,
		Filename:      filename,
		ChunksCreated: len(chunks),
	}, nil
}

// Remove deletes a previously ingested watched file by path.
func (in *Ingestor) Remove(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	return in.store.DeleteDocument(ctx, fileid.FileDocID(abs))
}
