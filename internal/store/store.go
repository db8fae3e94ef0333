// Package store combines SQLite persistence, the vector index, and the
// keyword index into one document store with a single write lock.
package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/seradocs/sera/internal/keyword"
	"github.com/seradocs/sera/internal/models"
	"github.com/seradocs/sera/internal/storage"
	"github.com/seradocs/sera/internal/vector"
)

// Store is the document store. Writes (ingest, delete, clear) take the
// exclusive lock; searches take the shared lock, so queries never observe a
// half-written document.
type Store struct {
	storage storage.Storage
	vectors vector.Index
	keyword keyword.Index
	logger  *zap.Logger

	vectorPath string
	model      string
	dims       int

	mu sync.RWMutex
}

// New wires the store together, verifies the pinned embedding model, and
// makes the vector index consistent with SQLite (snapshot load or rebuild).
func New(st storage.Storage, vectors vector.Index, kw keyword.Index, vectorPath string, modelName string, dimensions int, logger *zap.Logger) (*Store, error) {
	s := &Store{
		storage:    st,
		vectors:    vectors,
		keyword:    kw,
		logger:     logger,
		vectorPath: vectorPath,
		model:      modelName,
		dims:       dimensions,
	}
	ctx := context.Background()
	if err := s.pinModel(ctx, modelName, dimensions); err != nil {
		return nil, err
	}
	if err := s.loadOrRebuild(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// pinModel records the embedding model identity on first use and refuses to
// open a store built with a different model. Same dimensions are not enough:
// two models with equal dimensionality produce incompatible spaces.
func (s *Store) pinModel(ctx context.Context, modelName string, dimensions int) error {
	pinnedModel, err := s.storage.GetMeta(ctx, storage.MetaEmbeddingModel)
	if err != nil {
		return fmt.Errorf("read pinned model: %w", err)
	}
	if pinnedModel == "" {
		if err := s.storage.SetMeta(ctx, storage.MetaEmbeddingModel, modelName); err != nil {
			return fmt.Errorf("pin model: %w", err)
		}
		if err := s.storage.SetMeta(ctx, storage.MetaEmbeddingDimensions, strconv.Itoa(dimensions)); err != nil {
			return fmt.Errorf("pin dimensions: %w", err)
		}
		return nil
	}
	if pinnedModel != modelName {
		return fmt.Errorf("%w: store was built with embedding model %q, configured model is %q; clear the store to switch models",
			models.ErrConfiguration, pinnedModel, modelName)
	}
	pinnedDims, err := s.storage.GetMeta(ctx, storage.MetaEmbeddingDimensions)
	if err != nil {
		return fmt.Errorf("read pinned dimensions: %w", err)
	}
	if pinnedDims != "" && pinnedDims != strconv.Itoa(dimensions) {
		return fmt.Errorf("%w: store was built with %s dimensions, configured model has %d",
			models.ErrConfiguration, pinnedDims, dimensions)
	}
	return nil
}

// loadOrRebuild loads the vector snapshot, and when it is missing or stale
// rebuilds the index from the embeddings persisted in SQLite.
func (s *Store) loadOrRebuild(ctx context.Context) error {
	if err := s.vectors.Load(s.vectorPath); err != nil {
		return fmt.Errorf("load vector index: %w", err)
	}
	count, err := s.storage.CountChunks(ctx)
	if err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}
	if int64(s.vectors.Size()) == count {
		return nil
	}
	s.logger.Info("rebuilding vector index from storage",
		zap.Int("index_size", s.vectors.Size()),
		zap.Int64("stored_chunks", count))
	if err := s.vectors.Clear(s.vectorPath); err != nil {
		return fmt.Errorf("reset vector index: %w", err)
	}
	chunks, err := s.storage.ListChunks(ctx)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}
	ids := make([]string, 0, len(chunks))
	vecs := make([][]float32, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.Embedding == nil {
			continue
		}
		ids = append(ids, chunk.ID)
		vecs = append(vecs, chunk.Embedding)
	}
	if len(ids) > 0 {
		if err := s.vectors.Add(ctx, ids, vecs); err != nil {
			return fmt.Errorf("rebuild vector index: %w", err)
		}
	}
	if err := s.vectors.Save(s.vectorPath); err != nil {
		return fmt.Errorf("save rebuilt vector index: %w", err)
	}
	return nil
}

// AddDocument persists a document and its embedded chunks, then indexes them.
// SQLite writes are transactional; if a later index step fails the document
// is deleted again so no partial document is ever visible.
func (s *Store) AddDocument(ctx context.Context, doc *models.Document, chunks []*models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Clear drops the model pin; the first write afterwards restores it.
	if err := s.pinModel(ctx, s.model, s.dims); err != nil {
		return err
	}
	if err := s.storage.CreateDocument(ctx, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	if err := s.storage.BatchCreateChunks(ctx, chunks); err != nil {
		s.rollbackDocument(ctx, doc.ID)
		return fmt.Errorf("create chunks: %w", err)
	}

	ids := make([]string, len(chunks))
	vecs := make([][]float32, len(chunks))
	kwDocs := make(map[string]*keyword.ChunkDoc, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunk.ID
		vecs[i] = chunk.Embedding
		kwDocs[chunk.ID] = &keyword.ChunkDoc{Content: chunk.Text, Filename: doc.Filename}
	}
	if err := s.vectors.Add(ctx, ids, vecs); err != nil {
		s.rollbackDocument(ctx, doc.ID)
		return fmt.Errorf("index vectors: %w", err)
	}
	if err := s.keyword.Batch(ctx, kwDocs); err != nil {
		_ = s.vectors.Remove(ctx, ids)
		s.rollbackDocument(ctx, doc.ID)
		return fmt.Errorf("index keywords: %w", err)
	}
	if err := s.vectors.Save(s.vectorPath); err != nil {
		s.logger.Warn("failed to save vector snapshot", zap.Error(err))
	}
	s.logger.Info("document added",
		zap.String("document_id", doc.ID),
		zap.String("filename", doc.Filename),
		zap.Int("chunks", len(chunks)))
	return nil
}

func (s *Store) rollbackDocument(ctx context.Context, docID string) {
	if err := s.storage.DeleteDocument(ctx, docID); err != nil {
		s.logger.Error("rollback failed", zap.String("document_id", docID), zap.Error(err))
	}
}

// Search returns the topK chunks nearest to the query embedding.
func (s *Store) Search(ctx context.Context, embedding []float32, topK int) ([]models.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits, err := s.vectors.Search(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return s.resolveHits(ctx, hitIDs(hits), hitScores(hits))
}

// SearchKeyword returns the topK chunks by BM25 keyword score.
func (s *Store) SearchKeyword(ctx context.Context, query string, topK int) ([]models.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits, err := s.keyword.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	ids := make([]string, len(hits))
	scores := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
		scores[h.ID] = h.Score
	}
	return s.resolveHits(ctx, ids, scores)
}

// RawSearch exposes both indexes for hybrid fusion without resolving chunks.
func (s *Store) RawSearch(ctx context.Context, embedding []float32, query string, limit int) ([]*vector.Result, []*keyword.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	semantic, err := s.vectors.Search(ctx, embedding, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("vector search: %w", err)
	}
	kw, err := s.keyword.Search(ctx, query, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("keyword search: %w", err)
	}
	return semantic, kw, nil
}

// ResolveChunks turns scored chunk IDs into retrieval results, keeping order.
func (s *Store) ResolveChunks(ctx context.Context, ids []string, scores map[string]float64) ([]models.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveHits(ctx, ids, scores)
}

func (s *Store) resolveHits(ctx context.Context, ids []string, scores map[string]float64) ([]models.RetrievalResult, error) {
	chunks, err := s.storage.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve chunks: %w", err)
	}
	results := make([]models.RetrievalResult, len(chunks))
	for i, chunk := range chunks {
		results[i] = models.RetrievalResult{
			ChunkID:         chunk.ID,
			Content:         chunk.Text,
			SimilarityScore: scores[chunk.ID],
			Metadata:        chunk.Metadata,
		}
	}
	return results, nil
}

func hitIDs(hits []*vector.Result) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}

func hitScores(hits []*vector.Result) map[string]float64 {
	scores := make(map[string]float64, len(hits))
	for _, h := range hits {
		scores[h.ID] = h.Score
	}
	return scores
}

// DeleteDocument removes a document and its chunks from storage and both
// indexes. Returns ErrNotFound for an unknown ID.
func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks, err := s.storage.GetChunksByDocumentID(ctx, docID)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}
	if err := s.storage.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunk.ID
	}
	if err := s.vectors.Remove(ctx, ids); err != nil {
		return fmt.Errorf("remove vectors: %w", err)
	}
	if err := s.keyword.Delete(ctx, ids); err != nil {
		return fmt.Errorf("remove keywords: %w", err)
	}
	if err := s.vectors.Save(s.vectorPath); err != nil {
		s.logger.Warn("failed to save vector snapshot", zap.Error(err))
	}
	s.logger.Info("document deleted", zap.String("document_id", docID), zap.Int("chunks", len(chunks)))
	return nil
}

// Clear wipes all documents, chunks, messages, and both indexes, including
// their on-disk state. The model pin is dropped with the rest, so a cleared
// store can be reopened under a different embedding model. Idempotent:
// clearing an empty store succeeds.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear storage: %w", err)
	}
	if err := s.vectors.Clear(s.vectorPath); err != nil {
		return fmt.Errorf("clear vector index: %w", err)
	}
	if err := s.keyword.Clear(); err != nil {
		return fmt.Errorf("clear keyword index: %w", err)
	}
	s.logger.Info("store cleared")
	return nil
}

// Stats returns current document and chunk counts plus the pinned model.
func (s *Store) Stats(ctx context.Context) (*models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, err := s.storage.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := s.storage.CountChunks(ctx)
	if err != nil {
		return nil, err
	}
	model, err := s.storage.GetMeta(ctx, storage.MetaEmbeddingModel)
	if err != nil {
		return nil, err
	}
	dimsStr, err := s.storage.GetMeta(ctx, storage.MetaEmbeddingDimensions)
	if err != nil {
		return nil, err
	}
	dims, _ := strconv.Atoi(dimsStr)
	return &models.Stats{
		TotalChunks:    chunks,
		TotalDocuments: docs,
		EmbeddingModel: model,
		Dimensions:     dims,
	}, nil
}

// Documents lists stored documents newest first.
func (s *Store) Documents(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storage.ListDocuments(ctx, offset, limit)
}

// Document returns one document by ID.
func (s *Store) Document(ctx context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storage.GetDocument(ctx, id)
}

// AppendMessage appends a turn to the conversation log.
func (s *Store) AppendMessage(ctx context.Context, msg *models.Message) error {
	return s.storage.AppendMessage(ctx, msg)
}

// Messages returns the conversation log, oldest first.
func (s *Store) Messages(ctx context.Context, limit int) ([]*models.Message, error) {
	return s.storage.ListMessages(ctx, limit)
}

// ClearMessages clears the conversation log only.
func (s *Store) ClearMessages(ctx context.Context) error {
	return s.storage.ClearMessages(ctx)
}

// Close saves the vector snapshot and closes all components.
func (s *Store) Close() error {
	if err := s.vectors.Save(s.vectorPath); err != nil {
		s.logger.Warn("failed to save vector snapshot on close", zap.Error(err))
	}
	var firstErr error
	for _, closer := range []func() error{s.vectors.Close, s.keyword.Close, s.storage.Close} {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
