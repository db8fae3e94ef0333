package query

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seradocs/sera/internal/config"
	"github.com/seradocs/sera/internal/embedding"
	"github.com/seradocs/sera/internal/generation"
	"github.com/seradocs/sera/internal/models"
	"github.com/seradocs/sera/internal/store"
)

// Service answers queries: embed, retrieve, optionally generate, and log the
// exchange. generator may be nil when generation is disabled.
type Service struct {
	cfg       *config.QueryConfig
	store     *store.Store
	embedder  embedding.Embedder
	generator generation.Generator
	logger    *zap.Logger
}

// NewService wires the query pipeline.
func NewService(cfg *config.QueryConfig, st *store.Store, embedder embedding.Embedder, generator generation.Generator, logger *zap.Logger) *Service {
	return &Service{
		cfg:       cfg,
		store:     st,
		embedder:  embedder,
		generator: generator,
		logger:    logger,
	}
}

// generationFailedAnswer is returned in place of a generated answer when the
// LLM call fails; the retrieved sources are still usable.
const generationFailedAnswer = "I could not generate an answer right now. The retrieved sources below may still help."

// Answer runs the query pipeline. Retrieval failures are errors; generation
// failures are not: the caller still gets the retrieved sources with a
// placeholder answer.
func (s *Service) Answer(ctx context.Context, req *models.QueryRequest) (*models.QueryResponse, error) {
	if err := req.Validate(s.cfg.DefaultTopK, s.cfg.MaxTopK); err != nil {
		return nil, err
	}

	sources, err := s.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := &models.QueryResponse{
		Query:     req.Query,
		Sources:   sources,
		Timestamp: time.Now(),
	}

	if err := s.store.AppendMessage(ctx, &models.Message{Role: models.RoleUser, Content: req.Query}); err != nil {
		s.logger.Warn("failed to log user message", zap.Error(err))
	}

	generated := false
	if req.Generation() && s.generator != nil && len(sources) > 0 {
		answer, err := s.generator.Generate(ctx, req.Query, sources)
		if err != nil {
			// Degrade to retrieval plus a placeholder rather than failing
			// the request. The failed turn is not logged as an assistant
			// message.
			s.logger.Warn("generation failed, returning sources with placeholder",
				zap.String("query", req.Query), zap.Error(err))
			placeholder := generationFailedAnswer
			resp.Answer = &placeholder
		} else {
			resp.Answer = &answer
			generated = true
			if err := s.store.AppendMessage(ctx, &models.Message{
				Role:    models.RoleAssistant,
				Content: answer,
				Sources: sources,
			}); err != nil {
				s.logger.Warn("failed to log assistant message", zap.Error(err))
			}
		}
	}

	s.logger.Info("query answered",
		zap.String("mode", req.Mode),
		zap.Int("sources", len(sources)),
		zap.Bool("generated", generated))
	return resp, nil
}

func (s *Service) retrieve(ctx context.Context, req *models.QueryRequest) ([]models.RetrievalResult, error) {
	switch req.Mode {
	case models.ModeSemantic:
		embedding, err := s.embedder.Embed(ctx, req.Query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		return s.store.Search(ctx, embedding, req.TopK)
	case models.ModeKeyword:
		return s.store.SearchKeyword(ctx, req.Query, req.TopK)
	case models.ModeHybrid:
		return s.retrieveHybrid(ctx, req)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", models.ErrInvalidQuery, req.Mode)
	}
}

// retrieveHybrid pulls a wider candidate set from both indexes, fuses the
// scores, and resolves the top K candidates.
func (s *Service) retrieveHybrid(ctx context.Context, req *models.QueryRequest) ([]models.RetrievalResult, error) {
	embedding, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	limit := req.TopK * 2
	if limit < 20 {
		limit = 20
	}
	semantic, kw, err := s.store.RawSearch(ctx, embedding, req.Query, limit)
	if err != nil {
		return nil, err
	}
	fused := Fuse(NormalizeKeywordScores(kw), SemanticScores(semantic), s.cfg.KeywordWeight, s.cfg.SemanticWeight)
	if len(fused) > req.TopK {
		fused = fused[:req.TopK]
	}
	ids := make([]string, len(fused))
	scores := make(map[string]float64, len(fused))
	for i, f := range fused {
		ids[i] = f.ChunkID
		scores[f.ChunkID] = f.Score
	}
	return s.store.ResolveChunks(ctx, ids, scores)
}
