// Package retriever answers similarity queries against a document store.
package retriever

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/retrieval-plane/models"
	"github.com/upb/retrieval-plane/services"
	"github.com/upb/retrieval-plane/services/docstore"
	"github.com/upb/retrieval-plane/services/providers"
	"github.com/upb/retrieval-plane/services/similarity"
)

// DefaultLimit is the number of documents returned when no positive limit
// is requested.
const DefaultLimit = 3

// RetrieverService embeds a query and ranks a store against it.
type RetrieverService struct {
	embedder providers.Embedder
	store    docstore.Store
	logger   *zap.Logger
}

// NewRetrieverService creates a new retriever service
func NewRetrieverService(embedder providers.Embedder, store docstore.Store, logger *zap.Logger) *RetrieverService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrieverService{
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// ResolveLimit returns the requested limit when positive, else DefaultLimit.
func ResolveLimit(opts providers.RetrieverOptions) int {
	if opts.Limit != nil && *opts.Limit > 0 {
		return *opts.Limit
	}
	return DefaultLimit
}

// Retrieve returns up to limit documents ordered by decreasing similarity to
// query. The store is only read.
func (s *RetrieverService) Retrieve(ctx context.Context, query models.Document, opts providers.RetrieverOptions) ([]models.Document, error) {
	scored, err := s.RetrieveScored(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	docs := make([]models.Document, len(scored))
	for i, sd := range scored {
		docs[i] = sd.Document
	}
	return docs, nil
}

// RetrieveScored is Retrieve with ids and scores kept.
func (s *RetrieverService) RetrieveScored(ctx context.Context, query models.Document, opts providers.RetrieverOptions) ([]models.ScoredDocument, error) {
	start := time.Now()
	retrievalID := uuid.New().String()

	queryEmbedding, err := s.embedQuery(ctx, query)
	if err != nil {
		s.logger.Error("failed to embed query",
			zap.String("retrieval_id", retrievalID),
			zap.Error(err))
		return nil, err
	}

	k := ResolveLimit(opts)

	entries, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error("failed to load document store",
			zap.String("retrieval_id", retrievalID),
			zap.Error(err))
		return nil, err
	}

	results, err := similarity.TopK(queryEmbedding, similarity.Candidates(entries), k)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("retrieval completed",
		zap.String("retrieval_id", retrievalID),
		zap.Int("k", k),
		zap.Int("candidates", len(entries)),
		zap.Int("returned", len(results)),
		zap.Duration("latency", time.Since(start)))

	return results, nil
}

// embedQuery embeds exactly one document and keeps the first vector.
func (s *RetrieverService) embedQuery(ctx context.Context, query models.Document) ([]float64, error) {
	resp, err := s.embedder.Embed(ctx, &providers.EmbedRequest{Documents: []models.Document{query}})
	if err != nil {
		return nil, services.NewEmbeddingFailedError("failed to embed query", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 {
		return nil, services.NewEmbeddingFailedError("embedder returned no embeddings", nil)
	}
	return resp.Embeddings[0].Embedding, nil
}

// Handle adapts the service to a registry retriever action.
func (s *RetrieverService) Handle() providers.RetrieverFunc {
	return func(ctx context.Context, req *providers.RetrieveRequest) (*providers.RetrieveResponse, error) {
		docs, err := s.Retrieve(ctx, req.Query, req.Options)
		if err != nil {
			return nil, err
		}
		return &providers.RetrieveResponse{Documents: docs}, nil
	}
}
