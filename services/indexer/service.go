// Package indexer embeds documents and writes them into a document store.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/upb/retrieval-plane/models"
	"github.com/upb/retrieval-plane/services"
	"github.com/upb/retrieval-plane/services/docstore"
	"github.com/upb/retrieval-plane/services/providers"
	"github.com/upb/retrieval-plane/utils"
)

// DefaultConcurrency bounds in-flight embedding calls per batch.
const DefaultConcurrency = 4

// IndexerService writes embedded documents into a store keyed by content hash.
type IndexerService struct {
	embedder    providers.Embedder
	store       docstore.ReadWriter
	dimensions  int
	concurrency int
	logger      *zap.Logger
}

// Config tunes an IndexerService. Dimensions, when positive, is checked
// against every embedding before anything is written.
type Config struct {
	Dimensions  int
	Concurrency int
}

// NewIndexerService creates a new indexer service
func NewIndexerService(embedder providers.Embedder, store docstore.ReadWriter, cfg Config, logger *zap.Logger) *IndexerService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IndexerService{
		embedder:    embedder,
		store:       store,
		dimensions:  cfg.Dimensions,
		concurrency: cfg.Concurrency,
		logger:      logger,
	}
}

type pending struct {
	id  string
	doc models.Document
	vec models.Embedding
}

// Index embeds the documents not yet stored and writes them in one Put.
// Either every new document is written or none is.
func (s *IndexerService) Index(ctx context.Context, docs []models.Document) (*providers.IndexResponse, error) {
	start := time.Now()
	result := &providers.IndexResponse{
		BatchID: uuid.New().String(),
		Indexed: []string{},
		Skipped: []string{},
	}

	existing, err := s.store.Keys(ctx)
	if err != nil {
		return nil, err
	}

	var todo []*pending
	seen := make(map[string]struct{}, len(docs))
	for i, doc := range docs {
		if err := utils.ValidateStruct(&doc); err != nil {
			return nil, services.NewValidationError(fmt.Sprintf("document %d is invalid", i), err)
		}
		id, err := doc.ContentHash()
		if err != nil {
			return nil, services.NewValidationError(fmt.Sprintf("document %d cannot be hashed", i), err)
		}

		_, stored := existing[id]
		_, repeated := seen[id]
		if stored || repeated {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		seen[id] = struct{}{}
		todo = append(todo, &pending{id: id, doc: doc})
	}

	if len(todo) == 0 {
		s.logger.Info("nothing to index",
			zap.String("batch_id", result.BatchID),
			zap.Int("skipped", len(result.Skipped)))
		return result, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, p := range todo {
		p := p
		g.Go(func() error {
			vec, err := s.embed(gctx, p.doc)
			if err != nil {
				return err
			}
			p.vec = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("indexing aborted",
			zap.String("batch_id", result.BatchID),
			zap.Error(err))
		return nil, err
	}

	entries := make(map[string]models.StoredEntry, len(todo))
	dims := len(todo[0].vec.Embedding)
	if s.dimensions > 0 {
		dims = s.dimensions
	}
	for _, p := range todo {
		if got := len(p.vec.Embedding); got != dims {
			return nil, services.NewDimensionMismatchError(dims, got).WithDetail("id", p.id)
		}
		entries[p.id] = models.StoredEntry{Doc: p.doc, Embedding: p.vec}
		result.Indexed = append(result.Indexed, p.id)
	}

	if err := s.store.Put(ctx, entries); err != nil {
		return nil, err
	}

	s.logger.Info("documents indexed",
		zap.String("batch_id", result.BatchID),
		zap.Int("indexed", len(result.Indexed)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Duration("latency", time.Since(start)))

	return result, nil
}

func (s *IndexerService) embed(ctx context.Context, doc models.Document) (models.Embedding, error) {
	resp, err := s.embedder.Embed(ctx, &providers.EmbedRequest{Documents: []models.Document{doc}})
	if err != nil {
		return models.Embedding{}, services.NewEmbeddingFailedError("failed to embed document", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 {
		return models.Embedding{}, services.NewEmbeddingFailedError("embedder returned no embeddings", nil)
	}
	return resp.Embeddings[0], nil
}

// Handle adapts the service to a registry indexer action.
func (s *IndexerService) Handle() providers.IndexerFunc {
	return func(ctx context.Context, req *providers.IndexRequest) (*providers.IndexResponse, error) {
		return s.Index(ctx, req.Documents)
	}
}
