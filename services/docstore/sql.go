package docstore

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/upb/retrieval-plane/models"
	"github.com/upb/retrieval-plane/repositories"
	"github.com/upb/retrieval-plane/services"
)

// SQLStore maps one index of a vector_entries table onto a collection.
type SQLStore struct {
	repo      repositories.VectorEntryRepository
	indexName string
	logger    *zap.Logger
}

// NewSQLStore creates a store over the rows of indexName.
func NewSQLStore(repo repositories.VectorEntryRepository, indexName string, logger *zap.Logger) *SQLStore {
	return &SQLStore{repo: repo, indexName: indexName, logger: logger}
}

// Load reads every row of the index. Query failures are StoreUnavailable; a
// row whose columns do not decode fails the whole load as StoreCorrupt.
func (s *SQLStore) Load(ctx context.Context) (map[string]models.StoredEntry, error) {
	rows, err := s.repo.ListByIndex(ctx, s.indexName)
	if err != nil {
		return nil, services.NewStoreUnavailableError("failed to load index", err).
			WithDetail("index", s.indexName)
	}

	entries := make(map[string]models.StoredEntry, len(rows))
	for _, row := range rows {
		raw, err := json.Marshal(struct {
			Doc       json.RawMessage `json:"doc"`
			Embedding json.RawMessage `json:"embedding"`
		}{Doc: row.Document, Embedding: row.Embedding})
		if err != nil {
			return nil, services.NewStoreCorruptError("row holds invalid JSON", err).
				WithDetail("index", s.indexName).
				WithDetail("id", row.ID)
		}

		entry, err := DecodeEntry(row.ID, raw)
		if err != nil {
			return nil, err
		}
		entries[row.ID] = entry
	}
	return entries, nil
}

func (s *SQLStore) Keys(ctx context.Context) (map[string]struct{}, error) {
	ids, err := s.repo.ListIDs(ctx, s.indexName)
	if err != nil {
		return nil, services.NewStoreUnavailableError("failed to list index ids", err).
			WithDetail("index", s.indexName)
	}
	keys := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keys[id] = struct{}{}
	}
	return keys, nil
}

// Put upserts all entries in a single transaction.
func (s *SQLStore) Put(ctx context.Context, entries map[string]models.StoredEntry) error {
	now := time.Now().UTC()
	rows := make([]*models.VectorEntry, 0, len(entries))
	for id, entry := range entries {
		doc, err := json.Marshal(entry.Doc)
		if err != nil {
			return services.WrapInternal("failed to encode document", err)
		}
		embedding, err := json.Marshal(entry.Embedding)
		if err != nil {
			return services.WrapInternal("failed to encode embedding", err)
		}
		rows = append(rows, &models.VectorEntry{
			IndexName: s.indexName,
			ID:        id,
			Document:  doc,
			Embedding: embedding,
			CreatedAt: now,
		})
	}

	if err := s.repo.Upsert(ctx, rows); err != nil {
		return services.NewStoreUnavailableError("failed to write index", err).
			WithDetail("index", s.indexName)
	}
	s.logger.Debug("index rows written", zap.String("index", s.indexName), zap.Int("count", len(rows)))
	return nil
}
