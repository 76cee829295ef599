package postgres

import (
	"context"
	"fmt"

	"github.com/upb/retrieval-plane/models"
	"github.com/upb/retrieval-plane/repositories"
	"go.uber.org/zap"
)

// VectorEntryRepository implements the repositories.VectorEntryRepository interface
type VectorEntryRepository struct {
	db     *DB
	txm    repositories.TransactionManager
	logger *zap.Logger
}

// NewVectorEntryRepository creates a new vector entry repository
func NewVectorEntryRepository(db *DB, logger *zap.Logger) repositories.VectorEntryRepository {
	return &VectorEntryRepository{
		db:     db,
		txm:    NewTransactionManager(db, logger),
		logger: logger,
	}
}

// ListByIndex retrieves every entry of an index
func (r *VectorEntryRepository) ListByIndex(ctx context.Context, indexName string) ([]*models.VectorEntry, error) {
	query := `
		SELECT index_name, id, doc, embedding, created_at
		FROM vector_entries
		WHERE index_name = $1
		ORDER BY id
	`

	executor := executorFor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.VectorEntry
	for rows.Next() {
		entry := &models.VectorEntry{}
		if err := rows.Scan(
			&entry.IndexName,
			&entry.ID,
			&entry.Document,
			&entry.Embedding,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan vector entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vector entries: %w", err)
	}

	return entries, nil
}

// ListIDs retrieves the ids stored in an index
func (r *VectorEntryRepository) ListIDs(ctx context.Context, indexName string) ([]string, error) {
	query := `SELECT id FROM vector_entries WHERE index_name = $1`

	executor := executorFor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector entry ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan vector entry id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Upsert writes all entries in one transaction
func (r *VectorEntryRepository) Upsert(ctx context.Context, entries []*models.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO vector_entries (index_name, id, doc, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (index_name, id)
		DO UPDATE SET doc = EXCLUDED.doc, embedding = EXCLUDED.embedding
	`

	return r.txm.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		executor := executorFor(txCtx, r.db)
		for _, entry := range entries {
			if _, err := executor.ExecContext(txCtx, query,
				entry.IndexName,
				entry.ID,
				entry.Document,
				entry.Embedding,
				entry.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to upsert vector entry %s: %w", entry.ID, err)
			}
		}
		r.logger.Debug("vector entries upserted", zap.Int("count", len(entries)))
		return nil
	})
}

// Delete removes a single entry
func (r *VectorEntryRepository) Delete(ctx context.Context, indexName, id string) error {
	query := `DELETE FROM vector_entries WHERE index_name = $1 AND id = $2`

	executor := executorFor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, indexName, id); err != nil {
		return fmt.Errorf("failed to delete vector entry: %w", err)
	}

	r.logger.Debug("vector entry deleted", zap.String("index", indexName), zap.String("id", id))
	return nil
}

// CountByIndex counts the entries of an index
func (r *VectorEntryRepository) CountByIndex(ctx context.Context, indexName string) (int, error) {
	query := `SELECT COUNT(*) FROM vector_entries WHERE index_name = $1`

	var count int
	executor := executorFor(ctx, r.db)
	if err := executor.QueryRowContext(ctx, query, indexName).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count vector entries: %w", err)
	}
	return count, nil
}
