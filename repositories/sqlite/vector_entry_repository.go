package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/retrieval-plane/models"
	"github.com/upb/retrieval-plane/repositories"
	"go.uber.org/zap"
)

// VectorEntryRepository implements the repositories.VectorEntryRepository interface
type VectorEntryRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewVectorEntryRepository creates a new vector entry repository
func NewVectorEntryRepository(db *DB, logger *zap.Logger) repositories.VectorEntryRepository {
	return &VectorEntryRepository{db: db, logger: logger}
}

// ListByIndex retrieves every entry of an index
func (r *VectorEntryRepository) ListByIndex(ctx context.Context, indexName string) ([]*models.VectorEntry, error) {
	query := `
		SELECT index_name, id, doc, embedding, created_at
		FROM vector_entries
		WHERE index_name = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.VectorEntry
	for rows.Next() {
		var (
			entry     = &models.VectorEntry{}
			doc       string
			embedding string
			createdAt int64
		)
		if err := rows.Scan(&entry.IndexName, &entry.ID, &doc, &embedding, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan vector entry: %w", err)
		}
		entry.Document = []byte(doc)
		entry.Embedding = []byte(embedding)
		entry.CreatedAt = time.UnixMilli(createdAt).UTC()
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vector entries: %w", err)
	}
	return entries, nil
}

// ListIDs retrieves the ids stored in an index
func (r *VectorEntryRepository) ListIDs(ctx context.Context, indexName string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM vector_entries WHERE index_name = ?`, indexName)
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

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO vector_entries (index_name, id, doc, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (index_name, id)
		DO UPDATE SET doc = excluded.doc, embedding = excluded.embedding
	`
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, query,
			entry.IndexName,
			entry.ID,
			string(entry.Document),
			string(entry.Embedding),
			entry.CreatedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("failed to upsert vector entry %s: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug("vector entries upserted", zap.Int("count", len(entries)))
	return nil
}

// Delete removes a single entry
func (r *VectorEntryRepository) Delete(ctx context.Context, indexName, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM vector_entries WHERE index_name = ? AND id = ?`, indexName, id); err != nil {
		return fmt.Errorf("failed to delete vector entry: %w", err)
	}
	return nil
}

// CountByIndex counts the entries of an index
func (r *VectorEntryRepository) CountByIndex(ctx context.Context, indexName string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vector_entries WHERE index_name = ?`, indexName).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count vector entries: %w", err)
	}
	return count, nil
}
