package repositories

import (
	"context"

	"github.com/upb/retrieval-plane/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// VectorEntryRepository persists stored entries as rows, one per
// (index_name, id) pair.
type VectorEntryRepository interface {
	// ListByIndex returns every row of an index ordered by id
	ListByIndex(ctx context.Context, indexName string) ([]*models.VectorEntry, error)

	// ListIDs returns the ids present in an index
	ListIDs(ctx context.Context, indexName string) ([]string, error)

	// Upsert writes all entries atomically, replacing rows with the same key
	Upsert(ctx context.Context, entries []*models.VectorEntry) error

	// Delete removes one entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, indexName, id string) error

	// CountByIndex returns the number of rows in an index
	CountByIndex(ctx context.Context, indexName string) (int, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	VectorEntries VectorEntryRepository
}
