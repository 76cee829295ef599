// Package sqlite keeps stored entries in a single SQLite file through the
// pure Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/upb/retrieval-plane/config"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver
)

// DB wraps the sql.DB handle of one SQLite file
type DB struct {
	*sql.DB
	path   string
	logger *zap.Logger
}

// NewDB opens the database file, creating it when missing.
func NewDB(cfg config.SQLiteConfig, logger *zap.Logger) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(2 * time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	logger.Info("sqlite database opened", zap.String("path", cfg.Path))

	return &DB{DB: db, path: cfg.Path, logger: logger}, nil
}

// NewDBFromConn wraps an already opened handle.
func NewDBFromConn(db *sql.DB, logger *zap.Logger) *DB {
	return &DB{DB: db, logger: logger}
}

// Close closes the database
func (db *DB) Close() error {
	db.logger.Info("closing sqlite database", zap.String("path", db.path))
	return db.DB.Close()
}

// HealthCheck verifies the file can still be queried
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("sqlite health check failed: %w", err)
	}
	return nil
}

// InitSchema creates the vector_entries table.
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS vector_entries (
		index_name TEXT NOT NULL,
		id TEXT NOT NULL,
		doc TEXT NOT NULL,
		embedding TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (index_name, id)
	);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}

	db.logger.Info("sqlite schema initialized")
	return nil
}
