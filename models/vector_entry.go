package models

import "time"

// Embedding is a single vector plus optional metadata describing it.
type Embedding struct {
	Embedding []float64              `json:"embedding"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Dimensions returns the vector length.
func (e Embedding) Dimensions() int {
	return len(e.Embedding)
}

// StoredEntry pairs a document with its precomputed embedding. Its JSON shape
// is the persisted format of every document store.
type StoredEntry struct {
	Doc       Document  `json:"doc"`
	Embedding Embedding `json:"embedding"`
}

// ScoredDocument is a ranking result. It is never persisted.
type ScoredDocument struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Document Document `json:"document"`
}

// VectorEntry is the row form of a StoredEntry in SQL backed stores.
type VectorEntry struct {
	IndexName string    `json:"index_name" db:"index_name"`
	ID        string    `json:"id" db:"id"`
	Document  []byte    `json:"doc" db:"doc"`
	Embedding []byte    `json:"embedding" db:"embedding"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the VectorEntry model
func (VectorEntry) TableName() string {
	return "vector_entries"
}
