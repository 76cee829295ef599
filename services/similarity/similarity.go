// Package similarity scores embeddings against each other and selects the
// best matches. The scan is exhaustive; TopK is the seam for swapping in an
// indexed search later without touching callers.
package similarity

import (
	"errors"
	"math"
	"sort"

	"github.com/upb/retrieval-plane/models"
	"github.com/upb/retrieval-plane/services"
)

// Candidate is a stored entry together with its store key.
type Candidate struct {
	ID    string
	Entry models.StoredEntry
}

// Cosine returns dot(a,b) / (|a| * |b|). Vectors must have equal length.
// A zero-norm vector scores 0 against anything. Components are scaled by
// the largest magnitude of their vector first, so large finite values do
// not overflow. NaN or infinite components are an error.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, services.NewDimensionMismatchError(len(a), len(b))
	}

	scaleA, err := maxAbs(a)
	if err != nil {
		return 0, err
	}
	scaleB, err := maxAbs(b)
	if err != nil {
		return 0, err
	}
	if scaleA == 0 || scaleB == 0 {
		return 0, nil
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := a[i]/scaleA, b[i]/scaleB
		dot += x * y
		normA += x * x
		normB += y * y
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

func maxAbs(v []float64) (float64, error) {
	var m float64
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, services.NewInvalidEmbeddingError("embedding has a NaN or infinite component")
		}
		if ax := math.Abs(x); ax > m {
			m = ax
		}
	}
	return m, nil
}

// TopK scores every candidate against query and returns the k best, highest
// first. Equal scores keep their input order. k <= 0 yields an empty result
// and k larger than the input yields everything.
func TopK(query []float64, candidates []Candidate, k int) ([]models.ScoredDocument, error) {
	if k <= 0 {
		return []models.ScoredDocument{}, nil
	}

	scored := make([]models.ScoredDocument, 0, len(candidates))
	for _, c := range candidates {
		score, err := Cosine(query, c.Entry.Embedding.Embedding)
		if err != nil {
			var de *services.DomainError
			if errors.As(err, &de) {
				de.WithDetail("id", c.ID)
			}
			return nil, err
		}
		scored = append(scored, models.ScoredDocument{
			ID:       c.ID,
			Score:    score,
			Document: c.Entry.Doc,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// Candidates flattens a loaded store into candidates ordered by key, which
// makes tie ordering in TopK deterministic across calls.
func Candidates(entries map[string]models.StoredEntry) []Candidate {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, Candidate{ID: id, Entry: entries[id]})
	}
	return out
}
