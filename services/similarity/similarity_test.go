package similarity

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/retrieval-plane/models"
	"github.com/upb/retrieval-plane/services"
)

func entry(text string, vec ...float64) models.StoredEntry {
	return models.StoredEntry{
		Doc:       models.NewTextDocument(text, nil),
		Embedding: models.Embedding{Embedding: vec},
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"scaled", []float64{1, 2, 3}, []float64{2, 4, 6}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"near", []float64{1, 0}, []float64{0.9, 0.1}, 0.9 / math.Sqrt(0.82)},
		{"zero left", []float64{0, 0}, []float64{1, 1}, 0},
		{"zero right", []float64{1, 1}, []float64{0, 0}, 0},
		{"both zero", []float64{0, 0, 0}, []float64{0, 0, 0}, 0},
		{"empty", []float64{}, []float64{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cosine(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.False(t, math.IsNaN(got))
		})
	}
}

func TestCosine_DimensionMismatch(t *testing.T) {
	_, err := Cosine([]float64{1, 2, 3}, []float64{1, 2})

	require.Error(t, err)
	assert.True(t, services.IsDimensionMismatchError(err))
	assert.ErrorIs(t, err, services.ErrDimensionMismatch)
}

func TestCosine_ExtremeMagnitudes(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"huge identical", []float64{1e200, 0}, []float64{1e200, 0}, 1},
		{"huge against unit", []float64{1e200, 1}, []float64{1, 0}, 1},
		{"huge orthogonal", []float64{1e300, 0}, []float64{0, 1e300}, 0},
		{"max float", []float64{math.MaxFloat64, math.MaxFloat64}, []float64{1, 1}, 1},
		{"tiny", []float64{1e-300, 1e-300}, []float64{1e-300, 0}, 1 / math.Sqrt2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cosine(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCosine_NonFinite(t *testing.T) {
	for _, v := range [][]float64{
		{math.NaN(), 1},
		{math.Inf(1), 0},
		{0, math.Inf(-1)},
	} {
		_, err := Cosine([]float64{1, 1}, v)
		require.Error(t, err)
		assert.True(t, services.IsInvalidEmbeddingError(err), "got %v", err)

		_, err = Cosine(v, []float64{1, 1})
		assert.True(t, services.IsInvalidEmbeddingError(err), "got %v", err)
	}
}

func TestCosine_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		dim := 1 + rng.Intn(16)
		a := make([]float64, dim)
		b := make([]float64, dim)
		for j := range a {
			a[j] = rng.NormFloat64()
			b[j] = rng.NormFloat64()
		}

		self, err := Cosine(a, a)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, self, 1e-9, "cos(a,a) for %v", a)

		ab, err := Cosine(a, b)
		require.NoError(t, err)
		ba, err := Cosine(b, a)
		require.NoError(t, err)
		assert.InDelta(t, ab, ba, 1e-12)
		assert.LessOrEqual(t, math.Abs(ab), 1.0+1e-9)
	}
}

func TestTopK_Example(t *testing.T) {
	store := map[string]models.StoredEntry{
		"A": entry("a", 1, 0),
		"B": entry("b", 0, 1),
		"C": entry("c", 0.9, 0.1),
	}

	got, err := TopK([]float64{1, 0}, Candidates(store), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "A", got[0].ID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.Equal(t, "C", got[1].ID)
	assert.InDelta(t, 0.994, got[1].Score, 1e-3)
	assert.Equal(t, "c", got[1].Document.Text())
}

func TestTopK_Sizes(t *testing.T) {
	candidates := []Candidate{
		{ID: "1", Entry: entry("1", 1, 0)},
		{ID: "2", Entry: entry("2", 0, 1)},
		{ID: "3", Entry: entry("3", 1, 1)},
		{ID: "4", Entry: entry("4", -1, 0)},
	}

	for _, k := range []int{-3, -1, 0, 1, 2, 3, 4, 5, 100} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			got, err := TopK([]float64{1, 0.5}, candidates, k)
			require.NoError(t, err)
			require.NotNil(t, got)

			want := k
			if want < 0 {
				want = 0
			}
			if want > len(candidates) {
				want = len(candidates)
			}
			assert.Len(t, got, want)

			for i := 0; i+1 < len(got); i++ {
				assert.GreaterOrEqual(t, got[i].Score, got[i+1].Score)
			}
		})
	}
}

func TestTopK_Empty(t *testing.T) {
	got, err := TopK([]float64{1, 0}, nil, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTopK_ZeroSkipsScoring(t *testing.T) {
	got, err := TopK([]float64{1, 0}, []Candidate{{ID: "x", Entry: entry("x", 1, 2, 3)}}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTopK_StableTies(t *testing.T) {
	candidates := []Candidate{
		{ID: "first", Entry: entry("first", 2, 0)},
		{ID: "second", Entry: entry("second", 1, 0)},
		{ID: "other", Entry: entry("other", 0, 1)},
		{ID: "third", Entry: entry("third", 5, 0)},
	}

	got, err := TopK([]float64{1, 0}, candidates, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestTopK_DimensionMismatchFailsWholeCall(t *testing.T) {
	candidates := []Candidate{
		{ID: "ok", Entry: entry("ok", 1, 0)},
		{ID: "bad", Entry: entry("bad", 1, 0, 0)},
	}

	got, err := TopK([]float64{1, 0}, candidates, 2)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, services.IsDimensionMismatchError(err))
	assert.Equal(t, "bad", services.GetErrorDetails(err)["id"])
}

func TestTopK_DegenerateEmbeddings(t *testing.T) {
	candidates := []Candidate{
		{ID: "zero", Entry: entry("zero", 0, 0)},
		{ID: "match", Entry: entry("match", 1, 0)},
		{ID: "against", Entry: entry("against", -1, 0)},
	}

	got, err := TopK([]float64{1, 0}, candidates, 3)
	require.NoError(t, err)
	assert.Equal(t, "match", got[0].ID)
	assert.Equal(t, "zero", got[1].ID)
	assert.Equal(t, 0.0, got[1].Score)
	assert.Equal(t, "against", got[2].ID)

	got, err = TopK([]float64{0, 0}, candidates, 3)
	require.NoError(t, err)
	for _, sd := range got {
		assert.Equal(t, 0.0, sd.Score)
	}
	assert.Equal(t, []string{"zero", "match", "against"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestTopK_HugeMagnitudesKeepOrder(t *testing.T) {
	candidates := []Candidate{
		{ID: "far", Entry: entry("far", 0, 1e250)},
		{ID: "exact", Entry: entry("exact", 3e200, 0)},
		{ID: "near", Entry: entry("near", 1e200, 1e199)},
	}

	got, err := TopK([]float64{1e180, 0}, candidates, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"exact", "near", "far"}, []string{got[0].ID, got[1].ID, got[2].ID})
	for i, sd := range got {
		assert.False(t, math.IsNaN(sd.Score))
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].Score, sd.Score)
		}
	}
}

func TestTopK_NonFiniteEmbeddingFailsWholeCall(t *testing.T) {
	candidates := []Candidate{
		{ID: "ok", Entry: entry("ok", 1, 0)},
		{ID: "broken", Entry: entry("broken", math.NaN(), 0)},
	}

	got, err := TopK([]float64{1, 0}, candidates, 2)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, services.IsInvalidEmbeddingError(err))
	assert.Equal(t, "broken", services.GetErrorDetails(err)["id"])
}

func TestCandidates_SortedByID(t *testing.T) {
	got := Candidates(map[string]models.StoredEntry{
		"c": entry("c", 1),
		"a": entry("a", 1),
		"b": entry("b", 1),
	})

	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "c", got[2].ID)
}
