package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextDocument(t *testing.T) {
	doc := NewTextDocument("pikachu", map[string]interface{}{"type": "electric"})

	require.Len(t, doc.Content, 1)
	require.NotNil(t, doc.Content[0].Text)
	assert.Equal(t, "pikachu", *doc.Content[0].Text)
	assert.Nil(t, doc.Content[0].Media)
	assert.Equal(t, "electric", doc.Metadata["type"])
}

func TestDocument_Text(t *testing.T) {
	a, b := "hello ", "world"
	doc := Document{Content: []Part{
		{Text: &a},
		{Media: &Media{URL: "https://example.com/cat.png", ContentType: "image/png"}},
		{Text: &b},
	}}

	assert.Equal(t, "hello world", doc.Text())
	assert.Len(t, doc.Media(), 1)
	assert.Equal(t, "hello world", doc.Data())
}

func TestDocument_Data(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{"text", NewTextDocument("abc", nil), "abc"},
		{"media only", NewMediaDocument("https://example.com/a.png", "image/png", nil), "https://example.com/a.png"},
		{"empty", Document{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.doc.Data())
		})
	}
}

func TestDocument_ContentHash(t *testing.T) {
	h1, err := NewTextDocument("same", map[string]interface{}{"a": 1, "b": 2}).ContentHash()
	require.NoError(t, err)
	h2, err := NewTextDocument("same", map[string]interface{}{"b": 2, "a": 1}).ContentHash()
	require.NoError(t, err)
	h3, err := NewTextDocument("different", nil).ContentHash()
	require.NoError(t, err)

	assert.Len(t, h1, 32)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestStoredEntry_JSONShape(t *testing.T) {
	raw := `{
		"doc": {"content": [{"text": "bulbasaur"}], "metadata": {"id": 1}},
		"embedding": {"embedding": [0.25, 0.5, 1]}
	}`

	var entry StoredEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))

	assert.Equal(t, "bulbasaur", entry.Doc.Text())
	assert.Equal(t, []float64{0.25, 0.5, 1}, entry.Embedding.Embedding)
	assert.Equal(t, 3, entry.Embedding.Dimensions())

	out, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"embedding":{"embedding":[0.25,0.5,1]}`)
	assert.Contains(t, string(out), `"doc":{"content":[{"text":"bulbasaur"}]`)
}

func TestVectorEntry_TableName(t *testing.T) {
	assert.Equal(t, "vector_entries", VectorEntry{}.TableName())
}
