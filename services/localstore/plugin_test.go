package localstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/retrieval-plane/config"
	"github.com/upb/retrieval-plane/models"
	"github.com/upb/retrieval-plane/services"
	"github.com/upb/retrieval-plane/services/docstore"
	"github.com/upb/retrieval-plane/services/providers"
)

func registryWithEmbedder(t *testing.T) *providers.Registry {
	t.Helper()
	r := providers.NewRegistry()
	vectors := map[string][]float64{"cats": {1, 0}, "dogs": {0, 1}, "kittens": {1, 0}}
	err := r.DefineEmbedder("ollama/nomic-embed", providers.EmbedderInfo{
		Label:      "nomic",
		Dimensions: 2,
		Supports:   providers.EmbedderSupports{Input: []string{"text"}},
	}, func(ctx context.Context, req *providers.EmbedRequest) (*providers.EmbedResponse, error) {
		out := make([]models.Embedding, len(req.Documents))
		for i, d := range req.Documents {
			out[i] = models.Embedding{Embedding: vectors[d.Text()]}
		}
		return &providers.EmbedResponse{Embeddings: out}, nil
	})
	require.NoError(t, err)
	return r
}

func memoryStores() (StoreFactory, map[string]*docstore.MemoryStore) {
	stores := map[string]*docstore.MemoryStore{}
	return func(name string) (docstore.ReadWriter, error) {
		s := docstore.NewMemoryStore(nil)
		stores[name] = s
		return s, nil
	}, stores
}

func TestPlugin_RegistersRetrieverAndIndexer(t *testing.T) {
	r := registryWithEmbedder(t)
	open, stores := memoryStores()
	p := NewPlugin([]config.IndexDefinition{{Name: "pets", Embedder: "ollama/nomic-embed"}}, open, 2, nil)

	require.NoError(t, p.Initialize(r))
	assert.Equal(t, 3, r.Len())
	assert.Contains(t, stores, "pets")

	index, err := r.LookupIndexer("devLocalVectorStore/pets")
	require.NoError(t, err)
	res, err := index(context.Background(), &providers.IndexRequest{Documents: []models.Document{
		models.NewTextDocument("cats", nil),
		models.NewTextDocument("dogs", nil),
	}})
	require.NoError(t, err)
	assert.Len(t, res.Indexed, 2)

	retrieve, err := r.LookupRetriever("devLocalVectorStore/pets")
	require.NoError(t, err)
	limit := 1
	resp, err := retrieve(context.Background(), &providers.RetrieveRequest{
		Query:   models.NewTextDocument("kittens", nil),
		Options: providers.RetrieverOptions{Limit: &limit},
	})
	require.NoError(t, err)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "cats", resp.Documents[0].Text())

	a, err := r.Resolve(providers.ActionKindRetriever, "devLocalVectorStore/pets")
	require.NoError(t, err)
	assert.Equal(t, "ollama/nomic-embed", a.Metadata.(*providers.StoreInfo).Embedder)
}

func TestPlugin_UnknownEmbedder(t *testing.T) {
	r := providers.NewRegistry()
	open, _ := memoryStores()
	p := NewPlugin([]config.IndexDefinition{{Name: "pets", Embedder: "ollama/missing"}}, open, 0, nil)

	err := p.Initialize(r)
	assert.True(t, services.IsNotFoundError(err))
	assert.Zero(t, r.Len())
}

func TestPlugin_StoreOpenFailure(t *testing.T) {
	r := registryWithEmbedder(t)
	p := NewPlugin([]config.IndexDefinition{{Name: "pets", Embedder: "ollama/nomic-embed"}},
		func(string) (docstore.ReadWriter, error) {
			return nil, services.NewStoreUnavailableError("connect", errors.New("refused"))
		}, 0, nil)

	err := p.Initialize(r)
	assert.True(t, services.IsStoreUnavailableError(err))
	assert.Equal(t, 1, r.Len())
}

func TestPlugin_InvalidIndexName(t *testing.T) {
	r := registryWithEmbedder(t)
	open, _ := memoryStores()
	p := NewPlugin([]config.IndexDefinition{{Name: "../etc", Embedder: "ollama/nomic-embed"}}, open, 0, nil)

	assert.True(t, services.IsValidationError(p.Initialize(r)))
}

func TestPlugin_InitializeTwice(t *testing.T) {
	r := registryWithEmbedder(t)
	open, _ := memoryStores()
	p := NewPlugin([]config.IndexDefinition{{Name: "pets", Embedder: "ollama/nomic-embed"}}, open, 0, nil)

	require.NoError(t, p.Initialize(r))
	assert.True(t, services.IsDuplicateRegistrationError(p.Initialize(r)))
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, "devLocalVectorStore", p.Name())
}
