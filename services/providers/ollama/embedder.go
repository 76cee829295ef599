package ollama

import (
	"context"
	"fmt"

	"github.com/upb/retrieval-plane/config"
	"github.com/upb/retrieval-plane/models"
	"github.com/upb/retrieval-plane/services/providers"
)

func embedderInfo(def config.EmbedderDefinition) providers.EmbedderInfo {
	return providers.EmbedderInfo{
		Label:      "Ollama Embedding - " + def.Name,
		Dimensions: def.Dimensions,
		Supports:   providers.EmbedderSupports{Input: []string{"text"}},
	}
}

// newEmbedderFunc binds an embedding model to the client. Each document is
// flattened to its text and sent as one input; the reply carries one
// embedding per input in order.
func newEmbedderFunc(client *Client, def config.EmbedderDefinition) providers.EmbedderFunc {
	return func(ctx context.Context, req *providers.EmbedRequest) (*providers.EmbedResponse, error) {
		if len(req.Documents) == 0 {
			return &providers.EmbedResponse{Embeddings: []models.Embedding{}}, nil
		}

		input := make([]string, len(req.Documents))
		for i, doc := range req.Documents {
			input[i] = doc.Text()
		}

		resp, err := client.Embed(ctx, &EmbedRequest{
			Model:   def.Name,
			Input:   input,
			Options: req.Options,
		})
		if err != nil {
			return nil, err
		}

		if len(resp.Embeddings) != len(input) {
			return nil, providers.NewProviderError(providerName, "BAD_RESPONSE",
				fmt.Sprintf("got %d embeddings for %d inputs", len(resp.Embeddings), len(input)), 200, false, nil)
		}

		out := make([]models.Embedding, len(resp.Embeddings))
		for i, vec := range resp.Embeddings {
			out[i] = models.Embedding{Embedding: vec}
		}
		return &providers.EmbedResponse{Embeddings: out}, nil
	}
}
