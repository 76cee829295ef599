// Package localstore registers a retriever and an indexer per configured
// index, both named devLocalVectorStore/<index>.
package localstore

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/retrieval-plane/config"
	"github.com/upb/retrieval-plane/services"
	"github.com/upb/retrieval-plane/services/docstore"
	"github.com/upb/retrieval-plane/services/indexer"
	"github.com/upb/retrieval-plane/services/providers"
	"github.com/upb/retrieval-plane/services/retriever"
	"github.com/upb/retrieval-plane/utils"
)

// Provider is the name prefix of every action this plugin registers.
const Provider = "devLocalVectorStore"

// StoreFactory opens the store backing one index.
type StoreFactory func(indexName string) (docstore.ReadWriter, error)

// Plugin wires indexes to embedders that must already be registered.
type Plugin struct {
	indexes     []config.IndexDefinition
	openStore   StoreFactory
	concurrency int
	logger      *zap.Logger
}

// NewPlugin creates a plugin for the given index definitions.
func NewPlugin(indexes []config.IndexDefinition, openStore StoreFactory, concurrency int, logger *zap.Logger) *Plugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Plugin{
		indexes:     indexes,
		openStore:   openStore,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (p *Plugin) Name() string {
	return Provider
}

// ActionName returns the registry name of an index.
func ActionName(index string) string {
	return Provider + "/" + index
}

// Initialize resolves each index's embedder, opens its store, and registers
// every retriever and indexer in one atomic batch.
func (p *Plugin) Initialize(r *providers.Registry) error {
	actions := make([]*providers.Action, 0, 2*len(p.indexes))
	for _, def := range p.indexes {
		if err := utils.ValidateIndexName(def.Name); err != nil {
			return services.NewValidationError("invalid index definition", err)
		}

		embedAction, err := r.Resolve(providers.ActionKindEmbedder, def.Embedder)
		if err != nil {
			return fmt.Errorf("index %s: %w", def.Name, err)
		}
		embedder := embedAction.Handle.(providers.EmbedderFunc)
		dims := embedAction.Metadata.(*providers.EmbedderInfo).Dimensions

		store, err := p.openStore(def.Name)
		if err != nil {
			return fmt.Errorf("index %s: %w", def.Name, err)
		}

		info := providers.StoreInfo{Label: "Local vector store - " + def.Name, Embedder: def.Embedder}
		ret := retriever.NewRetrieverService(embedder, store, p.logger.With(zap.String("index", def.Name)))
		idx := indexer.NewIndexerService(embedder, store, indexer.Config{
			Dimensions:  dims,
			Concurrency: p.concurrency,
		}, p.logger.With(zap.String("index", def.Name)))

		actions = append(actions,
			providers.NewRetrieverAction(ActionName(def.Name), info, ret.Handle()),
			providers.NewIndexerAction(ActionName(def.Name), info, idx.Handle()),
		)
	}

	if err := r.RegisterAll(actions...); err != nil {
		return err
	}

	p.logger.Info("local vector store initialized", zap.Int("indexes", len(p.indexes)))
	return nil
}
