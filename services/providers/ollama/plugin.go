// Package ollama registers models and embedders served by an Ollama server.
package ollama

import (
	"go.uber.org/zap"

	"github.com/upb/retrieval-plane/config"
	"github.com/upb/retrieval-plane/services/providers"
)

// Plugin registers one model action per ModelDefinition and one embedder
// action per EmbedderDefinition, named ollama/<name>.
type Plugin struct {
	Models    []config.ModelDefinition
	Embedders []config.EmbedderDefinition

	client *Client
	logger *zap.Logger
}

// NewPlugin creates a plugin. A server address in defs overrides the one
// in cfg.
func NewPlugin(cfg config.OllamaConfig, defs config.OllamaDefinitions, logger *zap.Logger) *Plugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	address := cfg.ServerAddress
	if defs.ServerAddress != "" {
		address = defs.ServerAddress
	}

	return &Plugin{
		Models:    defs.Models,
		Embedders: defs.Embedders,
		client: NewClient(ClientConfig{
			ServerAddress: address,
			Timeout:       cfg.Timeout,
			MaxRetries:    cfg.MaxRetries,
			RetryDelay:    cfg.RetryDelay,
			Headers:       defs.RequestHeaders,
		}, logger),
		logger: logger,
	}
}

// Name returns the provider prefix
func (p *Plugin) Name() string {
	return providerName
}

// Client returns the underlying HTTP client.
func (p *Plugin) Client() *Client {
	return p.client
}

// ActionName qualifies a local model name with the provider prefix.
func ActionName(name string) string {
	return providerName + "/" + name
}

// Initialize registers every configured action in one atomic batch.
// Calling it twice against the same registry fails with
// DuplicateRegistration and changes nothing.
func (p *Plugin) Initialize(r *providers.Registry) error {
	actions := make([]*providers.Action, 0, len(p.Models)+len(p.Embedders))
	for _, def := range p.Models {
		actions = append(actions, providers.NewModelAction(
			ActionName(def.Name), modelInfo(def), newModelFunc(p.client, def)))
	}
	for _, def := range p.Embedders {
		actions = append(actions, providers.NewEmbedderAction(
			ActionName(def.Name), embedderInfo(def), newEmbedderFunc(p.client, def)))
	}

	if err := r.RegisterAll(actions...); err != nil {
		return err
	}

	p.logger.Info("ollama plugin initialized",
		zap.String("server", p.client.BaseURL()),
		zap.Int("models", len(p.Models)),
		zap.Int("embedders", len(p.Embedders)))
	return nil
}
