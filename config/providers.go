package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ProviderDefinitions is the content of the providers file. It lists what
// the Ollama plugin registers and which local indexes get retriever and
// indexer actions.
type ProviderDefinitions struct {
	Ollama  OllamaDefinitions `yaml:"ollama"`
	Indexes []IndexDefinition `yaml:"indexes" validate:"dive"`
}

type OllamaDefinitions struct {
	// ServerAddress overrides OLLAMA_SERVER_ADDRESS when set.
	ServerAddress  string               `yaml:"server_address" validate:"omitempty,url"`
	Models         []ModelDefinition    `yaml:"models" validate:"dive"`
	Embedders      []EmbedderDefinition `yaml:"embedders" validate:"dive"`
	RequestHeaders map[string]string    `yaml:"request_headers"`
}

// ModelDefinition describes a generative model served by Ollama.
type ModelDefinition struct {
	Name    string `yaml:"name" validate:"required"`
	APIType string `yaml:"api_type" validate:"omitempty,oneof=chat generate"`
}

// EmbedderDefinition describes an embedding model served by Ollama.
type EmbedderDefinition struct {
	Name       string `yaml:"name" validate:"required"`
	Dimensions int    `yaml:"dimensions" validate:"gt=0"`
}

// IndexDefinition binds a local index to the embedder used for it.
type IndexDefinition struct {
	Name     string `yaml:"name" validate:"required,excludesall=/"`
	Embedder string `yaml:"embedder" validate:"required,contains=/"`
}

var definitionsValidator = validator.New()

// LoadProviderDefinitions reads and validates the YAML providers file. An
// empty path yields empty definitions.
func LoadProviderDefinitions(path string) (*ProviderDefinitions, error) {
	defs := &ProviderDefinitions{}
	if path == "" {
		return defs, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file: %w", err)
	}
	return ParseProviderDefinitions(raw)
}

// ParseProviderDefinitions decodes and validates providers YAML.
func ParseProviderDefinitions(raw []byte) (*ProviderDefinitions, error) {
	defs := &ProviderDefinitions{}
	if err := yaml.Unmarshal(raw, defs); err != nil {
		return nil, fmt.Errorf("failed to parse providers file: %w", err)
	}

	for i := range defs.Ollama.Models {
		if defs.Ollama.Models[i].APIType == "" {
			defs.Ollama.Models[i].APIType = "chat"
		}
	}

	if err := definitionsValidator.Struct(defs); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("invalid providers file: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return nil, fmt.Errorf("invalid providers file: %w", err)
	}
	return defs, nil
}
