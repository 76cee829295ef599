package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/retrieval-plane/models"
)

// ActionKind is the type of a registered action.
type ActionKind string

const (
	ActionKindModel     ActionKind = "model"
	ActionKindEmbedder  ActionKind = "embedder"
	ActionKindRetriever ActionKind = "retriever"
	ActionKindIndexer   ActionKind = "indexer"
)

// ActionKinds lists every kind in lookup order.
var ActionKinds = []ActionKind{ActionKindModel, ActionKindEmbedder, ActionKindRetriever, ActionKindIndexer}

// Valid reports whether k is a known kind.
func (k ActionKind) Valid() bool {
	for _, known := range ActionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ActionKey renders the registry key of an action, /<kind>/<name>.
func ActionKey(kind ActionKind, name string) string {
	return fmt.Sprintf("/%s/%s", kind, name)
}

// Role is the author of a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
	RoleTool   Role = "tool"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role          `json:"role" validate:"required,oneof=user model system tool"`
	Content []models.Part `json:"content" validate:"required,min=1"`
}

// Text concatenates the text parts of the message.
func (m Message) Text() string {
	return models.Document{Content: m.Content}.Text()
}

// GenerationConfig holds the common sampling options.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

// GenerateRequest is the input of a model action.
type GenerateRequest struct {
	Messages []Message        `json:"messages" validate:"required,min=1,dive"`
	Config   GenerationConfig `json:"config"`
}

// Usage reports token counts of a generation.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// GenerateResponse is the output of a model action.
type GenerateResponse struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finishReason,omitempty"`
	Usage        Usage   `json:"usage"`
}

// EmbedRequest asks for one embedding per input document.
type EmbedRequest struct {
	Documents []models.Document      `json:"documents" validate:"required,min=1,dive"`
	Options   map[string]interface{} `json:"options,omitempty"`
}

// EmbedResponse carries embeddings in input order.
type EmbedResponse struct {
	Embeddings []models.Embedding `json:"embeddings"`
}

// RetrieverOptions tunes a retrieval. A nil or non-positive Limit selects
// the retriever's default.
type RetrieverOptions struct {
	Limit *int `json:"limit,omitempty"`
}

// RetrieveRequest is the input of a retriever action.
type RetrieveRequest struct {
	Query   models.Document  `json:"query" validate:"required"`
	Options RetrieverOptions `json:"options"`
}

// RetrieveResponse lists documents best match first.
type RetrieveResponse struct {
	Documents []models.Document `json:"documents"`
}

// IndexRequest is the input of an indexer action.
type IndexRequest struct {
	Documents []models.Document `json:"documents" validate:"required,min=1,dive"`
}

// IndexResponse reports what an indexer wrote.
type IndexResponse struct {
	BatchID string   `json:"batch_id"`
	Indexed []string `json:"indexed"`
	Skipped []string `json:"skipped"`
}

// Invocation handles, one per action kind.
type (
	ModelFunc     func(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
	EmbedderFunc  func(ctx context.Context, req *EmbedRequest) (*EmbedResponse, error)
	RetrieverFunc func(ctx context.Context, req *RetrieveRequest) (*RetrieveResponse, error)
	IndexerFunc   func(ctx context.Context, req *IndexRequest) (*IndexResponse, error)
)

// Embedder is anything that can embed documents. EmbedderFunc satisfies it.
type Embedder interface {
	Embed(ctx context.Context, req *EmbedRequest) (*EmbedResponse, error)
}

// Embed calls f.
func (f EmbedderFunc) Embed(ctx context.Context, req *EmbedRequest) (*EmbedResponse, error) {
	return f(ctx, req)
}

// ModelSupports declares the conversation features a model handles.
type ModelSupports struct {
	Multiturn  bool `json:"multiturn"`
	SystemRole bool `json:"systemRole"`
	Media      bool `json:"media"`
	Tools      bool `json:"tools"`
}

// ModelInfo is the capability metadata of a model action.
type ModelInfo struct {
	Label    string        `json:"label" validate:"required"`
	Supports ModelSupports `json:"supports"`
}

// EmbedderSupports declares the input modalities an embedder accepts.
type EmbedderSupports struct {
	Input []string `json:"input" validate:"required,min=1,dive,oneof=text image video"`
}

// EmbedderInfo is the capability metadata of an embedder action.
type EmbedderInfo struct {
	Label      string           `json:"label" validate:"required"`
	Dimensions int              `json:"dimensions" validate:"gt=0"`
	Supports   EmbedderSupports `json:"supports"`
}

// StoreInfo is the metadata of retriever and indexer actions.
type StoreInfo struct {
	Label    string `json:"label" validate:"required"`
	Embedder string `json:"embedder,omitempty"`
}

// ProviderError represents an error from a provider
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	msg := e.Provider + ": " + e.Message
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, retryable bool, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	return false
}
