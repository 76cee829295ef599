package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/upb/retrieval-plane/services/providers"
)

const (
	providerName = "ollama"

	// DefaultServerAddress is where a local Ollama listens out of the box.
	DefaultServerAddress = "http://127.0.0.1:11434"

	defaultTimeout    = 60 * time.Second
	defaultRetryDelay = 500 * time.Millisecond
)

// ClientConfig configures the HTTP client used by every Ollama action.
type ClientConfig struct {
	ServerAddress string
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	Headers       map[string]string
}

// Client talks JSON to the Ollama REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    map[string]string
	maxRetries uint64
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewClient creates a client, filling unset fields with defaults.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if cfg.ServerAddress == "" {
		cfg.ServerAddress = DefaultServerAddress
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.ServerAddress, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		headers:    cfg.Headers,
		maxRetries: uint64(cfg.MaxRetries),
		retryDelay: cfg.RetryDelay,
		logger:     logger.With(zap.String("provider", providerName)),
	}
}

// BaseURL returns the server address without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Embed calls POST /api/embed.
func (c *Client) Embed(ctx context.Context, req *EmbedRequest) (*EmbedResponse, error) {
	var resp EmbedResponse
	if err := c.post(ctx, "/api/embed", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Chat calls POST /api/chat without streaming.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	req.Stream = false
	var resp ChatResponse
	if err := c.post(ctx, "/api/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Generate calls POST /api/generate without streaming.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	req.Stream = false
	var resp GenerateResponse
	if err := c.post(ctx, "/api/generate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// post sends body as JSON and decodes a 200 response into out. Transport
// failures, 429 and 5xx are retried with exponential backoff.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return providers.NewProviderError(providerName, "MARSHAL_ERROR", "Failed to marshal request", 0, false, err)
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryDelay))
	attempt := 0

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		respBody, err := c.do(ctx, path, reqBody)
		if err != nil {
			if providers.IsRetryable(err) {
				c.logger.Warn("ollama request failed, retrying",
					zap.String("path", path),
					zap.Int("attempt", attempt),
					zap.Error(err))
				return retry.RetryableError(err)
			}
			return err
		}

		if err := json.Unmarshal(respBody, out); err != nil {
			return providers.NewProviderError(providerName, "UNMARSHAL_ERROR", "Failed to unmarshal response", http.StatusOK, false, err)
		}
		return nil
	})
	if err != nil && ctx.Err() != nil && !errors.As(err, new(*providers.ProviderError)) {
		return providers.NewProviderError(providerName, "CANCELED", "request canceled", 0, false, ctx.Err())
	}
	return err
}

func (c *Client) do(ctx context.Context, path string, reqBody []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, providers.NewProviderError(providerName, "REQUEST_ERROR", "Failed to create request", 0, false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// A cancelled context is final.
		retryable := ctx.Err() == nil
		return nil, providers.NewProviderError(providerName, "HTTP_ERROR", "HTTP request failed", 0, retryable, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewProviderError(providerName, "READ_ERROR", "Failed to read response", httpResp.StatusCode, true, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(httpResp.StatusCode, respBody)
	}
	return respBody, nil
}

// handleErrorResponse turns a non-200 reply into a ProviderError. Ollama
// reports failures as {"error": "..."}.
func handleErrorResponse(statusCode int, body []byte) error {
	retryable := statusCode >= 500 || statusCode == http.StatusTooManyRequests

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(statusCode)
		}
		return providers.NewProviderError(providerName, errorCode(statusCode), msg, statusCode, retryable, nil)
	}

	return providers.NewProviderError(
		providerName,
		errorCode(statusCode),
		errResp.Error,
		statusCode,
		retryable,
		errors.New(errResp.Error),
	)
}

func errorCode(statusCode int) string {
	switch {
	case statusCode == http.StatusNotFound:
		return "MODEL_NOT_FOUND"
	case statusCode == http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case statusCode >= 500:
		return "SERVER_ERROR"
	case statusCode >= 400:
		return "BAD_REQUEST"
	default:
		return fmt.Sprintf("HTTP_%d", statusCode)
	}
}

// Ollama wire types

type EmbedRequest struct {
	Model   string                 `json:"model"`
	Input   []string               `json:"input"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type EmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

type ChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ChatRequest struct {
	Model    string                 `json:"model"`
	Messages []ChatMessage          `json:"messages"`
	Options  map[string]interface{} `json:"options,omitempty"`
	Stream   bool                   `json:"stream"`
}

type ChatResponse struct {
	Model           string      `json:"model"`
	Message         ChatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason,omitempty"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

type GenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	System  string                 `json:"system,omitempty"`
	Images  []string               `json:"images,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
	Stream  bool                   `json:"stream"`
}

type GenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
