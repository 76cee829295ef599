package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/upb/retrieval-plane/config"
	"github.com/upb/retrieval-plane/models"
	"github.com/upb/retrieval-plane/services/providers"
)

// API types a model can be served through.
const (
	APITypeChat     = "chat"
	APITypeGenerate = "generate"
)

// modelInfo derives capability metadata from a definition. Only chat
// models keep conversation state.
func modelInfo(def config.ModelDefinition) providers.ModelInfo {
	return providers.ModelInfo{
		Label: "Ollama - " + def.Name,
		Supports: providers.ModelSupports{
			Multiturn:  apiType(def) == APITypeChat,
			SystemRole: true,
		},
	}
}

func apiType(def config.ModelDefinition) string {
	if def.APIType == "" {
		return APITypeChat
	}
	return def.APIType
}

// newModelFunc binds a model definition to the client.
func newModelFunc(client *Client, def config.ModelDefinition) providers.ModelFunc {
	switch apiType(def) {
	case APITypeGenerate:
		return func(ctx context.Context, req *providers.GenerateRequest) (*providers.GenerateResponse, error) {
			return generate(ctx, client, def.Name, req)
		}
	default:
		return func(ctx context.Context, req *providers.GenerateRequest) (*providers.GenerateResponse, error) {
			return chat(ctx, client, def.Name, req)
		}
	}
}

func chat(ctx context.Context, client *Client, model string, req *providers.GenerateRequest) (*providers.GenerateResponse, error) {
	messages := make([]ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role, err := chatRole(m.Role)
		if err != nil {
			return nil, err
		}
		messages = append(messages, ChatMessage{
			Role:    role,
			Content: m.Text(),
			Images:  mediaURLs(m.Content),
		})
	}

	resp, err := client.Chat(ctx, &ChatRequest{
		Model:    model,
		Messages: messages,
		Options:  buildOptions(req.Config),
	})
	if err != nil {
		return nil, err
	}

	content := []models.Part{}
	if resp.Message.Content != "" {
		content = append(content, models.TextPart(resp.Message.Content))
	}
	for _, image := range resp.Message.Images {
		content = append(content, models.Part{Media: &models.Media{URL: image}})
	}

	return &providers.GenerateResponse{
		Message:      providers.Message{Role: providers.RoleModel, Content: content},
		FinishReason: finishReason(resp.DoneReason),
		Usage:        usage(resp.PromptEvalCount, resp.EvalCount),
	}, nil
}

func generate(ctx context.Context, client *Client, model string, req *providers.GenerateRequest) (*providers.GenerateResponse, error) {
	var prompt, system strings.Builder
	var images []string
	for _, m := range req.Messages {
		if m.Role == providers.RoleSystem {
			system.WriteString(m.Text())
			continue
		}
		prompt.WriteString(m.Text())
		images = append(images, mediaURLs(m.Content)...)
	}

	resp, err := client.Generate(ctx, &GenerateRequest{
		Model:   model,
		Prompt:  prompt.String(),
		System:  system.String(),
		Images:  images,
		Options: buildOptions(req.Config),
	})
	if err != nil {
		return nil, err
	}

	return &providers.GenerateResponse{
		Message: providers.Message{
			Role:    providers.RoleModel,
			Content: []models.Part{models.TextPart(resp.Response)},
		},
		FinishReason: finishReason(resp.DoneReason),
		Usage:        usage(resp.PromptEvalCount, resp.EvalCount),
	}, nil
}

func chatRole(role providers.Role) (string, error) {
	switch role {
	case providers.RoleUser:
		return "user", nil
	case providers.RoleModel:
		return "assistant", nil
	case providers.RoleSystem:
		return "system", nil
	case providers.RoleTool:
		return "tool", nil
	default:
		return "", providers.NewProviderError(providerName, "INVALID_ROLE",
			fmt.Sprintf("unsupported message role %q", role), 400, false, nil)
	}
}

func mediaURLs(parts []models.Part) []string {
	var urls []string
	for _, p := range parts {
		if p.Media != nil {
			urls = append(urls, p.Media.URL)
		}
	}
	return urls
}

// buildOptions maps the common generation config onto Ollama's option names.
func buildOptions(cfg providers.GenerationConfig) map[string]interface{} {
	opts := make(map[string]interface{})
	if cfg.Temperature != nil {
		opts["temperature"] = *cfg.Temperature
	}
	if cfg.TopK != nil {
		opts["top_k"] = *cfg.TopK
	}
	if cfg.TopP != nil {
		opts["top_p"] = *cfg.TopP
	}
	if cfg.MaxOutputTokens != nil {
		opts["num_predict"] = *cfg.MaxOutputTokens
	}
	if len(cfg.StopSequences) > 0 {
		opts["stop"] = cfg.StopSequences
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

func finishReason(doneReason string) string {
	switch doneReason {
	case "", "stop":
		return "stop"
	case "length":
		return "length"
	default:
		return "other"
	}
}

func usage(prompt, completion int) providers.Usage {
	return providers.Usage{
		InputTokens:  prompt,
		OutputTokens: completion,
		TotalTokens:  prompt + completion,
	}
}
