package langchain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"kosher/internal/application/port/output"
	"kosher/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var _ output.LLMPort = (*Adapter)(nil)

const DefaultServerURL = "http://localhost:11434"

// Adapter drives any langchaingo model. The default backend talks to
// Ollama through its OpenAI-compatible API, the one that carries tools.
type Adapter struct {
	model  llms.Model
	logger output.LoggerPort
}

type Config struct {
	Model string
	// ServerURL is the Ollama root or its /v1 endpoint.
	ServerURL string
	// APIKey is ignored by Ollama but required by the client.
	APIKey string
	Logger output.LoggerPort
}

func NewAdapter(model llms.Model, logger output.LoggerPort) *Adapter {
	return &Adapter{model: model, logger: logger}
}

func NewOllama(cfg Config) (*Adapter, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "ollama"
	}
	llm, err := openai.New(
		openai.WithModel(cfg.Model),
		openai.WithBaseURL(endpoint(cfg.ServerURL)),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return NewAdapter(llm, cfg.Logger), nil
}

func endpoint(serverURL string) string {
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	serverURL = strings.TrimRight(serverURL, "/")
	if !strings.HasSuffix(serverURL, "/v1") {
		serverURL += "/v1"
	}
	return serverURL
}

func (a *Adapter) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	messages, err := convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	opts := []llms.CallOption{llms.WithTemperature(float64(req.Temperature))}
	if tools := convertTools(req.Tools); len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
	}

	resp, err := a.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("generate content failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return &output.ChatResponse{Message: a.convertChoice(resp.Choices[0])}, nil
}

func convertMessages(messages []entity.Message) ([]llms.MessageContent, error) {
	result := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case entity.RoleSystem:
			result = append(result, llms.TextParts(llms.ChatMessageTypeSystem, msg.Content))
		case entity.RoleUser:
			result = append(result, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		case entity.RoleAssistant:
			content := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if msg.Content != "" {
				content.Parts = append(content.Parts, llms.TextContent{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				args, err := json.Marshal(nonNilArgs(tc.Arguments))
				if err != nil {
					return nil, fmt.Errorf("encode arguments of %s: %w", tc.Name, err)
				}
				content.Parts = append(content.Parts, llms.ToolCall{
					ID:   tc.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			result = append(result, content)
		case entity.RoleTool:
			if msg.ToolCallID == "" {
				result = append(result, llms.TextParts(llms.ChatMessageTypeHuman,
					fmt.Sprintf("Result of %s:\n%s", msg.ToolName, msg.Content)))
				continue
			}
			result = append(result, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: msg.ToolCallID,
					Name:       msg.ToolName,
					Content:    msg.Content,
				}},
			})
		default:
			return nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	return result, nil
}

func convertTools(tools []entity.ToolDefinition) []llms.Tool {
	result := make([]llms.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return result
}

func (a *Adapter) convertChoice(choice *llms.ContentChoice) entity.Message {
	msg := entity.Message{
		Role:    entity.RoleAssistant,
		Content: choice.Content,
	}

	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		args := map[string]any{}
		if tc.FunctionCall.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &args); err != nil || args == nil {
				if a.logger != nil {
					a.logger.Warn("Tool call arguments are not a JSON object", "name", tc.FunctionCall.Name, "error", err)
				}
				args = map[string]any{}
			}
		}
		msg.ToolCalls = append(msg.ToolCalls, entity.ToolCall{
			ID:        id,
			Name:      tc.FunctionCall.Name,
			Arguments: args,
		})
	}

	return msg
}

func nonNilArgs(args map[string]any) map[string]any {
	if args == nil {
		return map[string]any{}
	}
	return args
}
