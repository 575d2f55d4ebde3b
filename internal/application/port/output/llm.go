package output

import (
	"context"

	"kosher/internal/domain/entity"
)

type LLMPort interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type ChatRequest struct {
	Messages    []entity.Message
	Tools       []entity.ToolDefinition
	// Temperature is sent as given; zero asks for deterministic sampling.
	Temperature float32
}

// ChatResponse carries one assistant message: either a non-empty list of
// structured tool calls or free text.
type ChatResponse struct {
	Message entity.Message
}
