package executor

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"kosher/internal/application/port/input"
	"kosher/internal/application/port/output"
	"kosher/internal/domain/conversation"
	"kosher/internal/domain/entity"
	"kosher/internal/usecase/evaluator"
)

var _ input.StepExecutor = (*UseCase)(nil)

const (
	// MaxRounds bounds the model exchanges spent on a single step.
	MaxRounds = 10

	RoundLimitText = "FAIL: max tool-call rounds exceeded"

	contentPreviewLen = 100
	resultPreviewLen  = 200
)

// UseCase drives one step through the model until it yields a verdict.
// Tool calls are dispatched one at a time, in the order the model
// requested them.
type UseCase struct {
	llm     output.LLMPort
	catalog output.ToolCatalog
	tools   output.ToolInvoker
	logger  output.LoggerPort
}

func New(
	llm output.LLMPort,
	catalog output.ToolCatalog,
	tools output.ToolInvoker,
	logger output.LoggerPort,
) *UseCase {
	return &UseCase{
		llm:     llm,
		catalog: catalog,
		tools:   tools,
		logger:  logger,
	}
}

// Execute appends step to conv and runs the round loop. The only errors
// returned are a failed model request and tool invocation faults other
// than an unknown tool name; everything else ends in an outcome.
func (uc *UseCase) Execute(ctx context.Context, step string, conv *conversation.State) (entity.StepOutcome, error) {
	conv.Append(entity.Message{Role: entity.RoleUser, Content: step})

	schemas := uc.catalog.Schemas()

	for round := 0; round < MaxRounds; round++ {
		resp, err := uc.llm.Chat(ctx, output.ChatRequest{
			Messages:    conv.Snapshot(),
			Tools:       schemas,
			Temperature: 0.0,
		})
		if err != nil {
			return entity.StepOutcome{}, fmt.Errorf("llm request failed: %w", err)
		}

		msg := resp.Message
		uc.logger.Debug("Model responded",
			"round", round+1,
			"toolCalls", len(msg.ToolCalls),
			"content", preview(msg.Content, contentPreviewLen),
		)

		if len(msg.ToolCalls) > 0 {
			msg.Role = entity.RoleAssistant
			conv.Append(msg)

			for _, tc := range msg.ToolCalls {
				if err := uc.dispatch(ctx, conv, tc); err != nil {
					return entity.StepOutcome{}, err
				}
			}
			continue
		}

		if tc, ok := ExtractToolCall(msg.Content); ok {
			uc.logger.Debug("Recovered tool call from text", "name", tc.Name)
			conv.Append(entity.Message{Role: entity.RoleAssistant, Content: msg.Content})

			if err := uc.dispatch(ctx, conv, tc); err != nil {
				return entity.StepOutcome{}, err
			}
			continue
		}

		conv.Append(entity.Message{Role: entity.RoleAssistant, Content: msg.Content})
		outcome := evaluator.Classify(msg.Content)
		uc.logger.Info("Step finished", "rounds", round+1, "success", outcome.Success)
		return outcome, nil
	}

	uc.logger.Warn("Round limit reached", "maxRounds", MaxRounds)
	return entity.StepOutcome{Text: RoundLimitText, Success: false}, nil
}

func (uc *UseCase) dispatch(ctx context.Context, conv *conversation.State, tc entity.ToolCall) error {
	uc.logger.Info("Executing tool", "name", tc.Name, "args", tc.Arguments)

	result, err := uc.tools.Call(ctx, tc.Name, tc.Arguments)
	if err != nil {
		if !errors.Is(err, entity.ErrUnknownTool) {
			uc.logger.Error("Tool execution failed", "name", tc.Name, "error", err)
			return fmt.Errorf("tool %s: %w", tc.Name, err)
		}
		uc.logger.Warn("Unknown tool called", "name", tc.Name)
		result = fmt.Sprintf("Error: unknown tool '%s'", tc.Name)
	}

	uc.logger.Debug("Tool completed", "name", tc.Name, "result", preview(result, resultPreviewLen))

	conv.Append(entity.Message{
		Role:       entity.RoleTool,
		Content:    result,
		ToolName:   tc.Name,
		ToolCallID: tc.ID,
	})
	return nil
}

// preview cuts s to at most n bytes without splitting a UTF-8 sequence.
func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
