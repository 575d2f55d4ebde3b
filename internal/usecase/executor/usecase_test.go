package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"kosher/internal/application/port/output"
	"kosher/internal/domain/conversation"
	"kosher/internal/domain/entity"
	"kosher/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedLLM struct {
	responses []entity.Message
	// fallback is returned once responses run out.
	fallback *entity.Message
	requests []output.ChatRequest
	err      error
}

func (s *scriptedLLM) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		if s.fallback == nil {
			return nil, errors.New("script exhausted")
		}
		return &output.ChatResponse{Message: *s.fallback}, nil
	}
	msg := s.responses[0]
	s.responses = s.responses[1:]
	return &output.ChatResponse{Message: msg}, nil
}

type invocation struct {
	name string
	args map[string]any
}

type fakeTools struct {
	schemas []entity.ToolDefinition
	results map[string]string
	errs    map[string]error
	calls   []invocation
}

func (f *fakeTools) Schemas() []entity.ToolDefinition { return f.schemas }

func (f *fakeTools) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	f.calls = append(f.calls, invocation{name: name, args: args})
	if err, ok := f.errs[name]; ok {
		return "", err
	}
	return f.results[name], nil
}

func newTools() *fakeTools {
	return &fakeTools{
		schemas: []entity.ToolDefinition{
			{Name: "browser_navigate", Parameters: map[string]any{"type": "object"}},
			{Name: "browser_snapshot", Parameters: map[string]any{"type": "object"}},
		},
		results: map[string]string{
			"browser_navigate": "Navigated",
			"browser_snapshot": `- button "Login" [ref=e3]`,
			"browser_click":    "Clicked",
		},
	}
}

func text(s string) entity.Message {
	return entity.Message{Role: entity.RoleAssistant, Content: s}
}

func calls(tcs ...entity.ToolCall) entity.Message {
	return entity.Message{Role: entity.RoleAssistant, ToolCalls: tcs}
}

func newUseCase(llm output.LLMPort, tools *fakeTools) *UseCase {
	return New(llm, tools, tools, logger.NewNop())
}

func TestExecute_TerminalTextPasses(t *testing.T) {
	llm := &scriptedLLM{responses: []entity.Message{text("DONE")}}
	tools := newTools()
	conv := conversation.New("system")

	outcome, err := newUseCase(llm, tools).Execute(context.Background(), "When I do nothing", conv)

	require.NoError(t, err)
	assert.Equal(t, entity.StepOutcome{Text: "DONE", Success: true}, outcome)
	assert.Empty(t, tools.calls)

	msgs := conv.Snapshot()
	require.Len(t, msgs, 3)
	assert.Equal(t, entity.RoleUser, msgs[1].Role)
	assert.Equal(t, "When I do nothing", msgs[1].Content)
	assert.Equal(t, entity.RoleAssistant, msgs[2].Role)
	assert.Equal(t, "DONE", msgs[2].Content)

	require.Len(t, llm.requests, 1)
	assert.Zero(t, llm.requests[0].Temperature)
	assert.Len(t, llm.requests[0].Tools, 2)
}

func TestExecute_FailVerdictAnyCase(t *testing.T) {
	for _, verdict := range []string{"FAIL: no Welcome", "fail", "Fail - missing"} {
		llm := &scriptedLLM{responses: []entity.Message{text(verdict)}}

		outcome, err := newUseCase(llm, newTools()).Execute(context.Background(), "Then I see Welcome", conversation.New(""))

		require.NoError(t, err)
		assert.False(t, outcome.Success, verdict)
		assert.Equal(t, verdict, outcome.Text)
	}
}

func TestExecute_StructuredToolCallThenDone(t *testing.T) {
	llm := &scriptedLLM{responses: []entity.Message{
		calls(entity.ToolCall{ID: "call_1", Name: "browser_navigate", Arguments: map[string]any{"url": "http://127.0.0.1:8765/test_page.html"}}),
		text("DONE"),
	}}
	tools := newTools()
	conv := conversation.New("")

	outcome, err := newUseCase(llm, tools).Execute(context.Background(), "Given I am on the test page", conv)

	require.NoError(t, err)
	assert.Equal(t, entity.StepOutcome{Text: "DONE", Success: true}, outcome)
	require.Len(t, tools.calls, 1)
	assert.Equal(t, "browser_navigate", tools.calls[0].name)
	assert.Equal(t, "http://127.0.0.1:8765/test_page.html", tools.calls[0].args["url"])

	msgs := conv.Snapshot()
	require.Len(t, msgs, 4)
	assert.Equal(t, entity.RoleUser, msgs[0].Role)
	assert.Equal(t, entity.RoleAssistant, msgs[1].Role)
	assert.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, entity.RoleTool, msgs[2].Role)
	assert.Equal(t, "Navigated", msgs[2].Content)
	assert.Equal(t, "browser_navigate", msgs[2].ToolName)
	assert.Equal(t, "call_1", msgs[2].ToolCallID)
	assert.Equal(t, "DONE", msgs[3].Content)

	require.Len(t, llm.requests, 2)
	assert.Len(t, llm.requests[0].Tools, 2)
	assert.Len(t, llm.requests[1].Messages, 3, "second request sees the tool result")
}

func TestExecute_MultipleCallsRunInOrder(t *testing.T) {
	llm := &scriptedLLM{responses: []entity.Message{
		calls(
			entity.ToolCall{Name: "browser_snapshot"},
			entity.ToolCall{Name: "browser_click", Arguments: map[string]any{"ref": "e3"}},
			entity.ToolCall{Name: "browser_snapshot"},
		),
		text("DONE"),
	}}
	tools := newTools()
	conv := conversation.New("")

	_, err := newUseCase(llm, tools).Execute(context.Background(), "When I click Login", conv)

	require.NoError(t, err)
	require.Len(t, tools.calls, 3)
	assert.Equal(t, "browser_snapshot", tools.calls[0].name)
	assert.Equal(t, "browser_click", tools.calls[1].name)
	assert.Equal(t, "browser_snapshot", tools.calls[2].name)

	msgs := conv.Snapshot()
	// user, assistant, 3 tool results, final text
	require.Len(t, msgs, 6)
	assert.Equal(t, "browser_click", msgs[3].ToolName)
}

func TestExecute_FallbackTextToolCall(t *testing.T) {
	llm := &scriptedLLM{responses: []entity.Message{
		text("```json\n{\"name\":\"browser_click\",\"arguments\":{\"ref\":\"e3\"}}\n```"),
		text("DONE"),
	}}
	tools := newTools()
	conv := conversation.New("")

	outcome, err := newUseCase(llm, tools).Execute(context.Background(), "When I click Login", conv)

	require.NoError(t, err)
	assert.True(t, outcome.Success)
	require.Len(t, tools.calls, 1)
	assert.Equal(t, "browser_click", tools.calls[0].name)
	assert.Equal(t, map[string]any{"ref": "e3"}, tools.calls[0].args)

	msgs := conv.Snapshot()
	require.Len(t, msgs, 4)
	assert.Equal(t, entity.RoleAssistant, msgs[1].Role)
	assert.Empty(t, msgs[1].ToolCalls)
	assert.Equal(t, entity.RoleTool, msgs[2].Role)
	assert.Equal(t, "Clicked", msgs[2].Content)
	assert.Equal(t, "browser_click", msgs[2].ToolName)
}

func TestExecute_RoundLimit(t *testing.T) {
	loop := calls(entity.ToolCall{Name: "browser_snapshot"})
	llm := &scriptedLLM{fallback: &loop}
	tools := newTools()
	conv := conversation.New("")

	outcome, err := newUseCase(llm, tools).Execute(context.Background(), "When I loop forever", conv)

	require.NoError(t, err)
	assert.Equal(t, entity.StepOutcome{Text: "FAIL: max tool-call rounds exceeded", Success: false}, outcome)
	assert.Len(t, llm.requests, MaxRounds)
	assert.Len(t, tools.calls, MaxRounds)
	assert.Equal(t, 1+2*MaxRounds, conv.Len())
}

func TestExecute_RoundLimitWithFallbackCalls(t *testing.T) {
	loop := text(`{"name":"browser_snapshot","arguments":{}}`)
	llm := &scriptedLLM{fallback: &loop}

	outcome, err := newUseCase(llm, newTools()).Execute(context.Background(), "When I loop", conversation.New(""))

	require.NoError(t, err)
	assert.Equal(t, RoundLimitText, outcome.Text)
	assert.False(t, outcome.Success)
	assert.Len(t, llm.requests, MaxRounds)
}

func TestExecute_HistoryGrowsEveryRound(t *testing.T) {
	llm := &scriptedLLM{responses: []entity.Message{
		calls(entity.ToolCall{Name: "browser_snapshot"}),
		text(`{"name":"browser_click","arguments":{"ref":"e1"}}`),
		calls(entity.ToolCall{Name: "browser_snapshot"}),
		text("PASS"),
	}}
	conv := conversation.New("")

	_, err := newUseCase(llm, newTools()).Execute(context.Background(), "Then I see it", conv)
	require.NoError(t, err)

	prev := 0
	for i, req := range llm.requests {
		assert.Greater(t, len(req.Messages), prev, "round %d", i+1)
		prev = len(req.Messages)
	}
	assert.Greater(t, conv.Len(), prev)
}

func TestExecute_RoundCounterResetsPerStep(t *testing.T) {
	loop := calls(entity.ToolCall{Name: "browser_snapshot"})
	responses := make([]entity.Message, 0, MaxRounds)
	for i := 0; i < MaxRounds-1; i++ {
		responses = append(responses, loop)
	}
	responses = append(responses, text("DONE"))
	responses = append(responses, responses...)

	llm := &scriptedLLM{responses: responses}
	uc := newUseCase(llm, newTools())
	conv := conversation.New("")

	for _, step := range []string{"When first", "When second"} {
		outcome, err := uc.Execute(context.Background(), step, conv)
		require.NoError(t, err)
		assert.Equal(t, "DONE", outcome.Text, step)
	}
	assert.Len(t, llm.requests, 2*MaxRounds)
}

func TestExecute_UnknownToolIsReportedToModel(t *testing.T) {
	llm := &scriptedLLM{responses: []entity.Message{
		calls(entity.ToolCall{Name: "browser_resize"}),
		text("DONE"),
	}}
	tools := newTools()
	tools.errs = map[string]error{"browser_resize": fmt.Errorf("%w: browser_resize", entity.ErrUnknownTool)}
	conv := conversation.New("")

	outcome, err := newUseCase(llm, tools).Execute(context.Background(), "When I resize", conv)

	require.NoError(t, err)
	assert.True(t, outcome.Success)
	msgs := conv.Snapshot()
	assert.Equal(t, "Error: unknown tool 'browser_resize'", msgs[2].Content)
}

func TestExecute_PreconditionViolationPropagates(t *testing.T) {
	llm := &scriptedLLM{responses: []entity.Message{
		calls(entity.ToolCall{Name: "browser_navigate"}),
	}}
	tools := newTools()
	tools.errs = map[string]error{"browser_navigate": entity.ErrNotConnected}

	_, err := newUseCase(llm, tools).Execute(context.Background(), "Given I am on the page", conversation.New(""))

	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrNotConnected)
}

func TestExecute_TransportFailurePropagates(t *testing.T) {
	llm := &scriptedLLM{responses: []entity.Message{
		text(`{"name":"browser_snapshot","arguments":{}}`),
	}}
	tools := newTools()
	tools.errs = map[string]error{"browser_snapshot": fmt.Errorf("%w: EOF", entity.ErrTransport)}

	_, err := newUseCase(llm, tools).Execute(context.Background(), "Then I see it", conversation.New(""))

	assert.ErrorIs(t, err, entity.ErrTransport)
}

func TestExecute_ModelErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	llm := &scriptedLLM{err: boom}
	conv := conversation.New("")

	_, err := newUseCase(llm, newTools()).Execute(context.Background(), "Given anything", conv)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, conv.Len(), "step text is recorded before the first request")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short", 10))
	assert.Equal(t, "abc...", preview("abcdef", 3))

	// "é" is two bytes; a cut at byte 2 would split it.
	got := preview("aéb", 2)
	assert.Equal(t, "a...", got)
	assert.True(t, utf8.ValidString(got))

	got = preview(strings.Repeat("ж", 80), 100)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("ж", 50)+"...", got)
}
