package tool_test

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"kosher/internal/adapter/tool"
	"kosher/internal/application/port/output"
	"kosher/internal/domain/conversation"
	"kosher/internal/domain/entity"
	"kosher/internal/infrastructure/browser/rod"
	"kosher/internal/infrastructure/logger"
	"kosher/internal/infrastructure/mcp"
	"kosher/internal/infrastructure/pageserver"
	"kosher/internal/usecase/executor"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reactiveLLM plays the model one turn at a time; each turn sees the
// latest message of the conversation.
type reactiveLLM struct {
	turns []func(last entity.Message) entity.Message
}

func (r *reactiveLLM) Chat(_ context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	if len(r.turns) == 0 {
		return &output.ChatResponse{Message: entity.Message{Content: "FAIL: script exhausted"}}, nil
	}
	turn := r.turns[0]
	r.turns = r.turns[1:]
	return &output.ChatResponse{Message: turn(req.Messages[len(req.Messages)-1])}, nil
}

func call(name entity.ToolName, args map[string]any) entity.Message {
	return entity.Message{
		Role:      entity.RoleAssistant,
		ToolCalls: []entity.ToolCall{{ID: "call_" + string(name), Name: string(name), Arguments: args}},
	}
}

func reply(text string) func(entity.Message) entity.Message {
	return func(entity.Message) entity.Message { return entity.Message{Content: text} }
}

func refOf(snapshot, role, name string) string {
	re := regexp.MustCompile(fmt.Sprintf(`%s "%s" \[ref=(e\d+)\]`, role, regexp.QuoteMeta(name)))
	m := re.FindStringSubmatch(snapshot)
	if m == nil {
		return ""
	}
	return m[1]
}

func setup(t *testing.T) (*mcp.Client, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping browser test in short mode")
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	log := logger.NewNop()

	fixture, err := pageserver.Start(ctx, pageserver.Config{Addr: "127.0.0.1:0"}, log)
	require.NoError(t, err)

	cfg := rod.DefaultConfig()
	cfg.Headless = true
	cfg.NoSandbox = true
	cfg.SlowMotion = 0
	browser, err := rod.NewBrowserAdapter(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(browser.Close)

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	serverSession, err := tool.NewServer(tool.All(browser), log, "test").Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(mcp.Config{Transport: clientTransport}, log)
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(func() { _ = client.Close() })

	return client, fixture.PageURL()
}

func TestEndToEnd_LoginFlow(t *testing.T) {
	client, pageURL := setup(t)

	var snapshot string
	ref := func(role, name string) string { return refOf(snapshot, role, name) }

	llm := &reactiveLLM{turns: []func(entity.Message) entity.Message{
		func(entity.Message) entity.Message {
			return call(entity.ToolBrowserNavigate, map[string]any{"url": pageURL})
		},
		reply("PASS: page opened"),

		func(entity.Message) entity.Message { return call(entity.ToolBrowserSnapshot, nil) },
		func(last entity.Message) entity.Message {
			snapshot = last.Content
			return call(entity.ToolBrowserType, map[string]any{
				"element": "Email", "ref": ref("textbox", "Email"), "text": "user@example.com",
			})
		},
		func(entity.Message) entity.Message {
			return call(entity.ToolBrowserType, map[string]any{
				"element": "Password", "ref": ref("textbox", "Password"), "text": "secret",
			})
		},
		func(entity.Message) entity.Message {
			return call(entity.ToolBrowserClick, map[string]any{"element": "Login", "ref": ref("button", "Login")})
		},
		func(entity.Message) entity.Message {
			return call(entity.ToolBrowserWaitFor, map[string]any{"text": "Welcome"})
		},
		func(last entity.Message) entity.Message {
			if strings.HasPrefix(last.Content, "Error:") {
				return entity.Message{Content: "FAIL: " + last.Content}
			}
			return entity.Message{Content: "PASS: logged in"}
		},
	}}

	exec := executor.New(llm, client, client, logger.NewNop())
	conv := conversation.New("system")

	outcome, err := exec.Execute(context.Background(), "Given I open the login page", conv)
	require.NoError(t, err)
	assert.True(t, outcome.Success, outcome.Text)

	outcome, err = exec.Execute(context.Background(), "When I log in as user@example.com", conv)
	require.NoError(t, err)
	require.True(t, outcome.Success, outcome.Text)

	assert.NotEmpty(t, ref("textbox", "Email"))
	assert.NotEmpty(t, ref("button", "Login"))

	after, err := client.Call(context.Background(), string(entity.ToolBrowserSnapshot), nil)
	require.NoError(t, err)
	assert.Contains(t, after, "Welcome, user@example.com")
	assert.NotContains(t, after, `button "Login"`)
}

func TestEndToEnd_UnknownRefReportsError(t *testing.T) {
	client, pageURL := setup(t)

	_, err := client.Call(context.Background(), string(entity.ToolBrowserNavigate), map[string]any{"url": pageURL})
	require.NoError(t, err)

	text, err := client.Call(context.Background(), string(entity.ToolBrowserClick), map[string]any{"element": "Nothing", "ref": "e999"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Error:"), text)
}
