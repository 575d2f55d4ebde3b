// Package mcp connects to a browser tool server over the Model Context
// Protocol and exposes its allowlisted tools to the step executor.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"kosher/internal/application/port/output"
	"kosher/internal/application/service"
	"kosher/internal/domain/entity"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

var _ output.ToolSession = (*Client)(nil)

const (
	clientName    = "kosher"
	clientVersion = "0.1.0"

	DefaultCommand = "npx @playwright/mcp@latest"
)

type Config struct {
	// Command is split on whitespace; the first field is the executable.
	Command string
	// Stderr receives the server's stderr. Nil discards it.
	Stderr io.Writer
	// Transport, when set, is used instead of spawning Command.
	Transport mcpsdk.Transport
}

func DefaultConfig() Config {
	return Config{Command: DefaultCommand}
}

// Client owns one session with a tool server and the process behind it.
// It is the tool catalog and the tool invoker of a single scenario run.
type Client struct {
	cfg      Config
	logger   output.LoggerPort
	session  *mcpsdk.ClientSession
	registry *service.ToolRegistry
}

func NewClient(cfg Config, logger output.LoggerPort) *Client {
	return &Client{
		cfg:      cfg,
		logger:   logger,
		registry: service.NewToolRegistry(),
	}
}

// Connect spawns the server, completes the initialize handshake and
// fetches the tool list once. On failure everything acquired so far is
// released and the error wraps entity.ErrConnection.
func (c *Client) Connect(ctx context.Context) error {
	if c.session != nil {
		return nil
	}

	transport, err := c.transport()
	if err != nil {
		return fmt.Errorf("%w: %w", entity.ErrConnection, err)
	}

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: clientName, Version: clientVersion}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("%w: handshake: %w", entity.ErrConnection, err)
	}

	registry := service.NewToolRegistry()
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return fmt.Errorf("%w: list tools: %w", entity.ErrConnection, err)
		}
		if tool == nil {
			continue
		}
		if !registry.Register(toDefinition(tool)) {
			c.logger.Debug("Dropping tool outside allowlist", "name", tool.Name)
		}
	}

	c.session = session
	c.registry = registry
	c.logger.Info("Connected to tool server", "tools", registry.Len())
	return nil
}

func (c *Client) Schemas() []entity.ToolDefinition {
	return c.registry.Definitions()
}

// Call invokes one tool and returns the newline-joined text of its result.
// A result the server flags as an error is still returned as text.
func (c *Client) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	if c.session == nil {
		return "", entity.ErrNotConnected
	}
	if _, ok := c.registry.Get(name); !ok {
		return "", fmt.Errorf("%w: %s", entity.ErrUnknownTool, name)
	}
	if args == nil {
		args = map[string]any{}
	}

	res, err := c.session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("%w: call %s: %w", entity.ErrTransport, name, err)
	}
	if res == nil {
		return "", fmt.Errorf("%w: call %s: empty result", entity.ErrTransport, name)
	}
	if res.IsError {
		c.logger.Warn("Tool reported an error", "name", name)
	}

	return entity.JoinText(contentBlocks(res.Content)), nil
}

// Close ends the session and with it the spawned server. It is safe to call
// more than once and on a client that never connected.
func (c *Client) Close() error {
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

func (c *Client) transport() (mcpsdk.Transport, error) {
	if c.cfg.Transport != nil {
		return c.cfg.Transport, nil
	}
	parts := strings.Fields(c.cfg.Command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("tool server command is empty")
	}
	cmd := exec.Command(parts[0], parts[1:]...) // #nosec G204 -- operator supplied
	if c.cfg.Stderr != nil {
		cmd.Stderr = c.cfg.Stderr
	}
	return &mcpsdk.CommandTransport{Command: cmd}, nil
}

func toDefinition(tool *mcpsdk.Tool) entity.ToolDefinition {
	return entity.ToolDefinition{
		Name:        tool.Name,
		Description: tool.Description,
		Parameters:  schemaMap(tool.InputSchema),
	}
}

// schemaMap normalises whatever the SDK decoded the input schema into.
func schemaMap(raw any) map[string]any {
	switch v := raw.(type) {
	case nil:
		return map[string]any{"type": "object"}
	case map[string]any:
		return v
	}

	var data []byte
	switch v := raw.(type) {
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return map[string]any{"type": "object"}
		}
	}

	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil || schema == nil {
		return map[string]any{"type": "object"}
	}
	return schema
}

func contentBlocks(content []mcpsdk.Content) []entity.ContentBlock {
	blocks := make([]entity.ContentBlock, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case *mcpsdk.TextContent:
			blocks = append(blocks, entity.TextBlock{Text: v.Text})
		case *mcpsdk.ImageContent:
			blocks = append(blocks, entity.OpaqueBlock{Kind: "image"})
		case *mcpsdk.AudioContent:
			blocks = append(blocks, entity.OpaqueBlock{Kind: "audio"})
		default:
			blocks = append(blocks, entity.OpaqueBlock{Kind: fmt.Sprintf("%T", c)})
		}
	}
	return blocks
}
