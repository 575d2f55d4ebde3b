package tool

import (
	"context"
	"time"

	"kosher/internal/application/port/output"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

const ServerName = "kosher-browser"

// NewServer exposes tools over MCP. Tool failures are returned as results
// with IsError set so the calling model can read them.
func NewServer(tools []Tool, logger output.LoggerPort, version string) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: ServerName, Version: version}, nil)
	for _, t := range tools {
		server.AddTool(&mcpsdk.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Parameters(),
		}, handler(t, logger))
	}
	return server
}

func handler(t Tool, logger output.LoggerPort) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		start := time.Now()
		result, err := t.Execute(ctx, req.Params.Arguments)
		if err != nil {
			logger.Warn("Tool failed", "name", t.Name(), "error", err, "duration", time.Since(start))
			return &mcpsdk.CallToolResult{
				IsError: true,
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "Error: " + err.Error()}},
			}, nil
		}

		logger.Debug("Tool executed", "name", t.Name(), "duration", time.Since(start))

		content := []mcpsdk.Content{&mcpsdk.TextContent{Text: result.Text}}
		if len(result.Image) > 0 {
			content = append(content, &mcpsdk.ImageContent{Data: result.Image, MIMEType: result.ImageMIME})
		}
		return &mcpsdk.CallToolResult{Content: content}, nil
	}
}
