package output

import (
	"context"

	"kosher/internal/domain/entity"
)

// ToolCatalog exposes the allowlisted tools of a connected tool server.
type ToolCatalog interface {
	Schemas() []entity.ToolDefinition
}

// ToolInvoker issues a single tool call and returns its text result.
type ToolInvoker interface {
	Call(ctx context.Context, name string, args map[string]any) (string, error)
}

// ToolSession is one live connection to a tool server.
type ToolSession interface {
	ToolCatalog
	ToolInvoker
	Connect(ctx context.Context) error
	Close() error
}

// SessionFactory creates unconnected sessions; each benchmark iteration
// takes a fresh one.
type SessionFactory func() ToolSession
