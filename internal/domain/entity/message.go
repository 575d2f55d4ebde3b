package entity

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Message is one entry of a conversation. Messages are never mutated once
// appended to a conversation.
type Message struct {
	Role       MessageRole
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	// ToolName tags a tool-role message with the tool that produced it.
	ToolName string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}
