package entity

import "strings"

type ToolName string

// The browser primitives a step may use. Anything else a tool server
// advertises is dropped.
const (
	ToolBrowserNavigate ToolName = "browser_navigate"
	ToolBrowserSnapshot ToolName = "browser_snapshot"
	ToolBrowserClick    ToolName = "browser_click"
	ToolBrowserType     ToolName = "browser_type"
	ToolBrowserPressKey ToolName = "browser_press_key"
	ToolBrowserWaitFor  ToolName = "browser_wait_for"
)

var allowedTools = []ToolName{
	ToolBrowserNavigate,
	ToolBrowserSnapshot,
	ToolBrowserClick,
	ToolBrowserType,
	ToolBrowserPressKey,
	ToolBrowserWaitFor,
}

func AllowedTools() []ToolName {
	out := make([]ToolName, len(allowedTools))
	copy(out, allowedTools)
	return out
}

// ParseToolName reports whether name is one of the allowed primitives.
// Matching is case-sensitive.
func ParseToolName(name string) (ToolName, bool) {
	for _, t := range allowedTools {
		if string(t) == name {
			return t, true
		}
	}
	return "", false
}

func (t ToolName) String() string {
	return string(t)
}

// ContentBlock is one block of a tool server response.
type ContentBlock interface {
	isContentBlock()
}

type TextBlock struct {
	Text string
}

// OpaqueBlock stands for any block that carries no text (images,
// resources, audio).
type OpaqueBlock struct {
	Kind string
}

func (TextBlock) isContentBlock()   {}
func (OpaqueBlock) isContentBlock() {}

// JoinText concatenates the text blocks in order, separated by newlines.
func JoinText(blocks []ContentBlock) string {
	var parts []string
	for _, b := range blocks {
		if tb, ok := b.(TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "\n")
}
