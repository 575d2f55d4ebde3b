package conversation

import (
	"testing"

	"kosher/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SeedsSystemPrompt(t *testing.T) {
	s := New("be a browser agent")

	require.Equal(t, 1, s.Len())
	msg, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, entity.RoleSystem, msg.Role)
	assert.Equal(t, "be a browser agent", msg.Content)
}

func TestNew_EmptyPrompt(t *testing.T) {
	s := New("")

	assert.Equal(t, 0, s.Len())
	_, ok := s.Last()
	assert.False(t, ok)
}

func TestAppend_PreservesOrder(t *testing.T) {
	s := New("")
	s.Append(entity.Message{Role: entity.RoleUser, Content: "one"})
	s.Append(entity.Message{Role: entity.RoleAssistant, Content: "two"})
	s.Append(entity.Message{Role: entity.RoleTool, Content: "three", ToolName: "browser_snapshot"})

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "one", snap[0].Content)
	assert.Equal(t, "two", snap[1].Content)
	assert.Equal(t, "browser_snapshot", snap[2].ToolName)
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := New("")
	s.Append(entity.Message{Role: entity.RoleUser, Content: "original"})

	snap := s.Snapshot()
	snap[0].Content = "changed"
	_ = append(snap, entity.Message{Role: entity.RoleUser, Content: "extra"})

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "original", s.Snapshot()[0].Content)
}

func TestAppend_CopiesToolCalls(t *testing.T) {
	s := New("")
	calls := []entity.ToolCall{{ID: "1", Name: "browser_click"}}
	s.Append(entity.Message{Role: entity.RoleAssistant, ToolCalls: calls})

	calls[0].Name = "browser_type"

	last, _ := s.Last()
	assert.Equal(t, "browser_click", last.ToolCalls[0].Name)
}
