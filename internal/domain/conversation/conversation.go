// Package conversation holds the message history shared by the steps of
// one scenario run.
package conversation

import "kosher/internal/domain/entity"

// State is an append-only message sequence. It is owned by a single
// scenario run and must not be used by two step executions at once.
type State struct {
	messages []entity.Message
}

// New returns a state seeded with a system message, or an empty state when
// systemPrompt is empty.
func New(systemPrompt string) *State {
	s := &State{}
	if systemPrompt != "" {
		s.Append(entity.Message{Role: entity.RoleSystem, Content: systemPrompt})
	}
	return s
}

func (s *State) Append(msg entity.Message) {
	if len(msg.ToolCalls) > 0 {
		calls := make([]entity.ToolCall, len(msg.ToolCalls))
		copy(calls, msg.ToolCalls)
		msg.ToolCalls = calls
	}
	s.messages = append(s.messages, msg)
}

// Snapshot returns a copy of the history suitable as model input.
func (s *State) Snapshot() []entity.Message {
	out := make([]entity.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *State) Len() int {
	return len(s.messages)
}

// Last returns the most recent message.
func (s *State) Last() (entity.Message, bool) {
	if len(s.messages) == 0 {
		return entity.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}
