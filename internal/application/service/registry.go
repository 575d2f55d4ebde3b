package service

import (
	"kosher/internal/domain/entity"
)

// ToolRegistry keeps the definitions of allowlisted tools in the order they
// were registered. It is filled once per connection and read afterwards.
type ToolRegistry struct {
	order []entity.ToolName
	tools map[entity.ToolName]entity.ToolDefinition
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[entity.ToolName]entity.ToolDefinition),
	}
}

// Register stores def if its name is allowlisted and reports whether it was
// kept. A second definition with the same name replaces the first.
func (r *ToolRegistry) Register(def entity.ToolDefinition) bool {
	name, ok := entity.ParseToolName(def.Name)
	if !ok {
		return false
	}
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = def
	return true
}

func (r *ToolRegistry) Get(name string) (entity.ToolDefinition, bool) {
	tn, ok := entity.ParseToolName(name)
	if !ok {
		return entity.ToolDefinition{}, false
	}
	def, ok := r.tools[tn]
	return def, ok
}

func (r *ToolRegistry) Len() int {
	return len(r.order)
}

func (r *ToolRegistry) Definitions() []entity.ToolDefinition {
	result := make([]entity.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.tools[name])
	}
	return result
}
