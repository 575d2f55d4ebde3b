package prompts

import (
	"bytes"
	"sort"
	"text/template"

	"kosher/internal/domain/entity"
)

type ParamInfo struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

type ToolInfo struct {
	Name        string
	Description string
	Params      []ParamInfo
}

type SystemPromptData struct {
	Tools        []ToolInfo
	NavigateTool string
	SnapshotTool string
	// RefParam is the argument that carries a snapshot ref. Playwright
	// servers have called it both "ref" and "element", so it is read from
	// the declared schema.
	RefParam      string
	DescribeParam string
}

// GenerateSystemPrompt renders baseTemplate against the tool definitions
// the connected server declared.
func GenerateSystemPrompt(baseTemplate string, defs []entity.ToolDefinition) (string, error) {
	data := SystemPromptData{
		NavigateTool: string(entity.ToolBrowserNavigate),
		SnapshotTool: string(entity.ToolBrowserSnapshot),
		RefParam:     "element",
	}

	for _, def := range defs {
		data.Tools = append(data.Tools, ToolInfo{
			Name:        def.Name,
			Description: def.Description,
			Params:      params(def.Parameters),
		})
		if def.Name == string(entity.ToolBrowserClick) {
			data.RefParam, data.DescribeParam = refParams(def.Parameters)
		}
	}

	tmpl, err := template.New("system").Option("missingkey=error").Parse(baseTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func params(schema map[string]any) []ParamInfo {
	props, _ := schema["properties"].(map[string]any)
	required := map[string]bool{}
	switch req := schema["required"].(type) {
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	case []string:
		for _, s := range req {
			required[s] = true
		}
	}

	result := make([]ParamInfo, 0, len(props))
	for name, raw := range props {
		p := ParamInfo{Name: name, Type: "any", Required: required[name]}
		if prop, ok := raw.(map[string]any); ok {
			if t, ok := prop["type"].(string); ok {
				p.Type = t
			}
			p.Description, _ = prop["description"].(string)
		}
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Required != result[j].Required {
			return result[i].Required
		}
		return result[i].Name < result[j].Name
	})
	return result
}

func refParams(schema map[string]any) (ref, describe string) {
	props, _ := schema["properties"].(map[string]any)
	if _, ok := props["ref"]; ok {
		if _, ok := props["element"]; ok {
			return "ref", "element"
		}
		return "ref", ""
	}
	return "element", ""
}
