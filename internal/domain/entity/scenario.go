package entity

import "errors"

var ErrEmptyTable = errors.New("data table has no header row")

type StepType string

const (
	StepTypeContext     StepType = "context"
	StepTypeAction      StepType = "action"
	StepTypeOutcome     StepType = "outcome"
	StepTypeConjunction StepType = "conjunction"
	StepTypeUnknown     StepType = "unknown"
)

// Keyword is the display keyword shown to the model for a step type.
func (t StepType) Keyword() string {
	switch t {
	case StepTypeContext:
		return "Given "
	case StepTypeAction:
		return "When "
	case StepTypeOutcome:
		return "Then "
	case StepTypeConjunction:
		return "And "
	default:
		return "* "
	}
}

type Tag struct {
	Name string
}

type DataTable struct {
	Rows [][]string
}

// AsMaps keys every data row by the header row. A header-only table
// yields no maps.
func (t DataTable) AsMaps() ([]map[string]string, error) {
	if len(t.Rows) == 0 {
		return nil, ErrEmptyTable
	}
	headers := t.Rows[0]
	result := make([]map[string]string, 0, len(t.Rows)-1)
	for _, row := range t.Rows[1:] {
		m := make(map[string]string, len(headers))
		for i, cell := range row {
			if i < len(headers) {
				m[headers[i]] = cell
			}
		}
		result = append(result, m)
	}
	return result, nil
}

type DocString struct {
	Content   string
	MediaType string
}

type Step struct {
	Keyword   string
	Text      string
	Type      StepType
	DataTable *DataTable
	DocString *DocString
}

func (s Step) FullText() string {
	return s.Keyword + s.Text
}

type Scenario struct {
	Name  string
	Steps []Step
	Tags  []Tag
}

type Feature struct {
	Name        string
	Description string
	URI         string
	Language    string
	Tags        []Tag
	Scenarios   []Scenario
}
