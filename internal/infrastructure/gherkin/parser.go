package gherkin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"kosher/internal/application/port/output"
	"kosher/internal/domain/entity"

	gherkin "github.com/cucumber/gherkin/go/v26"
	messages "github.com/cucumber/messages/go/v21"
)

var _ output.FeatureParser = (*Parser)(nil)

// ParseError carries the position of the first syntax error, when known.
type ParseError struct {
	Message string
	Line    int
	Column  int
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("%s at line %d, column %d", e.Message, e.Line, e.Column)
	case e.Line > 0:
		return fmt.Sprintf("%s at line %d", e.Message, e.Line)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error { return entity.ErrFeatureParse }

var stepTypes = map[messages.PickleStepType]entity.StepType{
	messages.PickleStepType_CONTEXT: entity.StepTypeContext,
	messages.PickleStepType_ACTION:  entity.StepTypeAction,
	messages.PickleStepType_OUTCOME: entity.StepTypeOutcome,
	messages.PickleStepType_UNKNOWN: entity.StepTypeUnknown,
}

// Parser compiles feature files to pickles, so Scenario Outlines come back
// as one scenario per example row.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) ParseFile(path string) (*entity.Feature, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", entity.ErrFeatureNotFound, path)
		}
		return nil, fmt.Errorf("read feature %s: %w", path, err)
	}
	return p.ParseString(string(content), path)
}

func (p *Parser) ParseString(content, uri string) (*entity.Feature, error) {
	ids := &messages.Incrementing{}

	doc, err := gherkin.ParseGherkinDocument(strings.NewReader(content), ids.NewId)
	if err != nil {
		return nil, toParseError(err)
	}

	if doc.Feature == nil {
		return &entity.Feature{URI: uri, Language: "en"}, nil
	}

	feature := &entity.Feature{
		Name:        doc.Feature.Name,
		Description: doc.Feature.Description,
		URI:         uri,
		Language:    doc.Feature.Language,
		Tags:        make([]entity.Tag, 0, len(doc.Feature.Tags)),
	}
	for _, t := range doc.Feature.Tags {
		feature.Tags = append(feature.Tags, entity.Tag{Name: t.Name})
	}

	for _, pickle := range gherkin.Pickles(*doc, uri, ids.NewId) {
		feature.Scenarios = append(feature.Scenarios, convertPickle(pickle))
	}

	return feature, nil
}

func convertPickle(pickle *messages.Pickle) entity.Scenario {
	scenario := entity.Scenario{
		Name:  pickle.Name,
		Steps: make([]entity.Step, 0, len(pickle.Steps)),
		Tags:  make([]entity.Tag, 0, len(pickle.Tags)),
	}
	for _, t := range pickle.Tags {
		scenario.Tags = append(scenario.Tags, entity.Tag{Name: t.Name})
	}
	for _, s := range pickle.Steps {
		scenario.Steps = append(scenario.Steps, convertStep(s))
	}
	return scenario
}

func convertStep(s *messages.PickleStep) entity.Step {
	typ, ok := stepTypes[s.Type]
	if !ok {
		typ = entity.StepTypeUnknown
	}

	step := entity.Step{
		Keyword: typ.Keyword(),
		Text:    s.Text,
		Type:    typ,
	}

	if s.Argument == nil {
		return step
	}
	if dt := s.Argument.DataTable; dt != nil {
		table := &entity.DataTable{Rows: make([][]string, 0, len(dt.Rows))}
		for _, row := range dt.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.Value)
			}
			table.Rows = append(table.Rows, cells)
		}
		step.DataTable = table
	} else if ds := s.Argument.DocString; ds != nil {
		step.DocString = &entity.DocString{Content: ds.Content, MediaType: ds.MediaType}
	}
	return step
}

var locationRe = regexp.MustCompile(`\((\d+):(\d+)\): (.*)`)

// toParseError reports the first error of a composite failure.
func toParseError(err error) error {
	m := locationRe.FindStringSubmatch(err.Error())
	if m == nil {
		return &ParseError{Message: strings.TrimSpace(err.Error())}
	}
	line, _ := strconv.Atoi(m[1])
	col, _ := strconv.Atoi(m[2])
	return &ParseError{Message: m[3], Line: line, Column: col}
}
