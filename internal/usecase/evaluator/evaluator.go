// Package evaluator turns a model's terminal text into a step verdict.
package evaluator

import (
	"strings"

	"kosher/internal/domain/entity"
)

const failPrefix = "FAIL"

// Classify marks the step as failed iff the text starts with FAIL in any
// letter case.
func Classify(text string) entity.StepOutcome {
	return entity.StepOutcome{
		Text:    text,
		Success: !strings.HasPrefix(strings.ToUpper(text), failPrefix),
	}
}
