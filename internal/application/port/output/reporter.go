package output

import "kosher/internal/domain/entity"

// Reporter receives progress of scenario runs for display.
type Reporter interface {
	RunStarted(iteration, total int)
	StepStarted(step entity.Step)
	StepFinished(step entity.Step, outcome entity.StepOutcome)
	RunFinished(iteration int, result entity.RunResult)
	// Held is called when a failed run leaves its tool session open
	// for inspection.
	Held()
}
