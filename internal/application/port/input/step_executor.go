package input

import (
	"context"

	"kosher/internal/domain/conversation"
	"kosher/internal/domain/entity"
)

type StepExecutor interface {
	Execute(ctx context.Context, step string, conv *conversation.State) (entity.StepOutcome, error)
}
