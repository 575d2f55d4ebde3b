package input

import (
	"context"

	"kosher/internal/domain/entity"
)

type ScenarioRunner interface {
	RunSingle(ctx context.Context, feature *entity.Feature) (entity.RunResult, error)
	Benchmark(ctx context.Context, feature *entity.Feature, n int) (*entity.BenchmarkStats, error)
}
