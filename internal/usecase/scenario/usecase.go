package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kosher/internal/application/port/input"
	"kosher/internal/application/port/output"
	"kosher/internal/domain/conversation"
	"kosher/internal/domain/entity"

	"github.com/google/uuid"
)

var _ input.ScenarioRunner = (*UseCase)(nil)

// ExecutorFactory binds a step executor to one connected session.
type ExecutorFactory func(session output.ToolSession, logger output.LoggerPort) input.StepExecutor

// PromptBuilder renders the system prompt from the tools a session offers.
type PromptBuilder func(defs []entity.ToolDefinition) (string, error)

type UseCase struct {
	sessions  output.SessionFactory
	executors ExecutorFactory
	prompt    PromptBuilder
	reporter  output.Reporter
	logger    output.LoggerPort
	keepOpen  bool
}

type Option func(*UseCase)

// WithKeepOpen makes RunSingle hold a failed run's session open until its
// context is cancelled.
func WithKeepOpen(keep bool) Option {
	return func(uc *UseCase) { uc.keepOpen = keep }
}

func New(
	sessions output.SessionFactory,
	executors ExecutorFactory,
	prompt PromptBuilder,
	reporter output.Reporter,
	logger output.LoggerPort,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		sessions:  sessions,
		executors: executors,
		prompt:    prompt,
		reporter:  reporter,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// RunOnce executes the first scenario of feature against an already
// connected session, with a fresh conversation. It stops at the first
// failed step.
func (uc *UseCase) RunOnce(ctx context.Context, feature *entity.Feature, session output.ToolSession, log output.LoggerPort) (entity.RunResult, error) {
	if feature == nil || len(feature.Scenarios) == 0 {
		return entity.RunResult{}, entity.ErrNoScenarios
	}
	sc := feature.Scenarios[0]

	systemPrompt, err := uc.prompt(session.Schemas())
	if err != nil {
		return entity.RunResult{}, fmt.Errorf("render system prompt: %w", err)
	}

	conv := conversation.New(systemPrompt)
	executor := uc.executors(session, log)

	var result entity.RunResult
	for i := range sc.Steps {
		step := sc.Steps[i]
		uc.reporter.StepStarted(step)

		start := time.Now()
		outcome, err := executor.Execute(ctx, step.FullText(), conv)
		if err != nil {
			log.Error("Step aborted", "step", step.FullText(), "error", err)
			return result, fmt.Errorf("step %q: %w", step.FullText(), err)
		}

		log.Info("Step executed",
			"step", step.FullText(),
			"success", outcome.Success,
			"duration", time.Since(start),
		)
		uc.reporter.StepFinished(step, outcome)
		result.Outcomes = append(result.Outcomes, outcome)

		if !outcome.Success {
			result.Failed++
			result.FailedStep = &step
			break
		}
		result.Passed++
	}

	log.Info("Scenario finished",
		"scenario", sc.Name,
		"passed", result.Passed,
		"failed", result.Failed,
	)
	return result, nil
}

func (uc *UseCase) RunSingle(ctx context.Context, feature *entity.Feature) (entity.RunResult, error) {
	log := uc.logger.WithFields(map[string]any{"run_id": uuid.NewString(), "mode": "single"})

	session, err := uc.connect(ctx, log)
	if err != nil {
		return entity.RunResult{}, err
	}

	uc.reporter.RunStarted(1, 1)
	result, err := uc.RunOnce(ctx, feature, session, log)
	if err == nil {
		uc.reporter.RunFinished(1, result)
	}

	if err == nil && !result.OK() && uc.keepOpen {
		uc.reporter.Held()
		log.Info("Holding tool session open")
		<-ctx.Done()
	}

	uc.close(session, log)
	return result, err
}

// Benchmark runs the scenario n times, each on a fresh session and a fresh
// conversation. Stats gathered before an error are returned with it.
func (uc *UseCase) Benchmark(ctx context.Context, feature *entity.Feature, n int) (*entity.BenchmarkStats, error) {
	if n < 1 {
		return nil, fmt.Errorf("benchmark needs at least one run, got %d", n)
	}

	stats := entity.NewBenchmarkStats()
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		log := uc.logger.WithFields(map[string]any{
			"run_id":    uuid.NewString(),
			"iteration": i,
			"total":     n,
		})

		result, err := uc.iteration(ctx, feature, i, n, log)
		if err != nil {
			return stats, fmt.Errorf("run %d/%d: %w", i, n, err)
		}
		stats.Record(result)
	}

	uc.logger.Info("Benchmark finished",
		"runs", stats.Runs,
		"successes", stats.Successes,
		"failures", stats.Failures,
	)
	return stats, nil
}

func (uc *UseCase) iteration(ctx context.Context, feature *entity.Feature, i, n int, log output.LoggerPort) (entity.RunResult, error) {
	uc.reporter.RunStarted(i, n)

	session, err := uc.connect(ctx, log)
	if err != nil {
		return entity.RunResult{}, err
	}
	defer uc.close(session, log)

	result, err := uc.RunOnce(ctx, feature, session, log)
	if err != nil {
		return result, err
	}
	uc.reporter.RunFinished(i, result)
	return result, nil
}

func (uc *UseCase) connect(ctx context.Context, log output.LoggerPort) (output.ToolSession, error) {
	session := uc.sessions()
	if err := session.Connect(ctx); err != nil {
		return nil, err
	}
	log.Info("Tool session connected", "tools", len(session.Schemas()))
	return session, nil
}

func (uc *UseCase) close(session output.ToolSession, log output.LoggerPort) {
	if err := session.Close(); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("Failed to close tool session", "error", err)
	}
}
