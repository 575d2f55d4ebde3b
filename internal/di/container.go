package di

import (
	"fmt"
	"io"
	"strings"

	"kosher/internal/application/port/input"
	"kosher/internal/application/port/output"
	"kosher/internal/domain/entity"
	"kosher/internal/infrastructure/gherkin"
	"kosher/internal/infrastructure/llm/langchain"
	"kosher/internal/infrastructure/llm/openai"
	"kosher/internal/infrastructure/logger"
	"kosher/internal/infrastructure/mcp"
	"kosher/internal/infrastructure/prompts"
	"kosher/internal/usecase/executor"
	"kosher/internal/usecase/scenario"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	DefaultModel       = "qwen2.5-coder:14b-instruct-q4_K_M"
	DefaultFixtureAddr = "127.0.0.1:8765"
)

type Container struct {
	Logger   output.LoggerPort
	LLM      output.LLMPort
	Parser   output.FeatureParser
	Sessions output.SessionFactory
	Runner   *scenario.UseCase
}

type Config struct {
	LLMProvider string
	LLMBaseURL  string
	LLMAPIKey   string
	Model       string
	MCPCommand  string
	FixtureAddr string
	LogLevel    string
	LogFile     string
	// MCPStderr receives the tool server's stderr.
	MCPStderr io.Writer
	KeepOpen  bool
	Reporter  output.Reporter
}

// ConfigFromEnv reads every KOSHER_* setting, applying defaults.
func ConfigFromEnv(env output.ConfigPort) Config {
	return Config{
		LLMProvider: strings.ToLower(env.GetWithDefault("KOSHER_LLM_PROVIDER", ProviderOpenAI)),
		LLMBaseURL:  env.Get("KOSHER_LLM_BASE_URL"),
		LLMAPIKey:   env.Get("KOSHER_LLM_API_KEY"),
		Model:       env.GetWithDefault("KOSHER_MODEL", DefaultModel),
		MCPCommand:  env.GetWithDefault("KOSHER_MCP_COMMAND", mcp.DefaultCommand),
		FixtureAddr: env.GetWithDefault("KOSHER_FIXTURE_ADDR", DefaultFixtureAddr),
		LogLevel:    env.GetWithDefault("LOG_LEVEL", "info"),
		LogFile:     env.Get("LOG_FILE"),
	}
}

func NewContainer(cfg Config) (*Container, error) {
	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.File = cfg.LogFile
	log, err := logger.NewLoggerAdapter(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	llm, err := newLLM(cfg, log)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	mcpCfg := mcp.DefaultConfig()
	if cfg.MCPCommand != "" {
		mcpCfg.Command = cfg.MCPCommand
	}
	mcpCfg.Stderr = cfg.MCPStderr
	sessions := func() output.ToolSession {
		return mcp.NewClient(mcpCfg, log)
	}

	executors := func(session output.ToolSession, l output.LoggerPort) input.StepExecutor {
		return executor.New(llm, session, session, l)
	}

	prompt := func(defs []entity.ToolDefinition) (string, error) {
		return prompts.GenerateSystemPrompt(prompts.SystemPromptTemplate, defs)
	}

	runner := scenario.New(sessions, executors, prompt, cfg.Reporter, log, scenario.WithKeepOpen(cfg.KeepOpen))

	log.Info("Container ready",
		"provider", cfg.LLMProvider,
		"model", cfg.Model,
		"mcpCommand", mcpCfg.Command,
	)

	return &Container{
		Logger:   log,
		LLM:      llm,
		Parser:   gherkin.NewParser(),
		Sessions: sessions,
		Runner:   runner,
	}, nil
}

func newLLM(cfg Config, log output.LoggerPort) (output.LLMPort, error) {
	switch cfg.LLMProvider {
	case "", ProviderOpenAI:
		llmCfg := openai.DefaultConfig(cfg.LLMAPIKey, cfg.Model)
		if cfg.LLMBaseURL != "" {
			llmCfg.BaseURL = cfg.LLMBaseURL
		}
		llmCfg.Logger = log
		llmCfg.LogHTTP = cfg.LogLevel == "debug"
		return openai.NewAdapter(llmCfg), nil
	case ProviderOllama:
		llm, err := langchain.NewOllama(langchain.Config{
			Model:     cfg.Model,
			ServerURL: cfg.LLMBaseURL,
			APIKey:    cfg.LLMAPIKey,
			Logger:    log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create llm: %w", err)
		}
		return llm, nil
	}
	return nil, fmt.Errorf("unknown llm provider %q (want %s or %s)", cfg.LLMProvider, ProviderOpenAI, ProviderOllama)
}

func (c *Container) Close() {
	if c.Logger != nil {
		_ = c.Logger.Close()
	}
}
