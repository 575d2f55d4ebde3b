package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"kosher/internal/di"
	"kosher/internal/infrastructure/console"
	"kosher/internal/infrastructure/env"
	"kosher/internal/infrastructure/pageserver"

	"github.com/spf13/cobra"
)

const (
	version            = "0.1.0"
	defaultFeaturePath = "features/examples/login.feature"
)

// errRunFailed signals a completed run with failing steps. It maps to exit
// code 1 without an extra error line.
var errRunFailed = errors.New("scenario failed")

type runOptions struct {
	feature      string
	benchmark    int
	keepOpen     bool
	serveFixture bool
}

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "kosher",
		Short:         "Run Gherkin scenarios in a real browser through an LLM and MCP browser tools",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the first scenario of a feature file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.benchmark < 0 {
				return fmt.Errorf("--benchmark must be positive, got %d", opts.benchmark)
			}
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.feature, "feature", "f", defaultFeaturePath, "path to the .feature file")
	cmd.Flags().IntVar(&opts.benchmark, "benchmark", 0, "run the scenario N times and report statistics")
	cmd.Flags().BoolVar(&opts.keepOpen, "keep-open", true, "keep the browser open after a failed single run until Ctrl+C")
	cmd.Flags().BoolVar(&opts.serveFixture, "serve-fixture", true, "serve the bundled login test page")

	return cmd
}

func run(ctx context.Context, opts runOptions, out io.Writer) error {
	cfg := di.ConfigFromEnv(env.NewEnvService())
	reporter := console.NewReporter(out)
	cfg.Reporter = reporter
	cfg.KeepOpen = opts.keepOpen && opts.benchmark == 0

	container, err := di.NewContainer(cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	feature, err := container.Parser.ParseFile(opts.feature)
	if err != nil {
		return err
	}

	if opts.serveFixture {
		srv, err := pageserver.Start(ctx, pageserver.Config{Addr: cfg.FixtureAddr}, container.Logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		reporter.Info("Test server running at %s", srv.BaseURL())
	}

	if opts.benchmark > 0 {
		reporter.Info("Running benchmark: %d iterations\n", opts.benchmark)
		stats, err := container.Runner.Benchmark(ctx, feature, opts.benchmark)
		if stats != nil && stats.Runs > 0 {
			reporter.Summary(stats)
		}
		if err != nil {
			return err
		}
		if stats.Failures > 0 {
			return errRunFailed
		}
		return nil
	}

	reporter.Info("Connecting to tool server: %s", cfg.MCPCommand)
	result, err := container.Runner.RunSingle(ctx, feature)
	if err != nil {
		return err
	}
	if !result.OK() {
		return errRunFailed
	}
	return nil
}
