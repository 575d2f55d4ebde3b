// Command browser-mcp is a stdio MCP server exposing browser tools backed
// by a local Chrome driven through go-rod.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kosher/internal/adapter/tool"
	"kosher/internal/application/port/output"
	"kosher/internal/infrastructure/browser/rod"
	"kosher/internal/infrastructure/env"
	"kosher/internal/infrastructure/logger"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	envService := env.NewEnvService()
	var headless bool

	cmd := &cobra.Command{
		Use:           "browser-mcp",
		Short:         "Serve browser tools over MCP on stdio",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// stdout carries the protocol, so logs go to stderr and the optional file.
			logCfg := logger.DefaultConfig()
			logCfg.Level = envService.GetWithDefault("LOG_LEVEL", "info")
			logCfg.File = envService.Get("LOG_FILE")
			log, err := logger.NewLoggerAdapter(logCfg)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer log.Close()

			return serve(cmd.Context(), headless, log)
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", envService.GetBool("BROWSER_HEADLESS", false), "run Chrome without a window")
	return cmd
}

func serve(ctx context.Context, headless bool, log output.LoggerPort) error {
	browserCfg := rod.DefaultConfig()
	browserCfg.Headless = headless
	browser, err := rod.NewBrowserAdapter(ctx, browserCfg)
	if err != nil {
		return err
	}
	defer browser.Close()

	server := tool.NewServer(tool.All(browser), log.WithField("component", "browser-mcp"), version)
	log.Info("Serving browser tools over stdio", "headless", headless)

	if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Error("Server stopped", "error", err)
		return err
	}
	return nil
}
