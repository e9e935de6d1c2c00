package main

import (
	"context"
	"fmt"
	"os"

	"quiz-agent/internal/di"
	"quiz-agent/internal/infrastructure/env"

	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quizagent",
		Short: "Solves chained data-analysis quizzes with an LLM and a Go sandbox",
		Long: `quizagent renders each quiz page in headless Chromium, asks an LLM for the
question and submit endpoint, has it write a Go program that computes the
answer, runs that program in a Yaegi sandbox and posts the result, following
the chain until the quiz server stops returning a next URL.

Configuration comes from the environment and .env files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewSolveCmd())
	cmd.AddCommand(NewModelsCmd())

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildContainer reads configuration from the environment, applies
// persistent flag overrides and wires the application.
func buildContainer(ctx context.Context, cmd *cobra.Command) (*di.Container, di.Config, error) {
	cfg := di.ConfigFromEnv(env.NewEnvService())
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}

	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return nil, cfg, fmt.Errorf("initialization failed: %w", err)
	}
	return container, cfg, nil
}
