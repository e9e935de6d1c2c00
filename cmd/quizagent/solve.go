package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"quiz-agent/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func NewSolveCmd() *cobra.Command {
	var session entity.Session

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Run one quiz chain in the foreground",
		Long: `Runs the same loop the server dispatches, starting at --url, and prints
the outcome. Useful for trying a provider or prompt change against a quiz
without going through HTTP.`,
		Example: `  quizagent solve --url https://quiz.example/demo --email me@example.com --secret s3cret`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			container, _, err := buildContainer(ctx, cmd)
			if err != nil {
				return err
			}
			defer container.Close()

			res := container.Solver.Solve(ctx, uuid.NewString(), session)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run:        %s\n", res.RunID)
			fmt.Fprintf(out, "state:      %s\n", res.State)
			fmt.Fprintf(out, "iterations: %d\n", res.Iterations)
			fmt.Fprintf(out, "last url:   %s\n", res.LastURL)
			fmt.Fprintf(out, "duration:   %s\n", res.Duration.Round(time.Millisecond))
			if res.Err != nil {
				fmt.Fprintf(out, "error:      %v\n", res.Err)
			}

			if res.State != entity.RunStateCompleted {
				return fmt.Errorf("run %s ended in state %s", res.RunID, res.State)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&session.StartURL, "url", "", "Quiz start URL")
	cmd.Flags().StringVar(&session.Email, "email", "", "Student email")
	cmd.Flags().StringVar(&session.Secret, "secret", "", "Student secret")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("secret")

	return cmd
}
