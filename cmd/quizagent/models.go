package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func NewModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the first models of the configured LLM provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, _, err := buildContainer(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer container.Close()

			models, err := container.CheckModels(cmd.Context(), 30*time.Second)
			if err != nil {
				return fmt.Errorf("list models for %s: %w", container.LLM.Name(), err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, container.LLM.Name())
			for _, m := range models {
				fmt.Fprintf(out, "  %s\n", m)
			}
			return nil
		},
	}
}
