package output

import "context"

type LLMPort interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	ListModels(ctx context.Context) ([]string, error)
	Name() string
}

type GenerateRequest struct {
	Prompt string
	// JSON asks the provider for a strict JSON response. Providers that
	// cannot enforce it still receive the prompt unchanged.
	JSON bool
}
