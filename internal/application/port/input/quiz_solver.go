package input

import (
	"context"

	"quiz-agent/internal/domain/entity"
)

type QuizSolver interface {
	Solve(ctx context.Context, runID string, session entity.Session) *entity.RunResult
}
