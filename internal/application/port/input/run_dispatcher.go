package input

import (
	"context"

	"quiz-agent/internal/domain/entity"
)

type RunDispatcher interface {
	// Dispatch starts a detached run and returns its ID without waiting.
	Dispatch(session entity.Session) string
	Wait(ctx context.Context) error
}
