package output

import (
	"context"

	"quiz-agent/internal/domain/entity"
)

type SubmitterPort interface {
	Submit(ctx context.Context, endpoint string, payload entity.SubmissionPayload) (*entity.SubmissionResult, error)
}
