package output

import (
	"context"

	"quiz-agent/internal/domain/entity"
)

type BrowserPort interface {
	Render(ctx context.Context, url string) (*entity.PageContent, error)
}
