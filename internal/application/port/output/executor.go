package output

import "context"

// CodeExecutor runs model-written source and returns the value produced by
// its answer function.
type CodeExecutor interface {
	Execute(ctx context.Context, code string) (any, error)
}
