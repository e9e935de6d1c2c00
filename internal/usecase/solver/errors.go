package solver

import "errors"

var (
	ErrAnalysisFailed     = errors.New("page analysis failed")
	ErrAnalysisUnparsable = errors.New("page analysis response is not a JSON object")
	ErrNoSubmitURL        = errors.New("no submit url found on page")
	ErrCodeGeneration     = errors.New("code generation failed")
	ErrBadCurrentURL      = errors.New("current url has no scheme and host")
	ErrIncorrectAnswer    = errors.New("answer rejected by quiz server")
	ErrIterationLimit     = errors.New("iteration limit reached")
)
