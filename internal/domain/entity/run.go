package entity

import "time"

type RunState string

const (
	RunStateFetching   RunState = "fetching"
	RunStateAnalyzing  RunState = "analyzing"
	RunStateGenerating RunState = "generating"
	RunStateExecuting  RunState = "executing"
	RunStateSubmitting RunState = "submitting"
	RunStateCompleted  RunState = "completed"
	RunStateAborted    RunState = "aborted"
)

type RunResult struct {
	RunID      string
	State      RunState
	Iterations int
	LastURL    string
	Err        error
	Duration   time.Duration
}
