package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-agent/internal/application/port/input"
	"quiz-agent/internal/application/port/output"
	"quiz-agent/internal/domain/entity"
)

var _ input.QuizSolver = (*UseCase)(nil)

const (
	defaultMaxIterations   = 10
	defaultMaxPageChars    = 20000
	defaultAnalyzeAttempts = 3
	defaultRetryDelay      = 5 * time.Second
)

type PromptBuilder interface {
	Analysis(page string) (string, error)
	Code(question string) (string, error)
}

type Config struct {
	MaxIterations   int
	MaxPageChars    int
	AnalyzeAttempts int
	RetryDelay      time.Duration
	// PageFilter, when set, is applied to the rendered document before it
	// is truncated and sent for analysis.
	PageFilter func(html string) string
}

func DefaultConfig() Config {
	return Config{
		MaxIterations:   defaultMaxIterations,
		MaxPageChars:    defaultMaxPageChars,
		AnalyzeAttempts: defaultAnalyzeAttempts,
		RetryDelay:      defaultRetryDelay,
	}
}

type UseCase struct {
	browser   output.BrowserPort
	llm       output.LLMPort
	executor  output.CodeExecutor
	submitter output.SubmitterPort
	prompts   PromptBuilder
	logger    output.LoggerPort
	cfg       Config
}

func New(
	browser output.BrowserPort,
	llm output.LLMPort,
	executor output.CodeExecutor,
	submitter output.SubmitterPort,
	prompts PromptBuilder,
	logger output.LoggerPort,
	cfg Config,
) *UseCase {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.MaxPageChars <= 0 {
		cfg.MaxPageChars = defaultMaxPageChars
	}
	if cfg.AnalyzeAttempts <= 0 {
		cfg.AnalyzeAttempts = defaultAnalyzeAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	return &UseCase{
		browser:   browser,
		llm:       llm,
		executor:  executor,
		submitter: submitter,
		prompts:   prompts,
		logger:    logger,
		cfg:       cfg,
	}
}

// Solve follows the quiz chain starting at session.StartURL until the server
// reports completion, a step fails, or the iteration cap is hit. The result
// is for logging only; there is no resumption.
func (uc *UseCase) Solve(ctx context.Context, runID string, session entity.Session) *entity.RunResult {
	start := time.Now()
	log := uc.logger.WithField("run_id", runID)
	result := &entity.RunResult{RunID: runID, LastURL: session.StartURL}

	log.Info("Run started", "start_url", session.StartURL, "email", session.Email)

	currentURL := session.StartURL
	for iteration := 1; iteration <= uc.cfg.MaxIterations; iteration++ {
		result.Iterations = iteration
		result.LastURL = currentURL

		itLog := log.WithFields(map[string]any{"iteration": iteration, "url": currentURL})
		itLog.Info("Processing URL")

		nextURL, err := uc.iterate(ctx, itLog, result, session, currentURL)
		if err != nil {
			return uc.finish(log, result, entity.RunStateAborted, err, start)
		}
		if nextURL == "" {
			return uc.finish(log, result, entity.RunStateCompleted, nil, start)
		}
		currentURL = nextURL
	}

	return uc.finish(log, result, entity.RunStateAborted, ErrIterationLimit, start)
}

// iterate runs one Fetch, Analyze, Generate+Execute, Submit cycle. An empty
// next URL with a nil error means the chain is complete.
func (uc *UseCase) iterate(
	ctx context.Context,
	log output.LoggerPort,
	result *entity.RunResult,
	session entity.Session,
	currentURL string,
) (string, error) {
	uc.transition(log, result, entity.RunStateFetching)
	page, err := uc.browser.Render(ctx, currentURL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", currentURL, err)
	}

	uc.transition(log, result, entity.RunStateAnalyzing)
	analysis, err := uc.analyze(ctx, log, page.HTML)
	if err != nil {
		return "", err
	}
	log.Info("Page analyzed", "question", analysis.Question, "submit_url", analysis.SubmitURL)

	uc.transition(log, result, entity.RunStateGenerating)
	code, err := uc.generateCode(ctx, analysis.Question)
	if err != nil {
		return "", err
	}

	uc.transition(log, result, entity.RunStateExecuting)
	artifact := uc.execute(ctx, log, code)
	log.Info("Calculated answer", "answer", artifact.Answer)

	uc.transition(log, result, entity.RunStateSubmitting)
	endpoint, err := ResolveSubmitURL(currentURL, analysis.SubmitURL)
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}

	log.Info("Posting answer", "endpoint", endpoint)
	res, err := uc.submitter.Submit(ctx, endpoint, entity.SubmissionPayload{
		Email:  session.Email,
		Secret: session.Secret,
		URL:    currentURL,
		Answer: artifact.Answer,
	})
	if err != nil {
		return "", fmt.Errorf("submit to %s: %w", endpoint, err)
	}
	log.Info("Server response", "response", res.Raw)

	if !res.Correct {
		return "", ErrIncorrectAnswer
	}
	return res.NextURL, nil
}

func (uc *UseCase) analyze(ctx context.Context, log output.LoggerPort, html string) (*entity.PageAnalysis, error) {
	doc := html
	if uc.cfg.PageFilter != nil {
		doc = uc.cfg.PageFilter(doc)
	}
	doc = truncateRunes(doc, uc.cfg.MaxPageChars)

	prompt, err := uc.prompts.Analysis(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: build prompt: %v", ErrAnalysisFailed, err)
	}

	var (
		raw     string
		lastErr error
	)
	for attempt := 1; attempt <= uc.cfg.AnalyzeAttempts; attempt++ {
		raw, lastErr = uc.llm.Generate(ctx, output.GenerateRequest{Prompt: prompt, JSON: true})
		if lastErr == nil {
			break
		}
		log.Warn("Analysis request failed", "attempt", attempt, "error", lastErr)
		if attempt < uc.cfg.AnalyzeAttempts {
			if err := sleep(ctx, uc.cfg.RetryDelay); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
			}
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrAnalysisFailed, uc.cfg.AnalyzeAttempts, lastErr)
	}

	obj, ok := ParseJSONResponse(raw)
	if !ok {
		log.Warn("Unparsable analysis response", "raw", raw)
		return nil, ErrAnalysisUnparsable
	}

	analysis := &entity.PageAnalysis{
		SubmitURL: stringField(obj, "submit_url"),
		Question:  stringField(obj, "question"),
	}
	if analysis.SubmitURL == "" {
		return nil, ErrNoSubmitURL
	}
	return analysis, nil
}

func (uc *UseCase) generateCode(ctx context.Context, question string) (string, error) {
	prompt, err := uc.prompts.Code(question)
	if err != nil {
		return "", fmt.Errorf("%w: build prompt: %v", ErrCodeGeneration, err)
	}
	code, err := uc.llm.Generate(ctx, output.GenerateRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCodeGeneration, err)
	}
	return code, nil
}

// execute never fails the run: any execution problem degrades to a nil answer.
func (uc *UseCase) execute(ctx context.Context, log output.LoggerPort, raw string) entity.GeneratedArtifact {
	artifact := entity.GeneratedArtifact{Code: StripFences(raw)}

	answer, err := uc.executor.Execute(ctx, artifact.Code)
	if err != nil {
		log.Error("Generated code execution failed", "error", err, "code", artifact.Code)
		return artifact
	}
	artifact.Answer = answer
	return artifact
}

func (uc *UseCase) transition(log output.LoggerPort, result *entity.RunResult, state entity.RunState) {
	result.State = state
	log.Debug("Run state changed", "state", state)
}

func (uc *UseCase) finish(
	log output.LoggerPort,
	result *entity.RunResult,
	state entity.RunState,
	err error,
	start time.Time,
) *entity.RunResult {
	result.State = state
	result.Err = err
	result.Duration = time.Since(start)

	switch {
	case state == entity.RunStateCompleted:
		log.Info("Quiz completed", "iterations", result.Iterations, "duration", result.Duration)
	case errors.Is(err, ErrIncorrectAnswer):
		log.Warn("Answer incorrect, stopping", "iterations", result.Iterations, "url", result.LastURL)
	default:
		log.Error("Run aborted", "iterations", result.Iterations, "url", result.LastURL, "error", err)
	}
	return result
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
