package solver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"quiz-agent/internal/application/port/output"
	"quiz-agent/internal/domain/entity"
	"quiz-agent/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBrowser struct {
	mu    sync.Mutex
	calls []string
	html  func(url string) string
	err   error
}

func (b *fakeBrowser) Render(_ context.Context, url string) (*entity.PageContent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, url)
	if b.err != nil {
		return nil, b.err
	}
	html := "<html><body>quiz at " + url + "</body></html>"
	if b.html != nil {
		html = b.html(url)
	}
	return &entity.PageContent{URL: url, HTML: html}, nil
}

type fakeLLM struct {
	jsonCalls int
	codeCalls int
	analysis  func(call int) (string, error)
	code      func(call int) (string, error)
}

func (l *fakeLLM) Generate(_ context.Context, req output.GenerateRequest) (string, error) {
	if req.JSON {
		l.jsonCalls++
		if l.analysis == nil {
			return `{"submit_url": "/submit", "question": "What is 6*7?"}`, nil
		}
		return l.analysis(l.jsonCalls)
	}
	l.codeCalls++
	if l.code == nil {
		return "```go\npackage main\n\nfunc GetAnswer() (interface{}, error) { return 42, nil }\n```", nil
	}
	return l.code(l.codeCalls)
}

func (l *fakeLLM) ListModels(context.Context) ([]string, error) { return nil, nil }
func (l *fakeLLM) Name() string                                 { return "fake" }

type fakeExecutor struct {
	codes  []string
	answer any
	err    error
}

func (e *fakeExecutor) Execute(_ context.Context, code string) (any, error) {
	e.codes = append(e.codes, code)
	if e.err != nil {
		return nil, e.err
	}
	return e.answer, nil
}

type submission struct {
	endpoint string
	payload  entity.SubmissionPayload
}

type fakeSubmitter struct {
	got     []submission
	respond func(n int, endpoint string) (*entity.SubmissionResult, error)
}

func (s *fakeSubmitter) Submit(_ context.Context, endpoint string, payload entity.SubmissionPayload) (*entity.SubmissionResult, error) {
	s.got = append(s.got, submission{endpoint: endpoint, payload: payload})
	if s.respond == nil {
		return &entity.SubmissionResult{Correct: true}, nil
	}
	return s.respond(len(s.got), endpoint)
}

type fakePrompts struct {
	pages []string
}

func (p *fakePrompts) Analysis(page string) (string, error) {
	p.pages = append(p.pages, page)
	return "ANALYZE:" + page, nil
}

func (p *fakePrompts) Code(question string) (string, error) {
	return "CODE:" + question, nil
}

type harness struct {
	browser   *fakeBrowser
	llm       *fakeLLM
	executor  *fakeExecutor
	submitter *fakeSubmitter
	prompts   *fakePrompts
}

func newHarness() *harness {
	return &harness{
		browser:   &fakeBrowser{},
		llm:       &fakeLLM{},
		executor:  &fakeExecutor{answer: 42},
		submitter: &fakeSubmitter{},
		prompts:   &fakePrompts{},
	}
}

func (h *harness) solve(t *testing.T, cfg Config) *entity.RunResult {
	t.Helper()
	cfg.RetryDelay = 0
	uc := New(h.browser, h.llm, h.executor, h.submitter, h.prompts, logger.NewFromZap(zap.NewNop()), cfg)
	return uc.Solve(context.Background(), "run-1", entity.Session{
		Email:    "student@example.com",
		Secret:   "s3cret",
		StartURL: "https://quiz.example/start",
	})
}

func TestSolve_FollowsChainUntilCompleted(t *testing.T) {
	h := newHarness()
	h.submitter.respond = func(n int, _ string) (*entity.SubmissionResult, error) {
		if n == 1 {
			return &entity.SubmissionResult{Correct: true, NextURL: "https://quiz.example/step2"}, nil
		}
		return &entity.SubmissionResult{Correct: true}, nil
	}

	res := h.solve(t, DefaultConfig())

	assert.Equal(t, entity.RunStateCompleted, res.State)
	assert.NoError(t, res.Err)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, []string{"https://quiz.example/start", "https://quiz.example/step2"}, h.browser.calls)

	require.Len(t, h.submitter.got, 2)
	first := h.submitter.got[0]
	assert.Equal(t, "https://quiz.example/submit", first.endpoint)
	assert.Equal(t, entity.SubmissionPayload{
		Email:  "student@example.com",
		Secret: "s3cret",
		URL:    "https://quiz.example/start",
		Answer: 42,
	}, first.payload)
	assert.Equal(t, "https://quiz.example/step2", h.submitter.got[1].payload.URL)
}

func TestSolve_NeverExceedsIterationLimit(t *testing.T) {
	h := newHarness()
	h.submitter.respond = func(n int, _ string) (*entity.SubmissionResult, error) {
		return &entity.SubmissionResult{Correct: true, NextURL: "https://quiz.example/loop"}, nil
	}

	res := h.solve(t, DefaultConfig())

	assert.Equal(t, entity.RunStateAborted, res.State)
	assert.ErrorIs(t, res.Err, ErrIterationLimit)
	assert.Equal(t, 10, res.Iterations)
	assert.Len(t, h.browser.calls, 10)
	assert.Len(t, h.submitter.got, 10)
}

func TestSolve_IncorrectAnswerStops(t *testing.T) {
	h := newHarness()
	h.submitter.respond = func(int, string) (*entity.SubmissionResult, error) {
		return &entity.SubmissionResult{Correct: false, NextURL: "https://quiz.example/ignored"}, nil
	}

	res := h.solve(t, DefaultConfig())

	assert.Equal(t, entity.RunStateAborted, res.State)
	assert.ErrorIs(t, res.Err, ErrIncorrectAnswer)
	assert.Len(t, h.browser.calls, 1)
	assert.Len(t, h.submitter.got, 1)
}

func TestSolve_SubmissionErrorAborts(t *testing.T) {
	h := newHarness()
	boom := errors.New("connection refused")
	h.submitter.respond = func(int, string) (*entity.SubmissionResult, error) {
		return nil, boom
	}

	res := h.solve(t, DefaultConfig())

	assert.Equal(t, entity.RunStateAborted, res.State)
	assert.ErrorIs(t, res.Err, boom)
	assert.Len(t, h.submitter.got, 1)
}

func TestSolve_FetchErrorAbortsWithoutModelCalls(t *testing.T) {
	h := newHarness()
	h.browser.err = errors.New("navigation timeout")

	res := h.solve(t, DefaultConfig())

	assert.Equal(t, entity.RunStateAborted, res.State)
	assert.Equal(t, 1, res.Iterations)
	assert.Zero(t, h.llm.jsonCalls)
	assert.Zero(t, h.llm.codeCalls)
	assert.Empty(t, h.submitter.got)
}

func TestSolve_AnalysisRetriesThenSucceeds(t *testing.T) {
	h := newHarness()
	h.llm.analysis = func(call int) (string, error) {
		if call < 3 {
			return "", errors.New("429 resource exhausted")
		}
		return `{"submit_url": "https://quiz.example/answer", "question": "q"}`, nil
	}

	res := h.solve(t, DefaultConfig())

	assert.Equal(t, entity.RunStateCompleted, res.State)
	assert.Equal(t, 3, h.llm.jsonCalls)
	require.Len(t, h.submitter.got, 1)
	assert.Equal(t, "https://quiz.example/answer", h.submitter.got[0].endpoint)
}

func TestSolve_AnalysisGivesUpAfterThreeAttempts(t *testing.T) {
	h := newHarness()
	h.llm.analysis = func(int) (string, error) {
		return "", errors.New("unavailable")
	}

	res := h.solve(t, DefaultConfig())

	assert.Equal(t, entity.RunStateAborted, res.State)
	assert.ErrorIs(t, res.Err, ErrAnalysisFailed)
	assert.Equal(t, 3, h.llm.jsonCalls)
	assert.Zero(t, h.llm.codeCalls)
	assert.Empty(t, h.submitter.got)
}

func TestSolve_InvalidAnalysisJSONAbortsWithoutRetry(t *testing.T) {
	h := newHarness()
	h.llm.analysis = func(int) (string, error) {
		return "Sure! The submit url is /submit", nil
	}

	res := h.solve(t, DefaultConfig())

	assert.ErrorIs(t, res.Err, ErrAnalysisUnparsable)
	assert.Equal(t, 1, h.llm.jsonCalls)
	assert.Empty(t, h.submitter.got)
}

func TestSolve_MissingSubmitURLAborts(t *testing.T) {
	for _, reply := range []string{`[]`, `{"question": "q"}`, `{"submit_url": "", "question": "q"}`} {
		h := newHarness()
		h.llm.analysis = func(int) (string, error) { return reply, nil }

		res := h.solve(t, DefaultConfig())

		assert.ErrorIs(t, res.Err, ErrNoSubmitURL, reply)
		assert.Zero(t, h.llm.codeCalls, reply)
	}
}

func TestSolve_ArrayAnalysisUsesFirstObject(t *testing.T) {
	h := newHarness()
	h.llm.analysis = func(int) (string, error) {
		return "```json\n[{\"submit_url\": \"next\", \"question\": \"q\"}]\n```", nil
	}

	res := h.solve(t, DefaultConfig())

	assert.Equal(t, entity.RunStateCompleted, res.State)
	require.Len(t, h.submitter.got, 1)
	assert.Equal(t, "https://quiz.example/start/next", h.submitter.got[0].endpoint)
}

func TestSolve_CodeGenerationErrorAborts(t *testing.T) {
	h := newHarness()
	h.llm.code = func(int) (string, error) {
		return "", errors.New("quota")
	}

	res := h.solve(t, DefaultConfig())

	assert.ErrorIs(t, res.Err, ErrCodeGeneration)
	assert.Equal(t, 1, h.llm.codeCalls)
	assert.Empty(t, h.executor.codes)
	assert.Empty(t, h.submitter.got)
}

func TestSolve_ExecutionFailureSubmitsNullAnswer(t *testing.T) {
	h := newHarness()
	h.executor.err = errors.New("undefined: GetAnswer")

	res := h.solve(t, DefaultConfig())

	assert.Equal(t, entity.RunStateCompleted, res.State)
	require.Len(t, h.submitter.got, 1)
	payload := h.submitter.got[0].payload
	assert.Nil(t, payload.Answer)
	assert.Equal(t, "student@example.com", payload.Email)
	assert.Equal(t, "s3cret", payload.Secret)
	assert.Equal(t, "https://quiz.example/start", payload.URL)
}

func TestSolve_EmptyCodeReplyStillSubmitsNull(t *testing.T) {
	h := newHarness()
	h.llm.code = func(int) (string, error) { return "", nil }
	h.executor.err = errors.New("answer function not defined: GetAnswer")

	res := h.solve(t, DefaultConfig())

	assert.Equal(t, entity.RunStateCompleted, res.State)
	assert.Equal(t, []string{""}, h.executor.codes)
	require.Len(t, h.submitter.got, 1)
	assert.Nil(t, h.submitter.got[0].payload.Answer)
	assert.Equal(t, "https://quiz.example/start", h.submitter.got[0].payload.URL)
}

func TestSolve_EmptyAnalysisReplyAbortsWithoutRetry(t *testing.T) {
	h := newHarness()
	h.llm.analysis = func(int) (string, error) { return "", nil }

	res := h.solve(t, DefaultConfig())

	assert.Equal(t, entity.RunStateAborted, res.State)
	assert.ErrorIs(t, res.Err, ErrAnalysisUnparsable)
	assert.Equal(t, 1, h.llm.jsonCalls)
	assert.Zero(t, h.llm.codeCalls)
	assert.Empty(t, h.submitter.got)
}

func TestSolve_CodeIsUnfencedBeforeExecution(t *testing.T) {
	h := newHarness()

	h.solve(t, DefaultConfig())

	require.Len(t, h.executor.codes, 1)
	assert.True(t, strings.HasPrefix(h.executor.codes[0], "package main"))
	assert.NotContains(t, h.executor.codes[0], "```")
}

func TestSolve_PageIsFilteredAndTruncated(t *testing.T) {
	h := newHarness()
	h.browser.html = func(string) string {
		return "<script>x</script>" + strings.Repeat("ж", 30000)
	}
	cfg := DefaultConfig()
	cfg.PageFilter = func(html string) string {
		return strings.Replace(html, "<script>x</script>", "", 1)
	}

	h.solve(t, cfg)

	require.Len(t, h.prompts.pages, 1)
	page := h.prompts.pages[0]
	assert.Equal(t, 20000, len([]rune(page)))
	assert.NotContains(t, page, "<script>")
}
