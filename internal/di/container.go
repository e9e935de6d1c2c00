package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quiz-agent/internal/adapter/httpapi"
	"quiz-agent/internal/application/port/input"
	"quiz-agent/internal/application/port/output"
	"quiz-agent/internal/infrastructure/browser/htmlclean"
	"quiz-agent/internal/infrastructure/browser/rod"
	"quiz-agent/internal/infrastructure/llm/gemini"
	"quiz-agent/internal/infrastructure/llm/ollama"
	"quiz-agent/internal/infrastructure/llm/openrouter"
	"quiz-agent/internal/infrastructure/logger"
	"quiz-agent/internal/infrastructure/prompts"
	"quiz-agent/internal/infrastructure/sandbox"
	"quiz-agent/internal/infrastructure/submit"
	"quiz-agent/internal/usecase/dispatcher"
	"quiz-agent/internal/usecase/solver"
)

var ErrUnknownProvider = errors.New("unknown LLM provider")

const modelCheckLimit = 5

type Container struct {
	Logger     output.LoggerPort
	LLM        output.LLMPort
	Browser    output.BrowserPort
	Executor   *sandbox.YaegiExecutor
	Submitter  output.SubmitterPort
	Solver     input.QuizSolver
	Dispatcher *dispatcher.Dispatcher
	Server     *httpapi.Server
}

func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	log := cfg.Logger
	if log == nil {
		zl, err := logger.NewLoggerAdapter(logger.Config{Level: cfg.LogLevel})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		log = zl
	}

	llm, err := newLLM(ctx, cfg, log)
	if err != nil {
		log.Close()
		return nil, err
	}

	browser := rod.NewBrowserAdapter(rod.BrowserConfig{
		Headless:    cfg.BrowserHeadless,
		NoSandbox:   cfg.BrowserNoSandbox,
		Settle:      cfg.BrowserSettle,
		SnapshotDir: cfg.SnapshotDir,
	}, log.WithField("component", "browser"))

	execCfg := sandbox.DefaultConfig()
	execCfg.Timeout = cfg.ExecTimeout
	executor := sandbox.NewYaegiExecutor(execCfg, log.WithField("component", "sandbox"))

	renderer, err := prompts.NewDefaultRenderer(executor.Imports())
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	submitter := submit.NewHTTPSubmitter(submit.Config{Timeout: cfg.SubmitTimeout}, log.WithField("component", "submit"))

	solverCfg := solver.DefaultConfig()
	solverCfg.MaxIterations = cfg.MaxIterations
	if cfg.CleanHTML {
		solverCfg.PageFilter = htmlclean.New(htmlclean.DefaultConfig(), log.WithField("component", "htmlclean")).Clean
	}
	uc := solver.New(browser, llm, executor, submitter, renderer, log, solverCfg)

	disp := dispatcher.New(uc, log)
	server := httpapi.NewServer(disp, log.WithField("component", "http"), httpapi.Options{
		ServiceName: "quiz-agent",
		AccessLog:   cfg.AccessLog,
		LogLevel:    cfg.LogLevel,
	})

	return &Container{
		Logger:     log,
		LLM:        llm,
		Browser:    browser,
		Executor:   executor,
		Submitter:  submitter,
		Solver:     uc,
		Dispatcher: disp,
		Server:     server,
	}, nil
}

func newLLM(ctx context.Context, cfg Config, log output.LoggerPort) (output.LLMPort, error) {
	llmLog := log.WithField("component", "llm")

	switch strings.ToLower(cfg.LLMProvider) {
	case ProviderGemini, "":
		a, err := gemini.NewGeminiAdapter(ctx, gemini.Config{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
			Logger: llmLog,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return a, nil
	case ProviderOpenRouter:
		if cfg.OpenRouterAPIKey == "" || cfg.OpenRouterModel == "" {
			return nil, fmt.Errorf("openrouter requires an API key and a model name")
		}
		llmCfg := openrouter.DefaultConfig(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
		llmCfg.Logger = llmLog
		return openrouter.NewOpenRouterAdapter(llmCfg), nil
	case ProviderOllama:
		a, err := ollama.NewOllamaAdapter(ollama.Config{
			ServerURL: cfg.OllamaURL,
			Model:     cfg.OllamaModel,
			Logger:    llmLog,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.LLMProvider)
	}
}

// CheckModels lists the first few models the provider exposes. Failure is
// logged and returned but is not meant to stop startup.
func (c *Container) CheckModels(ctx context.Context, timeout time.Duration) ([]string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	models, err := c.LLM.ListModels(ctx)
	if err != nil {
		c.Logger.Warn("Model listing failed", "provider", c.LLM.Name(), "error", err)
		return nil, err
	}
	if len(models) > modelCheckLimit {
		models = models[:modelCheckLimit]
	}
	c.Logger.Info("Available models", "provider", c.LLM.Name(), "models", models)
	return models, nil
}

func (c *Container) Close() {
	if c.Logger != nil {
		c.Logger.Close()
	}
}
