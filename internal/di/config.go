package di

import (
	"time"

	"quiz-agent/internal/application/port/output"
	"quiz-agent/internal/infrastructure/llm/gemini"
	"quiz-agent/internal/infrastructure/llm/ollama"
)

const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

type Config struct {
	LLMProvider      string
	GeminiAPIKey     string
	GeminiModel      string
	OpenRouterAPIKey string
	OpenRouterModel  string
	OllamaURL        string
	OllamaModel      string

	HTTPAddr      string
	AccessLog     bool
	ShutdownGrace time.Duration

	BrowserHeadless  bool
	BrowserNoSandbox bool
	BrowserSettle    time.Duration
	SnapshotDir      string
	CleanHTML        bool

	ExecTimeout   time.Duration
	SubmitTimeout time.Duration
	MaxIterations int

	LogLevel string
	// Logger overrides the zap logger built from LogLevel.
	Logger output.LoggerPort
}

type EnvSource interface {
	Get(key string) string
	GetWithDefault(key, defaultValue string) string
	GetBool(key string, defaultValue bool) bool
	GetInt(key string, defaultValue int) int
	GetDuration(key string, defaultValue time.Duration) time.Duration
}

func ConfigFromEnv(env EnvSource) Config {
	return Config{
		LLMProvider:      env.GetWithDefault("LLM_PROVIDER", ProviderGemini),
		GeminiAPIKey:     env.Get("GEMINI_API_KEY"),
		GeminiModel:      env.GetWithDefault("GEMINI_MODEL", gemini.DefaultModel),
		OpenRouterAPIKey: env.Get("OPENROUTER_API_KEY"),
		OpenRouterModel:  env.Get("OPENROUTER_MODEL_NAME"),
		OllamaURL:        env.GetWithDefault("OLLAMA_URL", ollama.DefaultServerURL),
		OllamaModel:      env.GetWithDefault("OLLAMA_MODEL", ollama.DefaultModel),

		HTTPAddr:      env.GetWithDefault("HTTP_ADDR", ":8000"),
		AccessLog:     env.GetBool("ACCESS_LOG", true),
		ShutdownGrace: env.GetDuration("SHUTDOWN_GRACE", 30*time.Second),

		BrowserHeadless:  env.GetBool("BROWSER_HEADLESS", true),
		BrowserNoSandbox: env.GetBool("BROWSER_NO_SANDBOX", false),
		BrowserSettle:    env.GetDuration("BROWSER_SETTLE", 2*time.Second),
		SnapshotDir:      env.Get("SNAPSHOT_DIR"),
		CleanHTML:        env.GetBool("CLEAN_HTML", false),

		ExecTimeout:   env.GetDuration("EXEC_TIMEOUT", 60*time.Second),
		SubmitTimeout: env.GetDuration("SUBMIT_TIMEOUT", 15*time.Second),
		MaxIterations: env.GetInt("MAX_ITERATIONS", 10),

		LogLevel: env.GetWithDefault("LOG_LEVEL", "info"),
	}
}
