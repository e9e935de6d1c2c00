package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"quiz-agent/internal/application/port/output"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

var _ output.LLMPort = (*OllamaAdapter)(nil)

const (
	DefaultServerURL = "http://localhost:11434"
	DefaultModel     = "llama3"
)

type Config struct {
	ServerURL  string
	Model      string
	HTTPClient *http.Client
	Logger     output.LoggerPort
}

// OllamaAdapter talks to a local Ollama server through langchaingo.
type OllamaAdapter struct {
	llm       *ollama.LLM
	serverURL string
	model     string
	http      *http.Client
	logger    output.LoggerPort
}

func NewOllamaAdapter(cfg Config) (*OllamaAdapter, error) {
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.ServerURL),
		ollama.WithModel(cfg.Model),
		ollama.WithHTTPClient(cfg.HTTPClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	return &OllamaAdapter{
		llm:       llm,
		serverURL: strings.TrimRight(cfg.ServerURL, "/"),
		model:     cfg.Model,
		http:      cfg.HTTPClient,
		logger:    cfg.Logger,
	}, nil
}

func (a *OllamaAdapter) Name() string {
	return "ollama:" + a.model
}

func (a *OllamaAdapter) Generate(ctx context.Context, req output.GenerateRequest) (string, error) {
	var opts []llms.CallOption
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, a.llm, req.Prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("ollama generate failed: %w", err)
	}
	if a.logger != nil {
		a.logger.Debug("Ollama response", "model", a.model, "json", req.JSON, "chars", len(text))
	}
	return text, nil
}

// ListModels reads /api/tags, which langchaingo does not wrap.
func (a *OllamaAdapter) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.serverURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama list models failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama list models failed: %s", resp.Status)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode ollama tags: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
