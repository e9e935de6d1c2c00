package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"quiz-agent/internal/application/port/output"

	"google.golang.org/genai"
)

var _ output.LLMPort = (*GeminiAdapter)(nil)

const DefaultModel = "gemini-2.0-flash-001"

type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini API endpoint.
	BaseURL    string
	HTTPClient *http.Client
	Logger     output.LoggerPort
}

type GeminiAdapter struct {
	client *genai.Client
	model  string
	logger output.LoggerPort
}

func NewGeminiAdapter(ctx context.Context, cfg Config) (*GeminiAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiAdapter{client: client, model: cfg.Model, logger: cfg.Logger}, nil
}

func (a *GeminiAdapter) Name() string {
	return "gemini:" + a.model
}

func (a *GeminiAdapter) Generate(ctx context.Context, req output.GenerateRequest) (string, error) {
	var config *genai.GenerateContentConfig
	if req.JSON {
		config = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	// A blocked or empty candidate is an empty reply, not a failure: the
	// caller decides what an empty analysis or empty program means.
	text := resp.Text()
	if text == "" && a.logger != nil {
		a.logger.Warn("Gemini returned no text", "model", a.model, "json", req.JSON, "finish_reason", finishReason(resp))
	}
	if a.logger != nil {
		a.logger.Debug("Gemini response", "model", a.model, "json", req.JSON, "chars", len(text))
	}
	return text, nil
}

func finishReason(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return ""
	}
	return string(resp.Candidates[0].FinishReason)
}

// ListModels returns model names without the "models/" prefix.
func (a *GeminiAdapter) ListModels(ctx context.Context) ([]string, error) {
	page, err := a.client.Models.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("GenAI list models failed: %w", err)
	}
	names := make([]string, 0, len(page.Items))
	for _, m := range page.Items {
		names = append(names, strings.TrimPrefix(m.Name, "models/"))
	}
	return names, nil
}
