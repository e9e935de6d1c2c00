package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"quiz-agent/internal/application/port/output"
	"quiz-agent/internal/domain/entity"
)

var _ output.SubmitterPort = (*HTTPSubmitter)(nil)

// ErrBadNextURL marks a response whose url field is present but not a string.
var ErrBadNextURL = errors.New("next url is not a string")

const (
	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 1 << 20
	contentTypeJSON  = "application/json"
)

type Config struct {
	Timeout time.Duration
	Client  *http.Client
}

type HTTPSubmitter struct {
	client *http.Client
	logger output.LoggerPort
}

func NewHTTPSubmitter(cfg Config, logger output.LoggerPort) *HTTPSubmitter {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	// copy so the caller's client keeps its own timeout
	c := *client
	c.Timeout = timeout

	return &HTTPSubmitter{client: &c, logger: logger}
}

// Submit posts the payload as JSON. Any response that is not a JSON object
// is an error; a non-2xx status with a JSON body is still decoded, since
// quiz servers report wrong answers that way too.
func (s *HTTPSubmitter) Submit(ctx context.Context, endpoint string, payload entity.SubmissionPayload) (*entity.SubmissionResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post answer: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	s.logger.Debug("Submission response received",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if decoded == nil {
		return nil, fmt.Errorf("decode response (status %d): not a JSON object", resp.StatusCode)
	}

	return toResult(decoded)
}

// toResult treats a null or missing url as the end of the chain. Any other
// non-string url is an error so a malformed continuation is never read as
// a finished quiz.
func toResult(decoded map[string]any) (*entity.SubmissionResult, error) {
	res := &entity.SubmissionResult{Raw: decoded}
	if correct, ok := decoded["correct"].(bool); ok {
		res.Correct = correct
	}
	switch next := decoded["url"].(type) {
	case nil:
	case string:
		res.NextURL = next
	default:
		return nil, fmt.Errorf("%w: got %T", ErrBadNextURL, next)
	}
	return res, nil
}
