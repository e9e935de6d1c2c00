// Package quizkit is the capability set handed to generated answer code:
// downloads, tables, numeric helpers, PDF text and HTML selection.
package quizkit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxBytes = 50 << 20
)

// Kit carries the per-execution state of the download helpers.
type Kit struct {
	ctx      context.Context
	client   *http.Client
	maxBytes int64
}

type Option func(*Kit)

func WithHTTPClient(c *http.Client) Option {
	return func(k *Kit) { k.client = c }
}

func WithMaxBytes(n int64) Option {
	return func(k *Kit) { k.maxBytes = n }
}

// New binds downloads to ctx, so they stop when the execution deadline passes.
func New(ctx context.Context, opts ...Option) *Kit {
	k := &Kit{
		ctx:      ctx,
		client:   &http.Client{Timeout: defaultTimeout},
		maxBytes: defaultMaxBytes,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *Kit) GetBytes(url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(k.ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("get %s: status %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, k.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if int64(len(data)) > k.maxBytes {
		return nil, fmt.Errorf("get %s: body exceeds %d bytes", url, k.maxBytes)
	}
	return data, nil
}

func (k *Kit) Get(url string) (string, error) {
	data, err := k.GetBytes(url)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
