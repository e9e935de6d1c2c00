package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quiz-agent/internal/application/port/output"
	"quiz-agent/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeGemini struct {
	lastPath   string
	lastConfig map[string]any
	reply      string
	// raw, when set, is sent verbatim instead of a candidate built from reply.
	raw string
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	f.lastPath = r.URL.Path

	if r.Method == http.MethodGet {
		fmt.Fprint(w, `{"models":[{"name":"models/gemini-2.0-flash-001"},{"name":"models/gemini-1.5-pro"}]}`)
		return
	}

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.lastConfig, _ = body["generationConfig"].(map[string]any)

	if f.raw != "" {
		fmt.Fprint(w, f.raw)
		return
	}
	reply, _ := json.Marshal(f.reply)
	fmt.Fprintf(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":%s}]}}]}`, reply)
}

func newTestAdapter(t *testing.T, fake *fakeGemini) *GeminiAdapter {
	t.Helper()
	return newTestAdapterWithLogger(t, fake, nil)
}

func newTestAdapterWithLogger(t *testing.T, fake *fakeGemini, log output.LoggerPort) *GeminiAdapter {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	a, err := NewGeminiAdapter(context.Background(), Config{APIKey: "test-key", BaseURL: server.URL + "/", Logger: log})
	require.NoError(t, err)
	return a
}

func TestNewGeminiAdapter_RequiresKey(t *testing.T) {
	_, err := NewGeminiAdapter(context.Background(), Config{})
	assert.Error(t, err)
}

func TestNewGeminiAdapter_DefaultModel(t *testing.T) {
	a := newTestAdapter(t, &fakeGemini{})
	assert.Equal(t, "gemini:"+DefaultModel, a.Name())
}

func TestGenerate_JSONMode(t *testing.T) {
	fake := &fakeGemini{reply: `{"submit_url": "/submit", "question": "q"}`}
	a := newTestAdapter(t, fake)

	out, err := a.Generate(context.Background(), output.GenerateRequest{Prompt: "analyze", JSON: true})
	require.NoError(t, err)

	assert.Equal(t, `{"submit_url": "/submit", "question": "q"}`, out)
	assert.True(t, strings.HasSuffix(fake.lastPath, DefaultModel+":generateContent"), fake.lastPath)
	assert.Equal(t, "application/json", fake.lastConfig["responseMimeType"])
}

func TestGenerate_PlainText(t *testing.T) {
	fake := &fakeGemini{reply: "package main"}
	a := newTestAdapter(t, fake)

	out, err := a.Generate(context.Background(), output.GenerateRequest{Prompt: "code"})
	require.NoError(t, err)

	assert.Equal(t, "package main", out)
	assert.Nil(t, fake.lastConfig["responseMimeType"])
}

func TestGenerate_BlockedReplyIsEmptyText(t *testing.T) {
	for _, raw := range []string{
		`{"candidates":[{"finishReason":"SAFETY"}]}`,
		`{"candidates":[]}`,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":""}]}}]}`,
	} {
		core, logs := observer.New(zap.WarnLevel)
		a := newTestAdapterWithLogger(t, &fakeGemini{raw: raw}, logger.NewFromZap(zap.New(core)))

		out, err := a.Generate(context.Background(), output.GenerateRequest{Prompt: "code"})

		require.NoError(t, err, raw)
		assert.Empty(t, out, raw)
		assert.Equal(t, 1, logs.FilterMessage("Gemini returned no text").Len(), raw)
	}
}

func TestGenerate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer server.Close()

	a, err := NewGeminiAdapter(context.Background(), Config{APIKey: "k", BaseURL: server.URL + "/"})
	require.NoError(t, err)

	_, err = a.Generate(context.Background(), output.GenerateRequest{Prompt: "x"})
	assert.Error(t, err)
}

func TestListModels_StripsPrefix(t *testing.T) {
	a := newTestAdapter(t, &fakeGemini{})

	models, err := a.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini-2.0-flash-001", "gemini-1.5-pro"}, models)
}
