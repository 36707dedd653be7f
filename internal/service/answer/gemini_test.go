package answer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/retry"
)

var fastRetry = retry.Config{MaxRetries: 2, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2}

func completionBody(content, finishReason string) string {
	resp := map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gemma-3-1b-it",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finishReason,
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestGeminiClient_Complete(t *testing.T) {
	var captured map[string]any
	var authHeader, path string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		authHeader = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody("  Gophers dig tunnels.  ", "stop"))
	}))
	defer server.Close()

	client := NewGeminiClient("test-key", "", WithBaseURL(server.URL+"/"), WithRetry(fastRetry))
	text, err := client.Complete(context.Background(), "What do gophers do?")
	require.NoError(t, err)
	assert.Equal(t, "Gophers dig tunnels.", text)

	assert.Equal(t, "/chat/completions", path)
	assert.Equal(t, "Bearer test-key", authHeader)
	assert.Equal(t, "gemma-3-1b-it", captured["model"])
	assert.InDelta(t, 0.7, captured["temperature"], 1e-9)
	assert.InDelta(t, 2048, captured["max_tokens"], 1e-9)
	assert.InDelta(t, 1, captured["top_p"], 1e-9)

	messages := captured["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])

	extra := captured["extra_body"].(map[string]any)
	settings := extra["google"].(map[string]any)["safety_settings"].([]any)
	require.Len(t, settings, 4)
	for _, s := range settings {
		assert.Equal(t, "BLOCK_NONE", s.(map[string]any)["threshold"])
	}
}

func TestGeminiClient_Complete_Errors(t *testing.T) {
	tests := []struct {
		name     string
		apiKey   string
		status   int
		body     string
		wantCode string
	}{
		{name: "missing api key", apiKey: "", wantCode: errors.CodeConfig},
		{name: "blocked by safety filter", apiKey: "k", status: http.StatusOK, body: completionBody("", "content_filter"), wantCode: errors.CodeCompletionBlock},
		{name: "empty text", apiKey: "k", status: http.StatusOK, body: completionBody("", "stop"), wantCode: errors.CodeCompletion},
		{name: "bad request", apiKey: "k", status: http.StatusBadRequest, body: `{"error":{"message":"bad model"}}`, wantCode: errors.CodeCompletion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := NewGeminiClient(tt.apiKey, "gemma-3-1b-it", WithBaseURL(server.URL+"/"), WithRetry(fastRetry))
			_, err := client.Complete(context.Background(), "prompt")
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))

			if tt.apiKey == "" {
				assert.Zero(t, atomic.LoadInt32(&calls))
			} else {
				assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
			}
		})
	}
}

func TestGeminiClient_Complete_RetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":{"message":"overloaded"}}`)
			return
		}
		_, _ = io.WriteString(w, completionBody("ok", "stop"))
	}))
	defer server.Close()

	client := NewGeminiClient("k", "gemma-3-1b-it", WithBaseURL(server.URL+"/"), WithRetry(fastRetry))
	text, err := client.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestGeminiClient_Complete_GivesUp(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewGeminiClient("k", "gemma-3-1b-it", WithBaseURL(server.URL+"/"), WithRetry(fastRetry))
	_, err := client.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeCompletion))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}
