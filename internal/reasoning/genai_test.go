// internal/reasoning/genai_test.go
package reasoning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ticket-router/internal/common/config"
	"ticket-router/internal/common/errors"
	"ticket-router/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenAITestClient(t *testing.T, baseURL string) *GenAIClient {
	t.Helper()
	client, err := NewGenAIClient(config.ReasoningAPIConfig{
		BaseURL:     baseURL,
		Model:       "gemini-2.0-flash",
		Temperature: 0,
		MaxTokens:   2048,
		Timeout:     2000,
		MaxRetries:  2,
	}, logger.NewTestLogger(t))
	require.NoError(t, err)
	return client
}

func TestGenerate_SendsFixedTemperature(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"text":"Lang: en | Query: printer offline"}`))
	}))
	defer server.Close()

	client := newGenAITestClient(t, server.URL)
	text, err := client.Normalize(context.Background(), "normalize this")
	require.NoError(t, err)
	assert.Equal(t, "Lang: en | Query: printer offline", text)
	assert.Equal(t, float64(0), captured["temperature"])
	assert.Equal(t, "normalize this", captured["prompt"])
}

func TestGenerate_RetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"text":"ok"}`))
	}))
	defer server.Close()

	client := newGenAITestClient(t, server.URL)
	text, err := client.Rerank(context.Background(), "rank these")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 2, calls)
}

func TestGenerate_ClientErrorIsNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newGenAITestClient(t, server.URL)
	_, err := client.Normalize(context.Background(), "normalize this")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeReasoningServiceFailed, errors.CodeOf(err))
	assert.Equal(t, 1, calls)
}

func TestGenerate_RetriesRateLimiting(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"text":"ok"}`))
	}))
	defer server.Close()

	client := newGenAITestClient(t, server.URL)
	text, err := client.Rerank(context.Background(), "rank these")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 2, calls)
}

func TestGenerate_ExhaustedRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newGenAITestClient(t, server.URL)
	_, err := client.Select(context.Background(), "choose one")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeReasoningServiceFailed, errors.CodeOf(err))
}

func TestGenerate_EmptyCompletionIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"   "}`))
	}))
	defer server.Close()

	client := newGenAITestClient(t, server.URL)
	_, err := client.Normalize(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeReasoningServiceFailed, errors.CodeOf(err))
}

func TestGenerate_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"text":"late"}`))
	}))
	defer server.Close()

	client, err := NewGenAIClient(config.ReasoningAPIConfig{
		BaseURL: server.URL,
		Timeout: 50,
	}, logger.NewTestLogger(t))
	require.NoError(t, err)

	_, err = client.Normalize(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeReasoningServiceFailed, errors.CodeOf(err))
}
