package openai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/courseflow/llm"
	"github.com/BaSui01/courseflow/testutil"
	"github.com/BaSui01/courseflow/types"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{Name: "test", BaseURL: srv.URL, APIKey: "sk-test"}, zaptest.NewLogger(t))
}

func sampleRequest() *llm.ChatRequest {
	return &llm.ChatRequest{
		Model: "gpt-4o",
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "you are helpful"},
			{Role: llm.RoleUser, Content: "design a course"},
		},
		Temperature: 0.7,
	}
}

func TestProvider_Completion(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o", body["model"])
		assert.Len(t, body["messages"], 2)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o",
			"choices": [{"message": {"content": "course outline"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 34, "total_tokens": 46}
		}`))
	})

	resp, err := provider.Completion(testutil.TestContext(t), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "course outline", resp.Content)
	assert.Equal(t, "test", resp.Provider)
	assert.Equal(t, 46, resp.Usage.TotalTokens)
	assert.Greater(t, resp.Latency.Nanoseconds(), int64(0))
}

func TestProvider_Completion_RateLimited(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit exceeded", "type": "rate_limit"}}`))
	})

	_, err := provider.Completion(testutil.TestContext(t), sampleRequest())
	require.Error(t, err)
	assert.Equal(t, types.ErrRateLimited, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestProvider_Completion_ServerErrorRetryable(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := provider.Completion(testutil.TestContext(t), sampleRequest())
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
}

func TestProvider_Completion_ClientErrorNotRetryable(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid model", "type": "invalid_request"}}`))
	})

	_, err := provider.Completion(testutil.TestContext(t), sampleRequest())
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
	assert.False(t, types.IsRetryable(err))
}

func TestProvider_Completion_NoChoices(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model": "gpt-4o", "choices": []}`))
	})

	_, err := provider.Completion(testutil.TestContext(t), sampleRequest())
	require.Error(t, err)
	assert.Equal(t, types.ErrEmptyCompletion, types.GetErrorCode(err))
}

func TestProvider_Defaults(t *testing.T) {
	p := New(Config{}, nil)
	assert.Equal(t, "openai", p.Name())
}
