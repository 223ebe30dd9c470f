package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	o, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test", Model: "gpt-test", BaseURL: srv.URL + "/v1"}, nil)
	require.NoError(t, err)
	return o
}

func TestOpenAI_Generate(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"nodes\":[],\"edges\":[]}"},"finish_reason":"stop"}],"usage":{"total_tokens":12}}`))
	})

	text, err := o.Generate(context.Background(), "a flow")
	require.NoError(t, err)
	assert.Equal(t, `{"nodes":[],"edges":[]}`, text)
}

func TestOpenAI_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error","code":"invalid_api_key"}}`))
		})

		_, err := o.Generate(context.Background(), "p")
		assert.ErrorIs(t, err, ErrUnauthorized)

		var perr *ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "invalid_api_key", perr.Code)
		assert.Equal(t, http.StatusUnauthorized, perr.Status)
	})

	t.Run("no choices", func(t *testing.T) {
		o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"c1","choices":[]}`))
		})

		_, err := o.Generate(context.Background(), "p")
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})
}

func TestNew(t *testing.T) {
	g, err := New(Config{Provider: "none"}, nil)
	assert.NoError(t, err)
	assert.Nil(t, g)

	g, err = New(Config{Provider: "Gemini", Gemini: GeminiConfig{APIKey: "k"}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Gemini{}, g)

	g, err = New(Config{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "k"}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, g)

	_, err = New(Config{Provider: "openai"}, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = New(Config{Provider: "claude"}, nil)
	assert.ErrorIs(t, err, ErrUnknown)
}
