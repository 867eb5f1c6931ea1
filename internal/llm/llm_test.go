package llm_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Vijaya2621/Chatbot-using-API/internal/llm"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIGenerator_Generate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "llama-3.1-8b-instant",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  Paris.  "}}]
		}`)
	}))
	defer srv.Close()

	gen := llm.NewOpenAIGenerator(llm.Settings{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
		Model:   llm.DefaultGroqModel,
	}, option.WithMaxRetries(0))

	answer, err := gen.Generate(context.Background(), "Capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer)

	assert.Equal(t, llm.DefaultGroqModel, body["model"])
	assert.EqualValues(t, llm.DefaultMaxTokens, body["max_tokens"])
	assert.InDelta(t, llm.DefaultTemperature, body["temperature"], 1e-9)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "Capital of France?", msgs[0].(map[string]any)["content"])
}

func TestOpenAIGenerator_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error": {"message": "overloaded"}}`)
	}))
	defer srv.Close()

	gen := llm.NewOpenAIGenerator(llm.Settings{APIKey: "k", BaseURL: srv.URL}, option.WithMaxRetries(0))

	_, err := gen.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestAnthropicGenerator_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "Hello "}, {"type": "text", "text": "there."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 2}
		}`)
	}))
	defer srv.Close()

	gen := llm.NewAnthropicGenerator(llm.Settings{APIKey: "test-key", BaseURL: srv.URL}, anthropicoption.WithMaxRetries(0))

	answer, err := gen.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", answer)
}

func TestRegistry(t *testing.T) {
	reg := llm.DefaultRegistry()
	assert.Equal(t, []string{"anthropic", "groq", "openai"}, reg.Names())

	gen, err := reg.Get(context.Background(), " GROQ ", llm.Settings{APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &llm.OpenAIGenerator{}, gen)

	gen, err = reg.Get(context.Background(), "anthropic", llm.Settings{APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &llm.AnthropicGenerator{}, gen)

	_, err = reg.Get(context.Background(), "ollama", llm.Settings{})
	assert.Error(t, err)
}
