package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClientNotConfigured(t *testing.T) {
	c := NewOpenAIClient(OpenAIConfig{})
	assert.False(t, c.Enabled())

	_, err := c.Complete(context.Background(), ChatRequest{Prompt: "hola"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = c.Transcribe(context.Background(), "missing.m4a")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOpenAIClientComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  Hoy llueve en Quito.  "}}]
		}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/"})
	out, err := c.Complete(context.Background(), ChatRequest{
		System:      "sys",
		Prompt:      "¿Llueve?",
		MaxTokens:   300,
		Temperature: 0.7,
		Schema:      PredictionSchema(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Hoy llueve en Quito.", out)

	assert.Equal(t, DefaultModel, body["model"])
	assert.EqualValues(t, 300, body["max_tokens"])
	format, ok := body["response_format"].(map[string]any)
	require.True(t, ok, "response_format missing")
	assert.Equal(t, "json_schema", format["type"])
}

func TestOpenAIClientUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "bad", BaseURL: srv.URL + "/"})
	_, err := c.Complete(context.Background(), ChatRequest{Prompt: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotConfigured)
}

func TestOpenAIClientTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "es", r.FormValue("language"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":" Clima en Guayaquil "}`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "audio.m4a")
	require.NoError(t, os.WriteFile(path, []byte("fake audio"), 0o600))

	c := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/"})
	text, err := c.Transcribe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Clima en Guayaquil", text)
}
