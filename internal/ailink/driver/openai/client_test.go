package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/readmegen/readmegen/internal/ailink/content"
	"github.com/readmegen/readmegen/internal/ailink/driver"
)

func userRequest(model, text string) *driver.Request {
	return &driver.Request{Model: model, Messages: []content.Message{content.Text(content.RoleUser, text)}}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.Complete(context.Background(), userRequest("test", "hi"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestClientRequiresModelAndMessages(t *testing.T) {
	client := NewClient("", "test-key")
	_, err := client.Complete(context.Background(), userRequest("", "hi"))
	require.ErrorContains(t, err, "model")

	_, err = client.Complete(context.Background(), &driver.Request{Model: "m"})
	require.ErrorContains(t, err, "messages")
}

func TestClientSendsRequestAndParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, "gpt-3.5-turbo", payload.Model)
		require.Len(t, payload.Messages, 2)
		require.Equal(t, "system", payload.Messages[0].Role)
		require.Equal(t, "sys", payload.Messages[0].Content)
		require.Equal(t, "usr", payload.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"# widget"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.Complete(context.Background(), &driver.Request{
		Model: "gpt-3.5-turbo",
		Messages: []content.Message{
			content.Text(content.RoleSystem, "sys"),
			content.Text(content.RoleUser, "usr"),
		},
	})
	require.NoError(t, err)
	require.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	require.Equal(t, 3, resp.Usage.TotalTokens)
	require.Equal(t, "# widget", resp.Text())
}

func TestClientErrorsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), userRequest("test", "hi"))
	require.Error(t, err)

	var perr *driver.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, http.StatusUnauthorized, perr.StatusCode)
	require.Equal(t, "Incorrect API key provided", perr.Message)
	require.False(t, perr.Retryable())
}

func TestClientRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), userRequest("test", "hi"))
	require.ErrorContains(t, err, "empty response choices")
}

func TestClientWritesTrace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "trace.ndjson")
	cleanup, err := driver.EnableTracing(path)
	require.NoError(t, err)

	client := NewClient(server.URL, "secret-key")
	client.HTTPClient = server.Client()
	_, err = client.Complete(context.Background(), userRequest("test", "hi"))
	require.NoError(t, err)
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	require.NotContains(t, lines[0], "secret-key")

	var entry driver.TraceEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "openai", entry.Driver)
	require.Equal(t, "test", entry.Model)
	require.Equal(t, http.StatusOK, entry.StatusCode)
}
