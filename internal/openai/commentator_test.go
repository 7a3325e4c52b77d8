package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "  The portfolio beat IBOV.  "}
  }]
}`

func TestComment(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completion)
	}))
	defer srv.Close()

	c := NewCommentator("sk-test", "gpt-4.1-nano", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	out, err := c.Comment(context.Background(), "PETR4: return 21%, volatility 30%\n")
	require.NoError(t, err)
	assert.Equal(t, "The portfolio beat IBOV.", out)

	assert.Equal(t, "gpt-4.1-nano", got["model"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	user := msgs[1].(map[string]any)
	assert.Equal(t, "user", user["role"])
	assert.Contains(t, user["content"], "PETR4: return 21%")
}

func TestCommentErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	c := NewCommentator("sk-bad", "", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	_, err := c.Comment(context.Background(), "report")
	assert.Error(t, err)

	_, err = c.Comment(context.Background(), strings.Repeat(" ", 3))
	assert.EqualError(t, err, "empty report")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", maxReportLen))
	assert.Equal(t, "a", truncate("aé", 2))
	assert.Equal(t, "aé", truncate("aé", 3))

	long := truncate(strings.Repeat("€", 2000), maxReportLen)
	assert.True(t, utf8.ValidString(long))
	assert.Len(t, long, 3999)
}
