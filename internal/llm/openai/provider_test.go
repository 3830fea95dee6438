package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/orihero/aish-sub002/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"content":"What is a goroutine?"}}],"usage":{"total_tokens":42}}`))
	}))
	defer srv.Close()

	p := NewProvider("sk-test", srv.URL+"/", "", 5*time.Second)

	resp, err := p.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: "be an interviewer"},
			{Role: "user", Content: "hi"},
		},
		Temperature: 0.7,
	})
	require.NoError(t, err)

	assert.Equal(t, "What is a goroutine?", resp.Content)
	assert.Equal(t, 42, resp.TokensUsed)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 0.7, got.Temperature)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestProvider_Complete_Errors(t *testing.T) {
	t.Run("non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := NewProvider("k", srv.URL, "m", time.Second).Complete(context.Background(), llm.CompletionRequest{})
		assert.ErrorContains(t, err, "status 429")
	})

	t.Run("no choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()

		_, err := NewProvider("k", srv.URL, "m", time.Second).Complete(context.Background(), llm.CompletionRequest{})
		assert.ErrorIs(t, err, llm.ErrEmptyCompletion)
	})

	t.Run("malformed payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		_, err := NewProvider("k", srv.URL, "m", time.Second).Complete(context.Background(), llm.CompletionRequest{})
		assert.ErrorContains(t, err, "decode")
	})

	t.Run("context deadline", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			<-r.Context().Done()
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := NewProvider("k", srv.URL, "m", time.Minute).Complete(ctx, llm.CompletionRequest{})
		assert.Error(t, err)
	})
}
