package clients

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
)

func TestOpenAICompatibleClient_Reason(t *testing.T) {
	t.Run("structured response", func(t *testing.T) {
		var got chatRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &got))
			_, _ = w.Write([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"{\"signal\":\"BUY\",\"confidence\":88}"}}]}`))
		}))
		defer srv.Close()

		c := NewOpenAICompatibleClient(srv.URL, "secret", "gpt-4o-mini", WithRetries(0, time.Millisecond))
		resp, err := c.Reason(context.Background(), ReasoningRequest{
			SystemPrompt: "sys", UserPrompt: "user", Temperature: 0.3, Schema: VerdictSchema(),
		})
		require.NoError(t, err)

		assert.JSONEq(t, `{"signal":"BUY","confidence":88}`, string(resp.Structured))
		assert.Equal(t, "gpt-4o-mini", resp.Model)
		require.Len(t, got.Messages, 2)
		assert.Equal(t, "system", got.Messages[0].Role)
		assert.Equal(t, "user", got.Messages[1].Content)
		require.NotNil(t, got.ResponseFormat)
		assert.Equal(t, "json_schema", got.ResponseFormat.Type)
		assert.Equal(t, 0.3, got.Temperature)

		// strict mode rejects schemas with optional properties
		require.NotNil(t, got.ResponseFormat.JSONSchema)
		assert.True(t, got.ResponseFormat.JSONSchema.Strict)
		var schema struct {
			Properties           map[string]json.RawMessage `json:"properties"`
			Required             []string                   `json:"required"`
			AdditionalProperties bool                       `json:"additionalProperties"`
		}
		require.NoError(t, json.Unmarshal(got.ResponseFormat.JSONSchema.Schema, &schema))
		assert.False(t, schema.AdditionalProperties)
		require.NotEmpty(t, schema.Properties)
		for name := range schema.Properties {
			assert.Contains(t, schema.Required, name)
		}
	})

	t.Run("free text without schema", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"SIGNAL: SELL, CONFIDENCE: 75%"}}]}`))
		}))
		defer srv.Close()

		c := NewOpenAICompatibleClient(srv.URL, "k", "m", WithRetries(0, time.Millisecond))
		resp, err := c.Reason(context.Background(), ReasoningRequest{UserPrompt: "x"})
		require.NoError(t, err)
		assert.Empty(t, resp.Structured)
		assert.Equal(t, "SIGNAL: SELL, CONFIDENCE: 75%", resp.Completion)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
		}))
		defer srv.Close()

		c := NewOpenAICompatibleClient(srv.URL, "k", "m", WithRetries(2, time.Millisecond))
		resp, err := c.Reason(context.Background(), ReasoningRequest{})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Completion)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		c := NewOpenAICompatibleClient(srv.URL, "k", "m", WithRetries(3, time.Millisecond))
		_, err := c.Reason(context.Background(), ReasoningRequest{})
		require.Error(t, err)

		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusUnauthorized, se.Code)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("no choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()

		c := NewOpenAICompatibleClient(srv.URL, "k", "m", WithRetries(3, time.Millisecond))
		_, err := c.Reason(context.Background(), ReasoningRequest{})
		assert.Error(t, err)
	})

	t.Run("empty api key", func(t *testing.T) {
		c := NewOpenAICompatibleClient("http://127.0.0.1:1", "", "m")
		_, err := c.Reason(context.Background(), ReasoningRequest{})
		assert.Error(t, err)
	})

	t.Run("context deadline", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		c := NewOpenAICompatibleClient(srv.URL, "k", "m", WithRetries(3, time.Millisecond))
		start := time.Now()
		_, err := c.Reason(ctx, ReasoningRequest{})
		assert.Error(t, err)
		assert.Less(t, time.Since(start), time.Second)
	})
}
