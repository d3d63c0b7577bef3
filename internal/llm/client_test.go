package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "hello", req.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "test-model", time.Second, zerolog.Nop())
	got, err := c.Complete(context.Background(), "sys", "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, got)
}

func TestComplete_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "m", time.Second, zerolog.Nop())
	_, err := c.Complete(context.Background(), "sys", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
}

func TestComplete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "m", 50*time.Millisecond, zerolog.Nop())
	_, err := c.Complete(context.Background(), "sys", "hello")
	assert.Error(t, err)
}

func TestComplete_Disabled(t *testing.T) {
	c := NewClient("", "", "m", time.Second, zerolog.Nop())
	assert.False(t, c.Enabled())
	_, err := c.Complete(context.Background(), "sys", "hello")
	assert.ErrorIs(t, err, ErrDisabled)
}
