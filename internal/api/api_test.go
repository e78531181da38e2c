package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoEncodesJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "spot-trading-bot", r.Header.Get("User-Agent"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "echo": body["text"]})
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHeader("User-Agent", "spot-trading-bot"))
	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    "/send",
		Body:   map[string]string{"text": "hi"},
	})
	require.NoError(t, err)

	var out struct {
		OK   bool   `json:"ok"`
		Echo string `json:"echo"`
	}
	require.NoError(t, resp.ParseJSON(&out))
	assert.True(t, out.OK)
	assert.Equal(t, "hi", out.Echo)
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient().Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
}

func TestDoWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
	resp, err := NewClient().DoWithRetry(context.Background(), Request{Method: http.MethodGet, URL: srv.URL}, cfg)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoWithRetrySkipsClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := RetryConfig{MaxAttempts: 5, InitialWait: time.Millisecond}
	_, err := NewClient().DoWithRetry(context.Background(), Request{Method: http.MethodGet, URL: srv.URL}, cfg)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
