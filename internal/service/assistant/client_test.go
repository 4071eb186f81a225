package assistant

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateBody(text string) []byte {
	body, _ := json.Marshal(generateResponse{
		Candidates: []struct {
			Content content `json:"content"`
		}{
			{Content: content{Parts: []part{{Text: text}}}},
		},
	})
	return body
}

func newTestClient(t *testing.T, handler http.HandlerFunc, keys string) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(slog.Default(), &Config{
		APIKeys: keys,
		BaseURL: server.URL,
		Model:   "test-model",
	})
}

func TestAskReturnsReply(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "key-1", r.URL.Query().Get("key"))
		w.Write(candidateBody("Done."))
	}, "key-1")

	reply, err := client.Ask(context.Background(), "pause", "system")
	require.NoError(t, err)
	assert.Equal(t, "Done.", reply)
}

func TestAskRetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(candidateBody("ok"))
	}, "key-1, key-2")

	reply, err := client.Ask(context.Background(), "prompt", "system")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAskGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, "key-1")

	_, err := client.Ask(context.Background(), "prompt", "system")
	require.Error(t, err)
	assert.Equal(t, int32(maxAttempts), calls.Load())
}

func TestAskDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}, "key-1")

	_, err := client.Ask(context.Background(), "prompt", "system")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAskWithoutKeys(t *testing.T) {
	client := NewClient(slog.Default(), &Config{APIKeys: " , "})

	_, err := client.Ask(context.Background(), "prompt", "system")
	require.ErrorIs(t, err, ErrNoAPIKeys)
}

func TestAskEmptyCandidates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	}, "key-1")

	reply, err := client.Ask(context.Background(), "prompt", "system")
	require.NoError(t, err)
	assert.Equal(t, emptyReply, reply)
}
