package classifier_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenbot/warden/internal/classifier"
	"go.uber.org/zap"
)

// scoreServer serves a fixed probability and counts requests.
func scoreServer(t *testing.T, probability float64) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/score", r.URL.Path)

		var req struct {
			Text string `json:"text"`
		}
		require.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Text)

		fmt.Fprintf(w, `{"probability": %f}`, probability)
	}))
	t.Cleanup(server.Close)

	return server, &calls
}

func testCache(t *testing.T) rueidis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

func TestClientScore(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the service probability", func(t *testing.T) {
		server, _ := scoreServer(t, 0.7321)
		client := classifier.NewClient(server.URL, time.Second, 1, nil, 0, zap.NewNop())

		score, err := client.Score(ctx, "pay me or I share your photos")
		require.NoError(t, err)
		assert.InDelta(t, 0.7321, score, 1e-6)
	})

	t.Run("unreachable service fails with ErrUnavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(server.Close)

		client := classifier.NewClient(server.URL, time.Second, 1, nil, 0, zap.NewNop())

		_, err := client.Score(ctx, "hello")
		require.ErrorIs(t, err, classifier.ErrUnavailable)
	})

	t.Run("recovers within the retry budget", func(t *testing.T) {
		var calls atomic.Int64

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}

			fmt.Fprint(w, `{"probability": 0.25}`)
		}))
		t.Cleanup(server.Close)

		client := classifier.NewClient(server.URL, time.Second, 2, nil, 0, zap.NewNop())

		score, err := client.Score(ctx, "hello")
		require.NoError(t, err)
		assert.InDelta(t, 0.25, score, 1e-6)
		assert.Equal(t, int64(2), calls.Load())
	})

	t.Run("out-of-range probability is rejected", func(t *testing.T) {
		server, _ := scoreServer(t, 1.5)
		client := classifier.NewClient(server.URL, time.Second, 1, nil, 0, zap.NewNop())

		_, err := client.Score(ctx, "hello")
		require.ErrorIs(t, err, classifier.ErrInvalidScore)
	})
}

func TestClientScoreCache(t *testing.T) {
	ctx := context.Background()

	t.Run("repeated text is served from cache", func(t *testing.T) {
		server, calls := scoreServer(t, 0.6)
		client := classifier.NewClient(server.URL, time.Second, 1, testCache(t), time.Hour, zap.NewNop())

		first, err := client.Score(ctx, "same text")
		require.NoError(t, err)

		second, err := client.Score(ctx, "same text")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("distinct texts are scored independently", func(t *testing.T) {
		server, calls := scoreServer(t, 0.6)
		client := classifier.NewClient(server.URL, time.Second, 1, testCache(t), time.Hour, zap.NewNop())

		_, err := client.Score(ctx, "first text")
		require.NoError(t, err)

		_, err = client.Score(ctx, "second text")
		require.NoError(t, err)

		assert.Equal(t, int64(2), calls.Load())
	})

	t.Run("cache outage degrades to direct scoring", func(t *testing.T) {
		server, calls := scoreServer(t, 0.6)

		mr, err := miniredis.Run()
		require.NoError(t, err)

		cache, err := rueidis.NewClient(rueidis.ClientOption{
			InitAddress:  []string{mr.Addr()},
			DisableCache: true,
		})
		require.NoError(t, err)
		t.Cleanup(cache.Close)

		client := classifier.NewClient(server.URL, time.Second, 1, cache, time.Hour, zap.NewNop())

		_, err = client.Score(ctx, "same text")
		require.NoError(t, err)

		// With Redis down every call reaches the service.
		mr.Close()

		score, err := client.Score(ctx, "same text")
		require.NoError(t, err)
		assert.InDelta(t, 0.6, score, 1e-6)
		assert.Equal(t, int64(2), calls.Load())
	})
}
