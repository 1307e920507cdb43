// Package classifier wraps the external sextortion-scoring service behind a
// single Score call. The model itself (tokenization, transformer forward
// pass, weights) lives in the inference service; this package only speaks
// its small HTTP protocol.
package classifier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

var (
	// ErrUnavailable signals that the scoring service could not be reached
	// after retries. Callers must treat it as non-fatal: the message is
	// still forwarded, just unscored.
	ErrUnavailable = errors.New("classifier service unavailable")

	// ErrInvalidScore signals a response outside [0, 1].
	ErrInvalidScore = errors.New("classifier returned score outside [0,1]")
)

type scoreRequest struct {
	Text string `json:"text"`
}

type scoreResponse struct {
	Probability float64 `json:"probability"`
}

// Client scores message text against the external classifier. Scores are
// deterministic for identical input given fixed model weights, so they are
// cached in Redis keyed by a hash of the text.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      rueidis.Client
	cacheTTL   time.Duration
	maxRetries uint64
	logger     *zap.Logger
}

// NewClient builds a classifier client. A nil cache disables score caching.
func NewClient(
	baseURL string,
	timeout time.Duration,
	maxRetries uint64,
	cache rueidis.Client,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		cache:      cache,
		cacheTTL:   cacheTTL,
		maxRetries: maxRetries,
		logger:     logger.Named("classifier"),
	}
}

// Score returns the probability in [0,1] that the text is a sextortion
// attempt. Transport failures are retried with exponential backoff; on
// exhaustion the call fails with ErrUnavailable.
func (c *Client) Score(ctx context.Context, text string) (float64, error) {
	key := cacheKey(text)

	if score, ok := c.cachedScore(ctx, key); ok {
		return score, nil
	}

	var score float64

	operation := func() error {
		var err error

		score, err = c.requestScore(ctx, text)

		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		c.logger.Warn("Classifier unreachable", zap.Error(err))
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if score < 0 || score > 1 {
		return 0, fmt.Errorf("%w: %f", ErrInvalidScore, score)
	}

	c.storeScore(ctx, key, score)

	return score, nil
}

func (c *Client) requestScore(ctx context.Context, text string) (float64, error) {
	body, err := sonic.Marshal(scoreRequest{Text: text})
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("failed to marshal score request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("failed to create score request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("score request failed: HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed scoreResponse
	if err := sonic.Unmarshal(respBody, &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse score response: %w", err)
	}

	return parsed.Probability, nil
}

// cachedScore looks up a previously computed score. Cache failures are
// treated as misses.
func (c *Client) cachedScore(ctx context.Context, key string) (float64, bool) {
	if c.cache == nil {
		return 0, false
	}

	value, err := c.cache.Do(ctx, c.cache.B().Get().Key(key).Build()).ToString()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			c.logger.Debug("Score cache lookup failed", zap.Error(err))
		}

		return 0, false
	}

	score, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}

	return score, true
}

func (c *Client) storeScore(ctx context.Context, key string, score float64) {
	if c.cache == nil {
		return
	}

	cmd := c.cache.B().Set().
		Key(key).
		Value(strconv.FormatFloat(score, 'f', -1, 64)).
		Ex(c.cacheTTL).
		Build()

	if err := c.cache.Do(ctx, cmd).Error(); err != nil {
		c.logger.Debug("Score cache store failed", zap.Error(err))
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "classifier:score:" + hex.EncodeToString(sum[:])
}
