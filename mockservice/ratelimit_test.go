package mockservice

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiharness/api-contract-tests/config"
)

func TestRateLimiterCountsPerWindow(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	t0 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	ok, remaining, reset := rl.allow("a", t0)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
	assert.Equal(t, t0.Add(time.Minute), reset)

	ok, remaining, _ = rl.allow("a", t0.Add(time.Second))
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)

	ok, remaining, reset = rl.allow("a", t0.Add(2*time.Second))
	assert.False(t, ok)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, t0.Add(time.Minute), reset)
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)
	t0 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	ok, _, _ := rl.allow("a", t0)
	require.True(t, ok)
	ok, _, _ = rl.allow("a", t0.Add(30*time.Second))
	require.False(t, ok)

	ok, _, reset := rl.allow("a", t0.Add(time.Minute))
	assert.True(t, ok)
	assert.Equal(t, t0.Add(2*time.Minute), reset)
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)
	t0 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	ok, _, _ := rl.allow("a", t0)
	require.True(t, ok)
	ok, _, _ = rl.allow("a", t0)
	require.False(t, ok)

	ok, _, _ = rl.allow("b", t0)
	assert.True(t, ok)
}

func TestRateLimiterDefaultsWindowToAMinute(t *testing.T) {
	rl := newRateLimiter(5, 0)
	t0 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	_, _, reset := rl.allow("a", t0)
	assert.Equal(t, t0.Add(time.Minute), reset)
}

func TestRateLimitHeadersAndDenial(t *testing.T) {
	s := New(config.MockConfig{Seed: 1, RateLimit: config.RateLimitConfig{Limit: 3, Window: time.Minute}}, nil)
	c := httphelpers.ClientFromHandler(s.Handler())

	for i := 0; i < 3; i++ {
		resp, err := c.Get("http://mock/flaky/quota?failures=0")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "3", resp.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(2-i), resp.Header.Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))
	}

	resp, err := c.Get("http://mock/flaky/quota?failures=0")
	require.NoError(t, err)
	body := decodeAs[apiError](t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", body.Error.Code)
	retryAfter, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 1)
}

func TestRateLimitSkipsHealthAndVersion(t *testing.T) {
	s := New(config.MockConfig{Seed: 1, RateLimit: config.RateLimitConfig{Limit: 1, Window: time.Minute}}, nil)
	c := httphelpers.ClientFromHandler(s.Handler())

	for i := 0; i < 5; i++ {
		resp, err := c.Get("http://mock/health")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("X-RateLimit-Limit"))
	}
}

func TestRateLimitBucketsByAuthorization(t *testing.T) {
	s := New(config.MockConfig{Seed: 1, RateLimit: config.RateLimitConfig{Limit: 1, Window: time.Minute}}, nil)
	c := httphelpers.ClientFromHandler(s.Handler())

	get := func(token string) int {
		req, err := http.NewRequest(http.MethodGet, "http://mock/slow?delay=0s", nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := c.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, get("alpha"))
	assert.Equal(t, http.StatusTooManyRequests, get("alpha"))
	assert.Equal(t, http.StatusOK, get("beta"))
}
