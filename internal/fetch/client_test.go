package fetch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokewatch/stockworker/logger"
	"pokewatch/stockworker/services/cache"
)

// scriptedStrategy replays canned responses, repeating the last step once
// the script runs out.
type scriptedStrategy struct {
	mu    sync.Mutex
	steps []scriptedStep
	calls int
}

type scriptedStep struct {
	resp *Response
	err  error
}

func (s *scriptedStrategy) Do(ctx context.Context, url string) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.calls
	if idx >= len(s.steps) {
		idx = len(s.steps) - 1
	}
	s.calls++
	step := s.steps[idx]
	return step.resp, step.err
}

func (s *scriptedStrategy) Close() error { return nil }

func (s *scriptedStrategy) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func okResponse(body string) *Response {
	return &Response{
		StatusCode: http.StatusOK,
		Body:       []byte(body),
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		FinalURL:   "https://shop.example.com/page",
	}
}

func statusResponse(code int, header http.Header) *Response {
	if header == nil {
		header = http.Header{}
	}
	return &Response{StatusCode: code, Header: header}
}

// testClient wires a client around a scripted strategy and records sleeps
// instead of waiting them out.
func testClient(strategy Strategy, cooldown cache.CacheService) (*Client, *[]time.Duration) {
	c := NewClient(ClientOptions{
		Seller:      "test_seller",
		Strategy:    strategy,
		Cooldown:    cooldown,
		BackoffBase: 2 * time.Second,
		Logger:      logger.Nop(),
	})

	var sleeps []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return c, &sleeps
}

func TestFetchSuccess(t *testing.T) {
	strategy := &scriptedStrategy{steps: []scriptedStep{
		{resp: okResponse("<html><h1>Booster Box</h1></html>")},
	}}
	c, sleeps := testClient(strategy, nil)

	result := c.Fetch(context.Background(), "https://shop.example.com/page", 3)

	require.True(t, result.OK())
	assert.Contains(t, result.Content, "Booster Box")
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, 1, result.Attempts)
	assert.Empty(t, *sleeps)
}

func TestFetchRetriesTransientThenSucceeds(t *testing.T) {
	strategy := &scriptedStrategy{steps: []scriptedStep{
		{resp: statusResponse(http.StatusInternalServerError, nil)},
		{resp: statusResponse(http.StatusBadGateway, nil)},
		{resp: statusResponse(http.StatusServiceUnavailable, nil)},
		{resp: okResponse("recovered")},
	}}
	c, sleeps := testClient(strategy, nil)

	result := c.Fetch(context.Background(), "https://shop.example.com/page", 4)

	require.True(t, result.OK())
	assert.Equal(t, "recovered", result.Content)
	assert.Equal(t, 4, result.Attempts)
	assert.Equal(t, 4, strategy.callCount())

	// Three failed attempts produce exactly three waits, doubling each time
	require.Len(t, *sleeps, 3)
	assert.Equal(t, 4*time.Second, (*sleeps)[0])
	assert.Equal(t, 8*time.Second, (*sleeps)[1])
	assert.Equal(t, 16*time.Second, (*sleeps)[2])
	for i := 1; i < len(*sleeps); i++ {
		assert.GreaterOrEqual(t, (*sleeps)[i], (*sleeps)[i-1])
	}
}

func TestFetchBudgetExhausted(t *testing.T) {
	strategy := &scriptedStrategy{steps: []scriptedStep{
		{resp: statusResponse(http.StatusInternalServerError, nil)},
	}}
	c, sleeps := testClient(strategy, nil)

	result := c.Fetch(context.Background(), "https://shop.example.com/page", 3)

	require.False(t, result.OK())
	assert.Equal(t, FailureTransient, result.Failure.Kind)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, strategy.callCount())
	// no wait after the final attempt
	assert.Len(t, *sleeps, 2)
}

func TestFetchNetworkErrorsAreTransient(t *testing.T) {
	strategy := &scriptedStrategy{steps: []scriptedStep{
		{err: errors.New("connection reset")},
	}}
	c, _ := testClient(strategy, nil)

	result := c.Fetch(context.Background(), "https://shop.example.com/page", 2)

	require.False(t, result.OK())
	assert.Equal(t, FailureTransient, result.Failure.Kind)
	assert.ErrorContains(t, result.Failure, "connection reset")
}

func TestFetchRetryAfterDoesNotConsumeAttempt(t *testing.T) {
	header := http.Header{"Retry-After": []string{"5"}}
	strategy := &scriptedStrategy{steps: []scriptedStep{
		{resp: statusResponse(http.StatusTooManyRequests, header)},
		{resp: okResponse("after hint")},
	}}
	c, sleeps := testClient(strategy, nil)

	// budget of one still succeeds, the hinted retry is free
	result := c.Fetch(context.Background(), "https://shop.example.com/page", 1)

	require.True(t, result.OK())
	assert.Equal(t, "after hint", result.Content)
	assert.Equal(t, 2, strategy.callCount())
	require.Len(t, *sleeps, 1)
	assert.Equal(t, 5*time.Second, (*sleeps)[0])
}

func TestFetchRetryAfterHintCapped(t *testing.T) {
	header := http.Header{"Retry-After": []string{"3600"}}
	strategy := &scriptedStrategy{steps: []scriptedStep{
		{resp: statusResponse(http.StatusTooManyRequests, header)},
		{resp: okResponse("ok")},
	}}
	c, sleeps := testClient(strategy, nil)

	result := c.Fetch(context.Background(), "https://shop.example.com/page", 1)

	require.True(t, result.OK())
	require.Len(t, *sleeps, 1)
	assert.Equal(t, maxRetryAfterWait, (*sleeps)[0])
}

func TestFetchRetryAfterHonorLimit(t *testing.T) {
	header := http.Header{"Retry-After": []string{"1"}}
	strategy := &scriptedStrategy{steps: []scriptedStep{
		{resp: statusResponse(http.StatusTooManyRequests, header)},
	}}
	c, _ := testClient(strategy, nil)

	result := c.Fetch(context.Background(), "https://shop.example.com/page", 2)

	require.False(t, result.OK())
	assert.Equal(t, FailureTransient, result.Failure.Kind)
	// three free honors, then the budget of two is spent normally
	assert.Equal(t, maxRetryAfterHonors+2, strategy.callCount())
}

func TestFetchServiceUnavailableHonorsHint(t *testing.T) {
	header := http.Header{"Retry-After": []string{"7"}}
	strategy := &scriptedStrategy{steps: []scriptedStep{
		{resp: statusResponse(http.StatusServiceUnavailable, header)},
		{resp: okResponse("back up")},
	}}
	c, sleeps := testClient(strategy, nil)

	// a 503 with a hint behaves like a 429, the retry is free
	result := c.Fetch(context.Background(), "https://shop.example.com/page", 1)

	require.True(t, result.OK())
	assert.Equal(t, "back up", result.Content)
	assert.Equal(t, 2, strategy.callCount())
	require.Len(t, *sleeps, 1)
	assert.Equal(t, 7*time.Second, (*sleeps)[0])
}

func TestFetchClientErrorIsPermanent(t *testing.T) {
	strategy := &scriptedStrategy{steps: []scriptedStep{
		{resp: statusResponse(http.StatusNotFound, nil)},
	}}
	cooldown := cache.NewMemoryService()
	c, sleeps := testClient(strategy, cooldown)

	result := c.Fetch(context.Background(), "https://shop.example.com/gone", 3)

	require.False(t, result.OK())
	assert.Equal(t, FailurePermanent, result.Failure.Kind)
	assert.Equal(t, http.StatusNotFound, result.Failure.StatusCode)
	assert.Equal(t, 1, strategy.callCount(), "no retries on a permanent failure")
	assert.Empty(t, *sleeps)

	// a plain 404 is not a block, the seller keeps being fetched
	_, err := cooldown.Get("fetch_blocked_test_seller")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestFetchBlockedArmsCooldown(t *testing.T) {
	strategy := &scriptedStrategy{steps: []scriptedStep{
		{resp: statusResponse(http.StatusForbidden, nil)},
	}}
	cooldown := cache.NewMemoryService()
	c, _ := testClient(strategy, cooldown)

	result := c.Fetch(context.Background(), "https://shop.example.com/page", 3)

	require.False(t, result.OK())
	assert.Equal(t, FailurePermanent, result.Failure.Kind)
	assert.Equal(t, "blocked", result.Failure.Detail)

	_, err := cooldown.Get("fetch_blocked_test_seller")
	assert.NoError(t, err, "cooldown should be armed")

	// while cooling down, the strategy is not called again
	result = c.Fetch(context.Background(), "https://shop.example.com/page", 3)
	require.False(t, result.OK())
	assert.Equal(t, FailurePermanent, result.Failure.Kind)
	assert.Equal(t, 1, strategy.callCount())
}

func TestFetchContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	strategy := &scriptedStrategy{steps: []scriptedStep{
		{err: context.Canceled},
	}}
	c, _ := testClient(strategy, nil)

	result := c.Fetch(ctx, "https://shop.example.com/page", 3)

	require.False(t, result.OK())
	assert.Equal(t, FailureTransient, result.Failure.Kind)
	assert.Equal(t, "cancelled", result.Failure.Detail)
	assert.Equal(t, 1, strategy.callCount())
}

func TestFetchClampsAttemptBudget(t *testing.T) {
	strategy := &scriptedStrategy{steps: []scriptedStep{
		{resp: okResponse("ok")},
	}}
	c, _ := testClient(strategy, nil)

	result := c.Fetch(context.Background(), "https://shop.example.com/page", 0)

	require.True(t, result.OK())
	assert.Equal(t, 1, result.Attempts)
}
