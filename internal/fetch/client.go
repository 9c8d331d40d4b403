package fetch

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"pokewatch/stockworker/logger"
	"pokewatch/stockworker/services/cache"
)

const (
	defaultBackoffBase = 2 * time.Second
	defaultBlockTTL    = 30 * time.Minute

	// maxRetryAfterWait caps how long a single Retry-After hint can hold us
	maxRetryAfterWait = 60 * time.Second
	// maxRetryAfterHonors bounds free retries granted by Retry-After hints
	maxRetryAfterHonors = 3
)

// Client fetches pages for one seller. It rate limits requests, retries
// transient failures with exponential backoff, honors Retry-After hints,
// and puts the seller into a cooldown after a block.
type Client struct {
	seller      string
	strategy    Strategy
	limiter     *rate.Limiter
	cooldown    cache.CacheService
	cooldownKey string
	blockTTL    time.Duration
	backoffBase time.Duration
	log         *logger.Logger

	// sleep is replaced in tests to observe waits
	sleep func(ctx context.Context, d time.Duration) error
}

// ClientOptions configures a seller fetch client.
type ClientOptions struct {
	Seller      string
	Strategy    Strategy
	Limiter     *rate.Limiter
	Cooldown    cache.CacheService
	BlockTTL    time.Duration
	BackoffBase time.Duration
	Logger      *logger.Logger
}

// NewClient creates a fetch client for one seller.
func NewClient(opts ClientOptions) *Client {
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.BlockTTL <= 0 {
		opts.BlockTTL = defaultBlockTTL
	}
	log := opts.Logger
	if log == nil {
		log = logger.ForFetcher(opts.Seller)
	}

	return &Client{
		seller:      opts.Seller,
		strategy:    opts.Strategy,
		limiter:     opts.Limiter,
		cooldown:    opts.Cooldown,
		cooldownKey: "fetch_blocked_" + opts.Seller,
		blockTTL:    opts.BlockTTL,
		backoffBase: opts.BackoffBase,
		log:         log,
		sleep:       sleepContext,
	}
}

// Seller returns the seller ID this client fetches for.
func (c *Client) Seller() string {
	return c.seller
}

// Fetch retrieves one URL, spending at most attemptBudget attempts. It
// always returns a Result, problems surface as Result.Failure rather than
// an error or a panic.
func (c *Client) Fetch(ctx context.Context, url string, attemptBudget int) *Result {
	if attemptBudget < 1 {
		attemptBudget = 1
	}

	if c.coolingDown() {
		return &Result{Failure: &Failure{
			Kind:   FailurePermanent,
			Detail: "seller is cooling down after a block",
		}}
	}

	var last *Failure
	attempt := 0
	hintsHonored := 0

	for attempt < attemptBudget {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return &Result{Attempts: attempt, Failure: cancelledFailure(err)}
			}
		}

		resp, err := c.strategy.Do(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return &Result{Attempts: attempt, Failure: cancelledFailure(ctx.Err())}
			}
			last = &Failure{Kind: FailureTransient, Detail: "request failed", Err: err}
			attempt++
			if attempt < attemptBudget {
				if serr := c.sleep(ctx, c.backoff(attempt)); serr != nil {
					return &Result{Attempts: attempt, Failure: cancelledFailure(serr)}
				}
			}
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return &Result{
				Content:     string(resp.Body),
				ContentType: resp.Header.Get("Content-Type"),
				FinalURL:    resp.FinalURL,
				StatusCode:  resp.StatusCode,
				Attempts:    attempt + 1,
			}

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 430:
			if hint, ok := retryAfterHint(resp.Header); ok && hintsHonored < maxRetryAfterHonors {
				hintsHonored++
				if hint > maxRetryAfterWait {
					hint = maxRetryAfterWait
				}
				c.log.Warn().
					Str("url", url).
					Dur("wait", hint).
					Msg("Rate limited, honoring Retry-After")
				if serr := c.sleep(ctx, hint); serr != nil {
					return &Result{Attempts: attempt, Failure: cancelledFailure(serr)}
				}
				// the server said when to come back, so the attempt is not spent
				continue
			}
			last = &Failure{Kind: FailureTransient, StatusCode: resp.StatusCode, Detail: "rate limited"}
			attempt++
			if attempt < attemptBudget {
				if serr := c.sleep(ctx, c.backoff(attempt)); serr != nil {
					return &Result{Attempts: attempt, Failure: cancelledFailure(serr)}
				}
			}

		case resp.StatusCode >= 500:
			if resp.StatusCode == http.StatusServiceUnavailable && hintsHonored < maxRetryAfterHonors {
				if hint, ok := retryAfterHint(resp.Header); ok {
					hintsHonored++
					if hint > maxRetryAfterWait {
						hint = maxRetryAfterWait
					}
					c.log.Warn().
						Str("url", url).
						Dur("wait", hint).
						Msg("Service unavailable, honoring Retry-After")
					if serr := c.sleep(ctx, hint); serr != nil {
						return &Result{Attempts: attempt, Failure: cancelledFailure(serr)}
					}
					continue
				}
			}
			last = &Failure{Kind: FailureTransient, StatusCode: resp.StatusCode, Detail: "server error"}
			attempt++
			if attempt < attemptBudget {
				if serr := c.sleep(ctx, c.backoff(attempt)); serr != nil {
					return &Result{Attempts: attempt, Failure: cancelledFailure(serr)}
				}
			}

		case resp.StatusCode == http.StatusForbidden:
			c.armCooldown()
			return &Result{
				StatusCode: resp.StatusCode,
				Attempts:   attempt + 1,
				Failure: &Failure{
					Kind:       FailurePermanent,
					StatusCode: resp.StatusCode,
					Detail:     "blocked",
				},
			}

		default:
			// remaining 4xx responses will not heal on retry
			return &Result{
				StatusCode: resp.StatusCode,
				Attempts:   attempt + 1,
				Failure: &Failure{
					Kind:       FailurePermanent,
					StatusCode: resp.StatusCode,
					Detail:     "client error",
				},
			}
		}
	}

	if last == nil {
		last = &Failure{Kind: FailureTransient, Detail: "attempt budget exhausted"}
	}
	return &Result{Attempts: attempt, Failure: last}
}

// coolingDown reports whether the seller's block cooldown is active
func (c *Client) coolingDown() bool {
	if c.cooldown == nil {
		return false
	}
	_, err := c.cooldown.Get(c.cooldownKey)
	return err == nil
}

// armCooldown suspends fetching from this seller for blockTTL
func (c *Client) armCooldown() {
	if c.cooldown == nil {
		return
	}
	value := []byte(time.Now().Format(time.RFC3339))
	if err := c.cooldown.Set(c.cooldownKey, value, c.blockTTL); err != nil {
		c.log.Warn().Err(err).Msg("Failed to arm block cooldown")
		return
	}
	c.log.Warn().Dur("ttl", c.blockTTL).Msg("Seller blocked, cooling down")
}

// backoff returns the wait before the next attempt, backoffBase*2^attempt
func (c *Client) backoff(attempt int) time.Duration {
	d := c.backoffBase
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	return d
}

func cancelledFailure(err error) *Failure {
	return &Failure{Kind: FailureTransient, Detail: "cancelled", Err: err}
}

// sleepContext waits for the duration unless the context ends first
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
