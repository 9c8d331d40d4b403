package fetch

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pokewatch/stockworker/internal/descriptor"
	"pokewatch/stockworker/services/cache"
)

// Pool hands out fetch clients per seller. All sellers share one HTTP
// strategy, browser sellers share one lazily started headless browser.
type Pool struct {
	mu      sync.Mutex
	clients map[string]*Client

	http    *HTTPStrategy
	browser *BrowserStrategy

	cooldown     cache.CacheService
	retries      int
	backoffBase  time.Duration
	defaultRate  float64
	defaultBurst int
}

// PoolOptions configures the fetch pool.
type PoolOptions struct {
	Timeout      time.Duration
	Retries      int
	BackoffBase  time.Duration
	DefaultRate  float64
	DefaultBurst int
	BrowserBin   string
	Cooldown     cache.CacheService
}

// NewPool creates a fetch pool.
func NewPool(opts PoolOptions) *Pool {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Retries < 1 {
		opts.Retries = 3
	}
	if opts.DefaultRate <= 0 {
		opts.DefaultRate = 0.5
	}
	if opts.DefaultBurst < 1 {
		opts.DefaultBurst = 1
	}

	return &Pool{
		clients:      make(map[string]*Client),
		http:         NewHTTPStrategy(opts.Timeout),
		browser:      NewBrowserStrategy(opts.BrowserBin),
		cooldown:     opts.Cooldown,
		retries:      opts.Retries,
		backoffBase:  opts.BackoffBase,
		defaultRate:  opts.DefaultRate,
		defaultBurst: opts.DefaultBurst,
	}
}

// Retries returns the default attempt budget per fetch.
func (p *Pool) Retries() int {
	return p.retries
}

// ClientFor returns the fetch client for a seller, creating it on first use.
func (p *Pool) ClientFor(d descriptor.StoreDescriptor) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[d.SellerID]; ok {
		return c
	}

	var strategy Strategy = p.http
	if d.Fetch == descriptor.FetchBrowser {
		strategy = p.browser
	}

	perSec := d.RatePerSec
	if perSec <= 0 {
		perSec = p.defaultRate
	}
	burst := d.Burst
	if burst < 1 {
		burst = p.defaultBurst
	}

	c := NewClient(ClientOptions{
		Seller:      d.SellerID,
		Strategy:    strategy,
		Limiter:     rate.NewLimiter(rate.Limit(perSec), burst),
		Cooldown:    p.cooldown,
		BlockTTL:    d.BlockTTL,
		BackoffBase: p.backoffBase,
	})
	p.clients[d.SellerID] = c
	return c
}

// Close shuts down the shared strategies.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.http.Close()
	if berr := p.browser.Close(); err == nil {
		err = berr
	}
	return err
}
