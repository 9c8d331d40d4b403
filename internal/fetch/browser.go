package fetch

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// BrowserStrategy retrieves pages with a headless Chrome instance, for
// sellers that render product data with JavaScript or sit behind bot checks.
// The browser launches lazily on the first request.
type BrowserStrategy struct {
	mu      sync.Mutex
	bin     string
	lnch    *launcher.Launcher
	browser *rod.Browser
}

var _ Strategy = (*BrowserStrategy)(nil)

// NewBrowserStrategy creates a browser strategy. An empty bin lets the
// launcher locate or download a Chromium build itself.
func NewBrowserStrategy(bin string) *BrowserStrategy {
	return &BrowserStrategy{bin: bin}
}

// connect launches and connects the browser on first use
func (s *BrowserStrategy) connect() (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return s.browser, nil
	}

	lnch := launcher.New().
		Headless(true).
		Set("disable-blink-features", "AutomationControlled")
	if s.bin != "" {
		lnch = lnch.Bin(s.bin)
	}

	wsURL, err := lnch.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		lnch.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	s.lnch = lnch
	s.browser = browser
	return browser, nil
}

func (s *BrowserStrategy) Do(ctx context.Context, url string) (*Response, error) {
	browser, err := s.connect()
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("failed to open stealth page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", url, err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page HTML: %w", err)
	}

	finalURL := url
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	// rod does not surface the HTTP status, a loaded page counts as 200
	return &Response{
		StatusCode: http.StatusOK,
		Body:       []byte(html),
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		FinalURL:   finalURL,
	}, nil
}

// Close shuts the browser down if it was ever started.
func (s *BrowserStrategy) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
	return err
}
