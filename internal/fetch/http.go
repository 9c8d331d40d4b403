package fetch

import (
	"context"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

// HTTPStrategy retrieves pages with a shared resty client tuned to look
// like a regular browser session.
type HTTPStrategy struct {
	client *resty.Client
}

var _ Strategy = (*HTTPStrategy)(nil)

// NewHTTPStrategy creates the shared HTTP strategy.
func NewHTTPStrategy(timeout time.Duration) *HTTPStrategy {
	client := resty.New()

	if jar, err := cookiejar.New(nil); err == nil {
		client.SetCookieJar(jar)
	}

	client.SetTimeout(timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	// Storefronts behind Cloudflare reject the default Go client fingerprint
	client.SetTransport(cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport))

	return &HTTPStrategy{client: client}
}

func (s *HTTPStrategy) Do(ctx context.Context, url string) (*Response, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeaders(browserHeaders()).
		Get(url)
	if err != nil {
		return nil, err
	}

	body, err := decodeToUTF8(resp.Body(), resp.Header().Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	finalURL := url
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       body,
		Header:     resp.Header(),
		FinalURL:   finalURL,
	}, nil
}

// Close implements Strategy. The shared transport needs no shutdown.
func (s *HTTPStrategy) Close() error {
	return nil
}
