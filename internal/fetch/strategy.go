package fetch

import (
	"context"
	"net/http"
)

// Response is a raw page retrieval before any retry classification.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	FinalURL   string
}

// Strategy retrieves a single page. Implementations must be safe for
// concurrent use, one strategy is shared by every seller client.
type Strategy interface {
	Do(ctx context.Context, url string) (*Response, error)
	Close() error
}
