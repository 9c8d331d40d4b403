package descriptor

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"pokewatch/stockworker/internal/status"
)

// FetchKind selects how a seller's pages are retrieved.
type FetchKind string

const (
	// FetchHTTP retrieves pages with a plain HTTP client
	FetchHTTP FetchKind = "http"
	// FetchBrowser retrieves pages with a headless browser
	FetchBrowser FetchKind = "browser"
	// FetchFeed retrieves a JSON product feed instead of HTML pages
	FetchFeed FetchKind = "feed"
)

// Relevance filters extracted products by name keywords.
type Relevance struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Match reports whether a product name passes the keyword filter.
// An empty include list accepts every name. Exclude keywords always reject.
func (r Relevance) Match(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range r.Exclude {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	if len(r.Include) == 0 {
		return true
	}
	for _, kw := range r.Include {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// StoreDescriptor describes how to fetch and read one seller's pages.
type StoreDescriptor struct {
	// SellerID uniquely identifies the seller, e.g. "eb_games"
	SellerID string `yaml:"seller_id"`
	// Name is the human readable seller name
	Name string `yaml:"name"`
	// BaseURL is the scheme and host used to resolve relative links
	BaseURL string `yaml:"base_url"`
	// SearchURL is the discovery page URL, {query} is replaced with the search term
	SearchURL string `yaml:"search_url"`
	// ProductURL is the product page URL pattern, {sku} is replaced with the SKU
	ProductURL string `yaml:"product_url"`
	// FeedURL is the JSON product feed URL for feed sellers
	FeedURL string `yaml:"feed_url"`
	// Fetch selects the retrieval strategy, empty means http
	Fetch FetchKind `yaml:"fetch"`
	// ItemContainer selects repeated product blocks on listing pages
	ItemContainer string `yaml:"item_container"`
	// NameRules are CSS selectors for the product name, tried in order
	NameRules []string `yaml:"name_rules"`
	// PriceRules are CSS selectors for the price text, tried in order
	PriceRules []string `yaml:"price_rules"`
	// LinkRule is the CSS selector for the product link inside a block
	LinkRule string `yaml:"link_rule"`
	// Indicators are the stock status phrases for this seller
	Indicators status.Indicators `yaml:"indicators"`
	// Relevance filters extracted products by name keywords
	Relevance Relevance `yaml:"relevance"`
	// RatePerSec limits the request rate against this seller, 0 uses the default
	RatePerSec float64 `yaml:"rate_per_sec"`
	// Burst is the request burst allowance, 0 uses the default
	Burst int `yaml:"burst"`
	// BlockTTL is how long fetching stays suspended after the seller blocks us
	BlockTTL time.Duration `yaml:"-"`
}

// applyDefaults fills zero-valued fields that have sensible defaults
func (d *StoreDescriptor) applyDefaults() {
	if d.Fetch == "" {
		d.Fetch = FetchHTTP
	}
	if d.BlockTTL == 0 {
		d.BlockTTL = 30 * time.Minute
	}
}

// Validate checks the descriptor for fields the fetch and extract stages need.
func (d *StoreDescriptor) Validate() error {
	if d.SellerID == "" {
		return fmt.Errorf("descriptor missing seller_id")
	}
	switch d.Fetch {
	case FetchHTTP, FetchBrowser:
		if d.BaseURL == "" {
			return fmt.Errorf("descriptor %q missing base_url", d.SellerID)
		}
		if len(d.NameRules) == 0 {
			return fmt.Errorf("descriptor %q has no name rules", d.SellerID)
		}
	case FetchFeed:
		if d.FeedURL == "" {
			return fmt.Errorf("descriptor %q missing feed_url", d.SellerID)
		}
	default:
		return fmt.Errorf("descriptor %q has unknown fetch kind %q", d.SellerID, d.Fetch)
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate registry state.
func (d StoreDescriptor) Clone() StoreDescriptor {
	clone := d
	clone.NameRules = append([]string(nil), d.NameRules...)
	clone.PriceRules = append([]string(nil), d.PriceRules...)
	clone.Relevance.Include = append([]string(nil), d.Relevance.Include...)
	clone.Relevance.Exclude = append([]string(nil), d.Relevance.Exclude...)
	clone.Indicators.OutOfStock = append([]string(nil), d.Indicators.OutOfStock...)
	clone.Indicators.Preorder = append([]string(nil), d.Indicators.Preorder...)
	clone.Indicators.InStock = append([]string(nil), d.Indicators.InStock...)
	return clone
}

// SearchURLFor returns the seller's search page URL for the given query.
func (d StoreDescriptor) SearchURLFor(query string) string {
	if d.SearchURL == "" {
		return ""
	}
	return strings.ReplaceAll(d.SearchURL, "{query}", url.QueryEscape(query))
}

// ProductURLFor returns the seller's product page URL for the given SKU.
func (d StoreDescriptor) ProductURLFor(sku string) string {
	if d.ProductURL == "" {
		return ""
	}
	return strings.ReplaceAll(d.ProductURL, "{sku}", url.PathEscape(sku))
}
