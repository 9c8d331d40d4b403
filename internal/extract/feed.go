package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"pokewatch/stockworker/internal/descriptor"
	"pokewatch/stockworker/internal/status"
)

// shopifyFeed covers both feed shapes Shopify serves, products at the top
// level or nested under a collection.
type shopifyFeed struct {
	Products   []shopifyProduct `json:"products"`
	Collection struct {
		Products []shopifyProduct `json:"products"`
	} `json:"collection"`
}

type shopifyProduct struct {
	ID       int64            `json:"id"`
	Title    string           `json:"title"`
	Handle   string           `json:"handle"`
	Variants []shopifyVariant `json:"variants"`
}

type shopifyVariant struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Available *bool  `json:"available"`
}

// ExtractFeed reads product records out of a Shopify collection feed.
// Content that does not parse yields no records.
func ExtractFeed(content string, d descriptor.StoreDescriptor) []ProductRecord {
	var feed shopifyFeed
	if err := json.Unmarshal([]byte(content), &feed); err != nil {
		return nil
	}

	products := feed.Products
	if len(products) == 0 {
		products = feed.Collection.Products
	}

	var records []ProductRecord
	for _, p := range products {
		if p.Title == "" {
			continue
		}
		if !d.Relevance.Match(p.Title) {
			continue
		}
		for _, v := range p.Variants {
			records = append(records, feedRecord(p, v, len(p.Variants) > 1, d))
		}
	}
	return records
}

func feedRecord(p shopifyProduct, v shopifyVariant, multiVariant bool, d descriptor.StoreDescriptor) ProductRecord {
	record := ProductRecord{
		Name:     p.Title,
		Key:      p.Handle,
		SellerID: d.SellerID,
		FromFeed: true,
		URL:      feedProductURL(p.Handle, d),
	}

	if multiVariant {
		record.Key = fmt.Sprintf("%s-%d", p.Handle, v.ID)
		if v.Title != "" && !strings.EqualFold(v.Title, "Default Title") {
			record.Name = fmt.Sprintf("%s (%s)", p.Title, v.Title)
		}
	}
	if record.Key == "" {
		record.Key = slugify(record.Name)
	}

	// the feed reports prices in cents
	if cents, err := strconv.ParseFloat(v.Price, 64); err == nil {
		price := cents / 100
		record.Price = &price
	}

	// feed entries without an availability flag are listed for sale
	if v.Available == nil {
		record.Status = status.InStock
	} else {
		record.Status = status.FromAvailable(*v.Available)
	}
	return record
}

// feedProductURL builds the product page URL from the feed location, a
// collection feed at /collections/x.json has products at
// /collections/x/products/{handle}.
func feedProductURL(handle string, d descriptor.StoreDescriptor) string {
	if handle == "" {
		return ""
	}
	if base, ok := strings.CutSuffix(d.FeedURL, ".json"); ok {
		return base + "/products/" + handle
	}
	if d.BaseURL != "" {
		return strings.TrimRight(d.BaseURL, "/") + "/products/" + handle
	}
	return ""
}
