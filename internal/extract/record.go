package extract

import "pokewatch/stockworker/internal/status"

// ProductRecord is one product observation pulled out of seller content.
type ProductRecord struct {
	// Key identifies the product within the seller, usually the URL slug
	Key string
	// Name is the product title as the seller shows it
	Name string
	// Price is the listed price, nil when the seller shows no parseable price
	Price *float64
	// Status is the normalized stock status
	Status status.Status
	// URL is the product page URL when one could be determined
	URL string
	// SellerID names the seller this record came from
	SellerID string
	// FromFeed marks records read from a product feed rather than a page
	FromFeed bool
}
