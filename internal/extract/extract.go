package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pokewatch/stockworker/internal/descriptor"
	"pokewatch/stockworker/internal/status"
)

// Extract pulls product records out of fetched seller content using the
// seller's descriptor. It never panics and never returns an error, content
// that cannot be read simply yields no records.
func Extract(content string, d descriptor.StoreDescriptor) []ProductRecord {
	if d.Fetch == descriptor.FetchFeed {
		return ExtractFeed(content, d)
	}
	return extractHTML(content, d)
}

func extractHTML(content string, d descriptor.StoreDescriptor) []ProductRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	blocks, fromContainer := blocksOf(doc, d)
	records := make([]ProductRecord, 0, len(blocks))
	for _, block := range blocks {
		record, ok := recordFrom(block, d, fromContainer)
		if !ok {
			continue
		}
		if !d.Relevance.Match(record.Name) {
			continue
		}
		records = append(records, record)
	}
	return records
}

// blocksOf splits the document into product blocks. When the container
// selector matches nothing the whole document is treated as a single
// product page.
func blocksOf(doc *goquery.Document, d descriptor.StoreDescriptor) ([]*goquery.Selection, bool) {
	if d.ItemContainer != "" {
		found := doc.Find(d.ItemContainer)
		if found.Length() > 0 {
			blocks := make([]*goquery.Selection, 0, found.Length())
			found.Each(func(_ int, sel *goquery.Selection) {
				blocks = append(blocks, sel)
			})
			return blocks, true
		}
	}
	return []*goquery.Selection{doc.Selection}, false
}

// recordFrom builds one record from a product block. Blocks without a
// product name are dropped.
func recordFrom(block *goquery.Selection, d descriptor.StoreDescriptor, fromContainer bool) (ProductRecord, bool) {
	name := firstRuleText(block, d.NameRules)
	if name == "" {
		return ProductRecord{}, false
	}

	record := ProductRecord{
		Name:     name,
		SellerID: d.SellerID,
		Status:   status.Normalize(block.Text(), d.Indicators),
	}

	if priceText := firstRuleText(block, d.PriceRules); priceText != "" {
		record.Price = ParsePrice(priceText)
	}

	// link rules only apply to listing blocks, on a product page the
	// caller already knows the URL
	if fromContainer {
		record.URL = blockURL(block, d)
	}
	record.Key = keyFor(record.URL, name)
	return record, true
}

// firstRuleText returns the trimmed text of the first rule that matches.
func firstRuleText(block *goquery.Selection, rules []string) string {
	for _, rule := range rules {
		if rule == "" {
			continue
		}
		sel := block.Find(rule).First()
		if sel.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			return text
		}
	}
	return ""
}

// blockURL resolves the product link inside a listing block.
func blockURL(block *goquery.Selection, d descriptor.StoreDescriptor) string {
	rule := d.LinkRule
	if rule == "" {
		rule = "a"
	}
	href, ok := block.Find(rule).First().Attr("href")
	if !ok {
		return ""
	}
	return resolveURL(d.BaseURL, strings.TrimSpace(href))
}

// resolveURL makes a relative href absolute against the seller's base URL
func resolveURL(baseURL, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "/") {
		return strings.TrimRight(baseURL, "/") + href
	}
	return href
}

// keyFor derives a stable product key, preferring the last URL path segment
// over a slug of the name.
func keyFor(rawURL, name string) string {
	if rawURL != "" {
		if u, err := url.Parse(rawURL); err == nil {
			path := strings.Trim(u.Path, "/")
			if idx := strings.LastIndex(path, "/"); idx >= 0 {
				path = path[idx+1:]
			}
			if path != "" {
				return path
			}
		}
	}
	return slugify(name)
}

// slugify lowercases a product name into a hyphenated key
func slugify(name string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(name) {
		isWord := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isWord {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte('-')
			pending = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
