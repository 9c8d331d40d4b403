package status

import "strings"

// Status classifies the purchasability of a product at a seller.
type Status string

const (
	InStock    Status = "InStock"
	OutOfStock Status = "OutOfStock"
	Preorder   Status = "Preorder"
	Unknown    Status = "Unknown"
)

// Indicators holds the seller-specific phrases that signal each status.
type Indicators struct {
	OutOfStock []string `yaml:"out_of_stock"`
	Preorder   []string `yaml:"preorder"`
	InStock    []string `yaml:"in_stock"`
}

// Empty reports whether no indicator phrases are configured.
func (i Indicators) Empty() bool {
	return len(i.OutOfStock) == 0 && len(i.Preorder) == 0 && len(i.InStock) == 0
}

// Normalize maps raw page text onto a Status using the given indicator
// phrases. Matching is case-insensitive and ignores whitespace runs.
// Out-of-stock phrases take priority over preorder phrases, and preorder
// phrases over in-stock phrases, so a page showing both "sold out" and
// "add to cart" normalizes to OutOfStock.
func Normalize(text string, ind Indicators) Status {
	folded := fold(text)
	if containsAny(folded, ind.OutOfStock) {
		return OutOfStock
	}
	if containsAny(folded, ind.Preorder) {
		return Preorder
	}
	if containsAny(folded, ind.InStock) {
		return InStock
	}
	return Unknown
}

// FromAvailable maps an explicit availability flag onto a Status.
func FromAvailable(available bool) Status {
	if available {
		return InStock
	}
	return OutOfStock
}

// fold lowercases text and collapses whitespace runs to single spaces
func fold(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// containsAny reports whether the folded text contains any of the phrases
func containsAny(folded string, phrases []string) bool {
	for _, phrase := range phrases {
		p := fold(phrase)
		if p == "" {
			continue
		}
		if strings.Contains(folded, p) {
			return true
		}
	}
	return false
}
