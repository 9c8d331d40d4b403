package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var priceRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParsePrice pulls the first numeric amount out of price text. Currency
// symbols and thousands separators are ignored. Text without digits, like
// "Contact us", yields nil.
func ParsePrice(text string) *float64 {
	cleaned := strings.ReplaceAll(text, ",", "")
	match := priceRe.FindString(cleaned)
	if match == "" {
		return nil
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &value
}
