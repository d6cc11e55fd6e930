// Package parser holds field-level rules shared by extraction and analysis.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/books-crawler/models"
)

var (
	// ErrMissingTitle marks a record without a title.
	ErrMissingTitle = errors.New("book missing title")
	// ErrMissingProductURL marks a record without its natural key.
	ErrMissingProductURL = errors.New("book missing product_url")
)

// ratingTiers lists tier names from lowest to highest.
var ratingTiers = []string{"One", "Two", "Three", "Four", "Five"}

var priceNumber = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// ValidateBook ensures the record carries its required fields.
func ValidateBook(b *models.Book) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if strings.TrimSpace(b.Title) == "" {
		return ErrMissingTitle
	}
	if strings.TrimSpace(b.ProductURL) == "" {
		return fmt.Errorf("%w for %s", ErrMissingProductURL, b.Title)
	}
	return nil
}

// RatingTier returns the tier name for a single token, case-insensitively.
func RatingTier(token string) (string, bool) {
	token = strings.TrimSpace(token)
	for _, tier := range ratingTiers {
		if strings.EqualFold(token, tier) {
			return tier, true
		}
	}
	return "", false
}

// RatingFromClass maps a star-rating class attribute such as
// "star-rating Three" to its tier name. Unknown or missing tokens give nil.
func RatingFromClass(class string) *string {
	for _, token := range strings.Fields(class) {
		if tier, ok := RatingTier(token); ok {
			return &tier
		}
	}
	return nil
}

// RatingToNumeric converts the textual rating to a 1..5 scale, 0 if unknown.
func RatingToNumeric(rating string) int {
	tier, ok := RatingTier(rating)
	if !ok {
		return 0
	}
	for i, name := range ratingTiers {
		if name == tier {
			return i + 1
		}
	}
	return 0
}

// CollapseWhitespace trims s and folds inner whitespace runs to one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParsePrice extracts the first decimal number from a currency-prefixed price.
func ParsePrice(price string) (float64, bool) {
	match := priceNumber.FindString(price)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
