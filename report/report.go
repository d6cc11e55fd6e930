// Package report renders dataset summaries for people: rounded tables for
// the terminal and a Markdown document for sharing.
package report

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/books-crawler/models"
)

// topCategories caps the category ranking in rendered output.
const topCategories = 10

func stars(n int) string {
	if n <= 0 {
		return "unrated"
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func money(v float64) string {
	return fmt.Sprintf("£%.2f", v)
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func orDash(s *string) string {
	if v := models.StringValue(s); v != "" {
		return v
	}
	return "-"
}
