package dataset

import (
	"math"
	"sort"
	"strings"

	"github.com/aluiziolira/books-crawler/models"
	"github.com/aluiziolira/books-crawler/parser"
)

const sampleSize = 5

// Price band edges, in the site's currency.
const (
	cheapBelow         = 20.0
	expensiveAtOrAbove = 50.0
)

// Summary is the aggregate view of a record set.
type Summary struct {
	Total            int
	UniqueCategories int
	WithImage        int
	WithDescription  int
	Price            PriceStats
	PriceBands       []Bucket
	// Ratings holds one entry per star tier 1..5, then unrated (Stars 0).
	Ratings []RatingCount
	// Categories is ranked by count, then name.
	Categories []Bucket
	// Sample holds the first records in input order.
	Sample []*models.Book
}

// PriceStats describes the records with a parseable price.
type PriceStats struct {
	Count  int
	Mean   float64
	Min    float64
	Max    float64
	StdDev float64
	Mode   float64
}

// Bucket is a labelled count with its share of all records.
type Bucket struct {
	Label   string
	Count   int
	Percent float64
}

// RatingCount is the number of records at one star tier.
type RatingCount struct {
	Stars   int
	Count   int
	Percent float64
}

// ComputeSummary aggregates books. It has no side effects and returns a
// zero-valued summary with empty distributions for no input.
func ComputeSummary(books []*models.Book) Summary {
	summary := Summary{Total: len(books)}

	var prices []float64
	categories := make(map[string]int)
	var ratings [6]int

	for _, book := range books {
		if book == nil {
			continue
		}
		if models.StringValue(book.ImageURL) != "" {
			summary.WithImage++
		}
		if strings.TrimSpace(models.StringValue(book.Description)) != "" {
			summary.WithDescription++
		}
		if category := strings.TrimSpace(models.StringValue(book.Category)); category != "" {
			categories[category]++
		}
		if price, ok := parser.ParsePrice(models.StringValue(book.Price)); ok {
			prices = append(prices, price)
		}
		ratings[parser.RatingToNumeric(models.StringValue(book.Rating))]++
	}

	summary.Price = priceStats(prices)
	summary.PriceBands = priceBands(prices, summary.Total)
	summary.UniqueCategories = len(categories)
	summary.Categories = rankCategories(categories, summary.Total)

	for stars := 1; stars <= 5; stars++ {
		summary.Ratings = append(summary.Ratings, RatingCount{
			Stars:   stars,
			Count:   ratings[stars],
			Percent: percent(ratings[stars], summary.Total),
		})
	}
	summary.Ratings = append(summary.Ratings, RatingCount{
		Stars:   0,
		Count:   ratings[0],
		Percent: percent(ratings[0], summary.Total),
	})

	n := min(sampleSize, len(books))
	summary.Sample = append([]*models.Book(nil), books[:n]...)
	return summary
}

// TopCategories returns at most n ranked categories.
func (s Summary) TopCategories(n int) []Bucket {
	if n < 0 || n >= len(s.Categories) {
		return s.Categories
	}
	return s.Categories[:n]
}

func priceStats(prices []float64) PriceStats {
	stats := PriceStats{Count: len(prices)}
	if len(prices) == 0 {
		return stats
	}

	stats.Min, stats.Max = prices[0], prices[0]
	var sum float64
	freq := make(map[float64]int)
	for _, p := range prices {
		sum += p
		stats.Min = math.Min(stats.Min, p)
		stats.Max = math.Max(stats.Max, p)
		freq[p]++
	}
	stats.Mean = sum / float64(len(prices))

	if len(prices) > 1 {
		var squares float64
		for _, p := range prices {
			d := p - stats.Mean
			squares += d * d
		}
		stats.StdDev = math.Sqrt(squares / float64(len(prices)-1))
	}

	// Ties resolve to the lowest price.
	best := -1
	for price, count := range freq {
		if count > best || (count == best && price < stats.Mode) {
			stats.Mode, best = price, count
		}
	}
	return stats
}

func priceBands(prices []float64, total int) []Bucket {
	var cheap, medium, expensive int
	for _, p := range prices {
		switch {
		case p < cheapBelow:
			cheap++
		case p < expensiveAtOrAbove:
			medium++
		default:
			expensive++
		}
	}
	return []Bucket{
		{Label: "under £20", Count: cheap, Percent: percent(cheap, total)},
		{Label: "£20 to £50", Count: medium, Percent: percent(medium, total)},
		{Label: "£50 and over", Count: expensive, Percent: percent(expensive, total)},
	}
}

func rankCategories(counts map[string]int, total int) []Bucket {
	ranked := make([]Bucket, 0, len(counts))
	for name, count := range counts {
		ranked = append(ranked, Bucket{Label: name, Count: count, Percent: percent(count, total)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Label < ranked[j].Label
	})
	return ranked
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
