package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/books-crawler/models"
)

func book(title, price, rating, category string) *models.Book {
	return &models.Book{
		Title:      title,
		Price:      models.StringPtr(price),
		Rating:     models.StringPtr(rating),
		Category:   models.StringPtr(category),
		ProductURL: "https://books.toscrape.com/catalogue/" + strings.ReplaceAll(strings.ToLower(title), " ", "-") + "/index.html",
	}
}

func TestLoadRecordsRecoversTruncatedFile(t *testing.T) {
	books := []*models.Book{
		book("Alpha", "£10.00", "One", "Poetry"),
		book("Beta", "£25.50", "Three", "Travel"),
	}
	data, err := json.MarshalIndent(books, "", "  ")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "books.json")
	truncated := strings.TrimSuffix(strings.TrimSpace(string(data)), "]")
	require.NoError(t, os.WriteFile(path, []byte(truncated), 0o644))

	loaded, report, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, 2, report.Recovered)
	require.Zero(t, report.Dropped)
	require.False(t, report.Strict)
	require.Equal(t, "Beta", loaded[1].Title)
}

func TestLoadRecordsMissingFile(t *testing.T) {
	_, _, err := LoadRecords(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestComputeSummary(t *testing.T) {
	withExtras := book("Gamma", "Â£51.00", "five", "Poetry")
	withExtras.ImageURL = models.StringPtr("https://books.toscrape.com/media/gamma.jpg")
	withExtras.Description = models.StringPtr("A poem.")

	books := []*models.Book{
		book("Alpha", "£10.00", "One", "Poetry"),
		book("Beta", "£20.00", "Three", "Travel"),
		withExtras,
		book("Delta", "£10.00", "", "Mystery"),
		book("Epsilon", "", "Two", ""),
		book("Zeta", "£30.00", "Three", "Travel"),
	}

	summary := ComputeSummary(books)

	require.Equal(t, 6, summary.Total)
	require.Equal(t, 3, summary.UniqueCategories)
	require.Equal(t, 1, summary.WithImage)
	require.Equal(t, 1, summary.WithDescription)

	require.Equal(t, 5, summary.Price.Count)
	require.InDelta(t, 24.2, summary.Price.Mean, 1e-9)
	require.Equal(t, 10.0, summary.Price.Min)
	require.Equal(t, 51.0, summary.Price.Max)
	require.Equal(t, 10.0, summary.Price.Mode)
	// sample variance of 10,20,51,10,30 is 293.2
	require.InDelta(t, 17.1230839, summary.Price.StdDev, 1e-6)

	require.Equal(t, []Bucket{
		{Label: "under £20", Count: 2, Percent: 100.0 * 2 / 6},
		{Label: "£20 to £50", Count: 2, Percent: 100.0 * 2 / 6},
		{Label: "£50 and over", Count: 1, Percent: 100.0 / 6},
	}, summary.PriceBands)

	counts := make(map[int]int)
	for _, r := range summary.Ratings {
		counts[r.Stars] = r.Count
	}
	require.Equal(t, map[int]int{1: 1, 2: 1, 3: 2, 4: 0, 5: 1, 0: 1}, counts)
	require.Len(t, summary.Ratings, 6)
	require.Equal(t, 0, summary.Ratings[5].Stars)

	require.Equal(t, []string{"Poetry", "Travel", "Mystery"}, labels(summary.Categories))
	require.Equal(t, []string{"Poetry", "Travel"}, labels(summary.TopCategories(2)))
	require.Len(t, summary.Sample, 5)
	require.Equal(t, "Alpha", summary.Sample[0].Title)
}

func TestComputeSummaryEmpty(t *testing.T) {
	summary := ComputeSummary(nil)

	require.Zero(t, summary.Total)
	require.Zero(t, summary.Price.Count)
	require.Zero(t, summary.Price.Mean)
	require.Empty(t, summary.Categories)
	require.Empty(t, summary.Sample)
	for _, r := range summary.Ratings {
		require.Zero(t, r.Count)
		require.Zero(t, r.Percent)
	}
}

func TestComputeSummaryIsPure(t *testing.T) {
	books := []*models.Book{book("Alpha", "£12.00", "Two", "Poetry")}

	first := ComputeSummary(books)
	second := ComputeSummary(books)

	require.Equal(t, first, second)
	require.Equal(t, "£12.00", models.StringValue(books[0].Price))
}

func labels(buckets []Bucket) []string {
	out := make([]string, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b.Label)
	}
	return out
}
