// Package models defines data structures for the crawler.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Book is one record extracted from a product detail page.
// Title and ProductURL are always set on emitted records; every other
// field is nil when the source page omits it.
type Book struct {
	Title        string    `csv:"title" json:"title"`
	Price        *string   `csv:"price" json:"price"`
	Rating       *string   `csv:"rating" json:"rating"`
	Availability *string   `csv:"availability" json:"availability"`
	Description  *string   `csv:"description" json:"description"`
	Category     *string   `csv:"category" json:"category"`
	ImageURL     *string   `csv:"image_url" json:"image_url"`
	ProductURL   string    `csv:"product_url" json:"product_url"`
	ScrapedDate  Timestamp `csv:"scraped_date" json:"scraped_date"`
}

// Timestamp is an extraction time. It is written as RFC 3339 in UTC and
// read back from either RFC 3339 or a zone-less ISO-8601 value.
type Timestamp struct {
	time.Time
}

// naiveISO8601 is the zone-less layout older crawl output used.
const naiveISO8601 = "2006-01-02T15:04:05.999999999"

// NewTimestamp wraps t, normalised to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("scraped_date: %w", err)
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// String formats the timestamp for flat exports.
func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ParseTimestamp accepts RFC 3339 or a zone-less ISO-8601 timestamp.
// Zone-less values are taken as UTC.
func ParseTimestamp(raw string) (Timestamp, error) {
	if raw == "" {
		return Timestamp{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return NewTimestamp(parsed), nil
	}
	parsed, err := time.Parse(naiveISO8601, raw)
	if err != nil {
		return Timestamp{}, fmt.Errorf("scraped_date %q is not ISO-8601", raw)
	}
	return NewTimestamp(parsed), nil
}

// StringValue returns *s or "" when s is nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CrawlResult holds the overall result of a crawl run.
type CrawlResult struct {
	StartTime time.Time
	EndTime   time.Time

	// AttemptedPages counts every page reference dispatched to the fetcher.
	AttemptedPages int
	ListingPages   int
	DetailPages    int

	RecordCount        int
	FailedPages        int
	ExtractionFailures int
	SkippedDuplicates  int

	RetryCount   int
	RequestCount int
	FailedURLs   []string
	ErrorsByType map[string]int

	// Interrupted is set when the context ended the run early.
	Interrupted bool
}

// Duration returns the wall time of the run.
func (r *CrawlResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}
