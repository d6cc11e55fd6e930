// Package scraper walks the catalogue listing chain, fetches every detail
// page it links to and turns each one into a book record.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/books-crawler/config"
	"github.com/aluiziolira/books-crawler/models"
)

// Sink receives records in traversal order.
type Sink interface {
	Process(books ...*models.Book) error
}

// Scraper drives a sequential crawl: one page fetched and handled at a time.
type Scraper struct {
	cfg     *config.Config
	fetcher Fetcher
	retry   *retryPolicy
	Metrics *Metrics

	now     func() time.Time
	visited map[string]struct{}
}

// NewScraper builds a scraper that fetches through colly.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	metrics := NewMetrics()
	fetcher, err := NewCollyFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}
	return newScraper(cfg, fetcher, metrics), nil
}

// NewScraperWithFetcher builds a scraper over any fetch capability.
func NewScraperWithFetcher(cfg *config.Config, fetcher Fetcher) *Scraper {
	return newScraper(cfg, fetcher, NewMetrics())
}

func newScraper(cfg *config.Config, fetcher Fetcher, metrics *Metrics) *Scraper {
	return &Scraper{
		cfg:     cfg,
		fetcher: fetcher,
		Metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run crawls from the configured start URL and streams records into sink.
// Failure to fetch the start page aborts the run; any later page failure
// is counted in the result and skipped. A cancelled context stops the
// traversal between pages and returns the partial result.
func (s *Scraper) Run(ctx context.Context, sink Sink) (*models.CrawlResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.visited = make(map[string]struct{})
	s.retry = newRetryPolicy(s.cfg, s.Metrics)

	result := &models.CrawlResult{
		StartTime:    s.now(),
		ErrorsByType: make(map[string]int),
	}

	queue := []PageRef{{URL: s.cfg.StartURL, Role: RoleListing}}
	s.markVisited(s.cfg.StartURL)
	listingsQueued := 1

	for dispatched := 0; len(queue) > 0; dispatched++ {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}

		ref := queue[0]
		queue = queue[1:]
		result.AttemptedPages++

		page, err := s.fetch(ctx, ref, result)
		if err != nil {
			if ctx.Err() != nil {
				result.Interrupted = true
				break
			}
			if dispatched == 0 {
				s.Metrics.IncError(errorTypeLabel(err))
				return nil, fmt.Errorf("fetch start page: %w", err)
			}
			s.recordFailure(result, ref, err)
			continue
		}
		s.Metrics.IncPage(ref.Role, "fetched")

		switch ref.Role {
		case RoleListing:
			result.ListingPages++
			details, next := discoverLinks(page)
			for _, link := range details {
				if !s.markVisited(link) {
					s.recordDuplicate(result, link)
					continue
				}
				queue = append(queue, PageRef{URL: link, Role: RoleDetail})
			}

			if next == "" {
				continue
			}
			if s.cfg.MaxPages > 0 && listingsQueued >= s.cfg.MaxPages {
				slog.Info("max pages reached", slog.Int("pages", listingsQueued), slog.String("next", next))
				continue
			}
			if !s.markVisited(next) {
				s.recordDuplicate(result, next)
				continue
			}
			listingsQueued++
			queue = append(queue, PageRef{URL: next, Role: RoleListing})

		case RoleDetail:
			result.DetailPages++
			book, err := ExtractBook(page, s.now())
			if err != nil {
				s.recordFailure(result, ref, err)
				continue
			}
			if err := sink.Process(book); err != nil {
				return nil, fmt.Errorf("emit record %s: %w", book.ProductURL, err)
			}
			result.RecordCount++
			s.Metrics.IncRecords()
		}

		if result.AttemptedPages%50 == 0 {
			slog.Debug("crawl progress",
				slog.Int("attempted", result.AttemptedPages),
				slog.Int("records", result.RecordCount),
				slog.Int("queued", len(queue)),
			)
		}
	}

	result.EndTime = s.now()
	result.RetryCount = s.retry.TotalRetries()
	return result, nil
}

// fetch retries retryable failures with capped exponential backoff.
func (s *Scraper) fetch(ctx context.Context, ref PageRef, result *models.CrawlResult) (*Page, error) {
	for {
		result.RequestCount++
		page, err := s.fetcher.Fetch(ctx, ref.URL)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil || !retryable(err) {
			return nil, err
		}

		delay, ok := s.retry.Schedule(ref.URL)
		if !ok {
			return nil, err
		}
		slog.Debug("retrying page",
			slog.String("url", ref.URL),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)
		if waitErr := wait(ctx, delay); waitErr != nil {
			return nil, err
		}
	}
}

// markVisited records url and reports whether it was new.
func (s *Scraper) markVisited(url string) bool {
	key := canonicalURL(url)
	if _, ok := s.visited[key]; ok {
		return false
	}
	s.visited[key] = struct{}{}
	return true
}

func (s *Scraper) recordDuplicate(result *models.CrawlResult, url string) {
	result.SkippedDuplicates++
	s.Metrics.IncDuplicate()
	slog.Debug("skipping already dispatched url", slog.String("url", url))
}

func (s *Scraper) recordFailure(result *models.CrawlResult, ref PageRef, err error) {
	category := errorTypeLabel(err)
	result.ErrorsByType[category]++
	result.FailedURLs = append(result.FailedURLs, ref.URL)

	var extraction *ExtractionError
	if errors.As(err, &extraction) {
		result.ExtractionFailures++
		s.Metrics.IncPage(ref.Role, "extraction_failed")
	} else {
		result.FailedPages++
		s.Metrics.IncPage(ref.Role, "fetch_failed")
	}
	s.Metrics.IncError(category)

	slog.Warn("page failed",
		slog.String("url", ref.URL),
		slog.String("role", string(ref.Role)),
		slog.String("category", category),
		slog.Any("error", err),
	)
}
