package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aluiziolira/books-crawler/config"
	"github.com/gocolly/colly/v2"
)

const (
	ctxStart  = "start"
	ctxBody   = "body"
	ctxStatus = "status"
	ctxURL    = "final_url"
)

// CollyFetcher fetches pages one at a time through a synchronous colly
// collector. The collector's limit rule applies the politeness delay and
// its robots.txt handling follows the RespectRobotsTxt setting.
type CollyFetcher struct {
	collector *colly.Collector
	metrics   *Metrics
}

// NewCollyFetcher builds a fetcher restricted to the start URL's host.
func NewCollyFetcher(cfg *config.Config, metrics *Metrics) (*CollyFetcher, error) {
	parsed, err := url.Parse(cfg.StartURL)
	if err != nil {
		return nil, fmt.Errorf("parse start url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("start url must include a host")
	}

	// Revisits are allowed so retries can re-request a URL; the engine
	// keeps its own visited set.
	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	f := &CollyFetcher{collector: collector, metrics: metrics}
	f.registerHandlers()
	return f, nil
}

func (f *CollyFetcher) registerHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put(ctxStart, time.Now())
		f.metrics.IncRequest("started")
	})

	f.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxBody, r.Body)
		r.Ctx.Put(ctxStatus, r.StatusCode)
		r.Ctx.Put(ctxURL, r.Request.URL.String())
		if start, ok := r.Ctx.GetAny(ctxStart).(time.Time); ok {
			f.metrics.ObserveDuration(time.Since(start))
		}
		f.metrics.IncRequest("completed")
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		if r == nil {
			return
		}
		rctx := r.Ctx
		if rctx == nil && r.Request != nil {
			rctx = r.Request.Ctx
		}
		if rctx != nil {
			rctx.Put(ctxStatus, r.StatusCode)
		}
		slog.Debug("fetch error",
			slog.Int("status", r.StatusCode),
			slog.Any("error", err),
		)
	})
}

// Fetch issues a blocking GET for rawURL and parses the body.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	rctx := colly.NewContext()
	err := f.collector.Request(http.MethodGet, rawURL, nil, rctx, nil)
	status, _ := rctx.GetAny(ctxStatus).(int)
	if err != nil {
		return nil, &FetchError{URL: rawURL, StatusCode: status, Err: classifyError(err, status)}
	}

	body, _ := rctx.GetAny(ctxBody).([]byte)
	finalURL := rctx.Get(ctxURL)
	if finalURL == "" {
		finalURL = rawURL
	}
	page, err := NewPage(finalURL, status, bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: rawURL, StatusCode: status, Err: err}
	}
	page.RequestURL = rawURL
	return page, nil
}
