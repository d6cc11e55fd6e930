package scraper

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Role tags a page reference as a listing or a detail page.
type Role string

const (
	RoleListing Role = "listing"
	RoleDetail  Role = "detail"
)

// PageRef is a discovered URL waiting to be fetched once.
type PageRef struct {
	URL  string
	Role Role
}

// Page is a fetched, parsed document. URL is where it was served from
// after redirects; RequestURL is the URL that was asked for.
type Page struct {
	URL        *url.URL
	RequestURL string
	StatusCode int
	Doc        *goquery.Document
}

// Fetcher retrieves and parses a single page. Implementations own
// transport concerns such as politeness delays and robots.txt.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// NewPage parses body as HTML served from rawURL.
func NewPage(rawURL string, statusCode int, body io.Reader) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	doc.Url = u
	return &Page{URL: u, RequestURL: rawURL, StatusCode: statusCode, Doc: doc}, nil
}

// requestedURL returns the URL the page was fetched for.
func (p *Page) requestedURL() string {
	if p.RequestURL != "" {
		return p.RequestURL
	}
	return p.URL.String()
}

// Resolve turns an href found on the page into an absolute URL.
func (p *Page) Resolve(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := p.URL.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	resolved.Fragment = ""
	return resolved.String(), true
}

// canonicalURL normalises a URL for the visited set: lowercase scheme and
// host, no fragment, no default port, empty path as "/".
func canonicalURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}
