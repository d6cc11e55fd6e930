package scraper

import "github.com/PuerkitoBio/goquery"

const (
	detailLinkSelector = "h3 a"
	nextLinkSelector   = "li.next a"
)

// discoverLinks returns the detail-page links found on a listing page,
// in document order and without repeats, and at most one next-page link.
func discoverLinks(page *Page) (details []string, next string) {
	if page == nil || page.Doc == nil {
		return nil, ""
	}

	seen := make(map[string]struct{})
	page.Doc.Find(detailLinkSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		abs, ok := page.Resolve(href)
		if !ok {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		details = append(details, abs)
	})

	if href, ok := page.Doc.Find(nextLinkSelector).First().Attr("href"); ok {
		if abs, ok := page.Resolve(href); ok {
			next = abs
		}
	}
	return details, next
}
