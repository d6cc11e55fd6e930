package scraper

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/aluiziolira/books-crawler/models"
	"github.com/aluiziolira/books-crawler/parser"
)

const descriptionXPath = `//div[@id="product_description"]/following-sibling::p[1]`

// ExtractBook maps a detail page into a record. Optional fields that the
// page omits are left nil; only a missing document or title is an error.
// The same page and timestamp always produce the same record. The product
// URL is the one requested, not where a redirect ended up.
func ExtractBook(page *Page, scrapedAt time.Time) (*models.Book, error) {
	if page == nil || page.Doc == nil || page.URL == nil || len(page.Doc.Nodes) == 0 {
		productURL := ""
		if page != nil && page.URL != nil {
			productURL = page.requestedURL()
		}
		return nil, &ExtractionError{URL: productURL, Err: ErrNoDocument}
	}

	productURL := page.requestedURL()
	doc := page.Doc

	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		return nil, &ExtractionError{URL: productURL, Err: parser.ErrMissingTitle}
	}

	return &models.Book{
		Title:        title,
		Price:        extractPrice(doc),
		Rating:       extractRating(doc),
		Availability: extractAvailability(doc),
		Description:  extractDescription(doc.Nodes[0]),
		Category:     extractCategory(doc),
		ImageURL:     extractImageURL(page),
		ProductURL:   productURL,
		ScrapedDate:  models.NewTimestamp(scrapedAt),
	}, nil
}

func extractPrice(doc *goquery.Document) *string {
	return models.StringPtr(strings.TrimSpace(doc.Find("p.price_color").First().Text()))
}

func extractRating(doc *goquery.Document) *string {
	class, ok := doc.Find("p.star-rating").First().Attr("class")
	if !ok {
		return nil
	}
	return parser.RatingFromClass(class)
}

// extractAvailability joins the direct text nodes of every availability
// paragraph, skipping icon markup.
func extractAvailability(doc *goquery.Document) *string {
	var parts []string
	doc.Find("p.instock.availability").Each(func(_ int, sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, node *goquery.Selection) {
			if len(node.Nodes) == 0 || node.Nodes[0].Type != html.TextNode {
				return
			}
			if text := strings.TrimSpace(node.Nodes[0].Data); text != "" {
				parts = append(parts, text)
			}
		})
	})
	return models.StringPtr(parser.CollapseWhitespace(strings.Join(parts, " ")))
}

func extractDescription(root *html.Node) *string {
	node := htmlquery.FindOne(root, descriptionXPath)
	if node == nil {
		return nil
	}
	return models.StringPtr(strings.TrimSpace(htmlquery.InnerText(node)))
}

// extractCategory reads the second-to-last breadcrumb entry.
func extractCategory(doc *goquery.Document) *string {
	crumbs := doc.Find("ul.breadcrumb li")
	if crumbs.Length() < 2 {
		return nil
	}
	return models.StringPtr(strings.TrimSpace(crumbs.Eq(crumbs.Length() - 2).Text()))
}

func extractImageURL(page *Page) *string {
	src, ok := page.Doc.Find("div.item.active img").First().Attr("src")
	if !ok {
		return nil
	}
	abs, ok := page.Resolve(src)
	if !ok {
		return nil
	}
	return &abs
}
