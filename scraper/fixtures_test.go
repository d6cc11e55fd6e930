package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/books-crawler/config"
	"github.com/aluiziolira/books-crawler/models"
)

const testBaseURL = "http://example.test/"

var testRatings = []string{"One", "Two", "Three", "Four", "Five"}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.StartURL = testBaseURL
	cfg.Delay = 0
	cfg.RespectRobotsTxt = false
	cfg.MaxRetries = 0
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 5 * time.Millisecond
	return cfg
}

func listingURL(page int) string {
	if page == 1 {
		return testBaseURL
	}
	return fmt.Sprintf("%spage-%d.html", testBaseURL, page)
}

func detailURL(id int) string {
	return fmt.Sprintf("%scatalogue/book-%d/index.html", testBaseURL, id)
}

// buildListingPage renders a catalogue page linking to the given book ids.
// nextPage <= 0 omits the pagination link.
func buildListingPage(ids []int, nextPage int) string {
	var builder strings.Builder
	builder.WriteString("<html><body><section><ol class=\"row\">")

	for _, id := range ids {
		builder.WriteString("<li><article class=\"product_pod\">")
		fmt.Fprintf(&builder, "<div class=\"image_container\"><a href=\"catalogue/book-%d/index.html\"><img src=\"media/cache/thumb-%d.jpg\" /></a></div>", id, id)
		fmt.Fprintf(&builder, "<h3><a href=\"catalogue/book-%d/index.html\" title=\"Book %d\">Book %d</a></h3>", id, id, id)
		fmt.Fprintf(&builder, "<div class=\"product_price\"><p class=\"price_color\">&pound;%0.2f</p></div>", float64(id))
		builder.WriteString("</article></li>")
	}
	builder.WriteString("</ol>")

	if nextPage > 0 {
		builder.WriteString("<ul class=\"pager\">")
		fmt.Fprintf(&builder, "<li class=\"next\"><a href=\"page-%d.html\">next</a></li>", nextPage)
		builder.WriteString("</ul>")
	}

	builder.WriteString("</section></body></html>")
	return builder.String()
}

// buildDetailPage renders a product page shaped like the demo site's.
func buildDetailPage(id int) string {
	var builder strings.Builder
	builder.WriteString("<html><head><title>Book</title></head><body><div class=\"page_inner\">")
	builder.WriteString("<ul class=\"breadcrumb\">")
	builder.WriteString("<li><a href=\"../../index.html\">Home</a></li>")
	builder.WriteString("<li><a href=\"../category/books_1/index.html\">Books</a></li>")
	builder.WriteString("<li><a href=\"../category/books/poetry_23/index.html\">Poetry</a></li>")
	fmt.Fprintf(&builder, "<li class=\"active\">Book %d</li>", id)
	builder.WriteString("</ul>")

	builder.WriteString("<article class=\"product_page\"><div class=\"row\">")
	builder.WriteString("<div class=\"col-sm-6\"><div id=\"product_gallery\" class=\"carousel\"><div class=\"thumbnail\"><div class=\"carousel-inner\">")
	fmt.Fprintf(&builder, "<div class=\"item active\"><img src=\"../../media/cache/book-%d.jpg\" alt=\"Book %d\" /></div>", id, id)
	builder.WriteString("</div></div></div></div>")

	builder.WriteString("<div class=\"col-sm-6 product_main\">")
	fmt.Fprintf(&builder, "<h1>Book %d</h1>", id)
	fmt.Fprintf(&builder, "<p class=\"price_color\">£%d.77</p>", id)
	builder.WriteString("<p class=\"instock availability\">\n    <i class=\"icon-ok\"></i>\n    \n        In stock (22 available)\n    \n</p>")
	fmt.Fprintf(&builder, "<p class=\"star-rating %s\"><i class=\"icon-star\"></i></p>", testRatings[id%len(testRatings)])
	builder.WriteString("</div></div>")

	builder.WriteString("<div id=\"product_description\" class=\"sub-header\"><h2>Product Description</h2></div>")
	fmt.Fprintf(&builder, "<p>Description of book %d.</p>", id)
	builder.WriteString("<div class=\"sub-header\"><h2>Product Information</h2></div>")
	builder.WriteString("<table class=\"table table-striped\"><tr><th>UPC</th><td>a897fe39b1053632</td></tr></table>")
	builder.WriteString("</article></div></body></html>")
	return builder.String()
}

// buildChain wires pages listing pages of perPage books each; every page
// but the last links to its successor.
func buildChain(pages, perPage int) map[string]string {
	site := make(map[string]string)
	id := 1
	for page := 1; page <= pages; page++ {
		ids := make([]int, 0, perPage)
		for i := 0; i < perPage; i++ {
			ids = append(ids, id)
			site[detailURL(id)] = buildDetailPage(id)
			id++
		}
		next := 0
		if page < pages {
			next = page + 1
		}
		site[listingURL(page)] = buildListingPage(ids, next)
	}
	return site
}

// memFetcher serves pages from memory and records every fetch.
type memFetcher struct {
	pages map[string]string
	// status forces a permanent HTTP failure for a URL.
	status map[string]int
	// flaky fails a URL with 503 this many times before serving it.
	flaky map[string]int
	calls []string
}

func newMemFetcher(pages map[string]string) *memFetcher {
	return &memFetcher{
		pages:  pages,
		status: make(map[string]int),
		flaky:  make(map[string]int),
	}
}

func (m *memFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	m.calls = append(m.calls, rawURL)
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	if n := m.flaky[rawURL]; n > 0 {
		m.flaky[rawURL] = n - 1
		return nil, &FetchError{URL: rawURL, StatusCode: http.StatusServiceUnavailable, Err: classifyError(nil, http.StatusServiceUnavailable)}
	}
	if status, ok := m.status[rawURL]; ok {
		return nil, &FetchError{URL: rawURL, StatusCode: status, Err: classifyError(nil, status)}
	}
	body, ok := m.pages[rawURL]
	if !ok {
		return nil, &FetchError{URL: rawURL, StatusCode: http.StatusNotFound, Err: classifyError(nil, http.StatusNotFound)}
	}
	return NewPage(rawURL, http.StatusOK, strings.NewReader(body))
}

func (m *memFetcher) countCalls(rawURL string) int {
	n := 0
	for _, call := range m.calls {
		if call == rawURL {
			n++
		}
	}
	return n
}

type collectingSink struct {
	mu    sync.Mutex
	books []*models.Book
	err   error
}

func (cs *collectingSink) Process(books ...*models.Book) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.err != nil {
		return cs.err
	}
	cs.books = append(cs.books, books...)
	return nil
}

func (cs *collectingSink) urls() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]string, 0, len(cs.books))
	for _, book := range cs.books {
		out = append(out, book.ProductURL)
	}
	return out
}
