package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/aluiziolira/books-crawler/dataset"
	"github.com/aluiziolira/books-crawler/recovery"
)

// MarkdownOptions labels a Markdown summary.
type MarkdownOptions struct {
	Source    string
	Generated time.Time
}

// WriteMarkdown renders the summary as a Markdown document.
func WriteMarkdown(w io.Writer, summary dataset.Summary, load recovery.Report, opts MarkdownOptions) error {
	md := markdown.NewMarkdown(w)

	md.H1("Book Catalogue Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source", "`" + opts.Source + "`"},
			{"Generated", opts.Generated.UTC().Format("2006-01-02 15:04:05 MST")},
			{"Total books", strconv.Itoa(summary.Total)},
			{"Unique categories", strconv.Itoa(summary.UniqueCategories)},
			{"With image", strconv.Itoa(summary.WithImage)},
			{"With description", strconv.Itoa(summary.WithDescription)},
		},
	})
	md.PlainText("")

	writeLoadNotice(md, load)

	md.H2("Prices")
	md.PlainText("")
	rows := [][]string{
		{"Priced books", strconv.Itoa(summary.Price.Count)},
		{"Average", money(summary.Price.Mean)},
		{"Range", money(summary.Price.Min) + " - " + money(summary.Price.Max)},
		{"Standard deviation", money(summary.Price.StdDev)},
		{"Most common", money(summary.Price.Mode)},
	}
	for _, band := range summary.PriceBands {
		rows = append(rows, []string{band.Label, strconv.Itoa(band.Count) + " (" + pct(band.Percent) + ")"})
	}
	md.Table(markdown.TableSet{Header: []string{"Statistic", "Value"}, Rows: rows})
	md.PlainText("")

	md.H2("Ratings")
	md.PlainText("")
	ratingRows := make([][]string, 0, len(summary.Ratings))
	for _, r := range summary.Ratings {
		ratingRows = append(ratingRows, []string{stars(r.Stars), strconv.Itoa(r.Count), pct(r.Percent)})
	}
	md.Table(markdown.TableSet{Header: []string{"Rating", "Books", "Share"}, Rows: ratingRows})
	md.PlainText("")
	writeRatingChart(md, summary)

	md.H2("Top Categories")
	md.PlainText("")
	top := summary.TopCategories(topCategories)
	if len(top) == 0 {
		md.PlainText("No categories recorded.")
	} else {
		items := make([]string, 0, len(top))
		for _, c := range top {
			items = append(items, c.Label+": "+strconv.Itoa(c.Count)+" books ("+pct(c.Percent)+")")
		}
		md.OrderedList(items...)
	}
	md.PlainText("")

	return md.Build()
}

func writeLoadNotice(md *markdown.Markdown, load recovery.Report) {
	switch {
	case load.Dropped > 0:
		md.Warningf("%d of %d fragments could not be decoded and were dropped.", load.Dropped, load.Fragments)
	case load.Repaired > 0:
		md.Note(fmt.Sprintf("%d records needed cleanup before they decoded.", load.Repaired))
	case !load.Strict:
		md.Note("The input was not a complete JSON array; every record was recovered.")
	default:
		md.Tip("The input decoded cleanly.")
	}
	md.PlainText("")
}

func writeRatingChart(md *markdown.Markdown, summary dataset.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Rating Distribution"),
		piechart.WithShowData(true),
	)
	plotted := false
	for _, r := range summary.Ratings {
		if r.Count == 0 {
			continue
		}
		chart.LabelAndIntValue(stars(r.Stars), uint64(r.Count))
		plotted = true
	}
	if !plotted {
		return
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}
