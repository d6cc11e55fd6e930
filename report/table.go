package report

import (
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/aluiziolira/books-crawler/dataset"
	"github.com/aluiziolira/books-crawler/recovery"
)

// RenderTable writes the load report and summary as a set of tables.
func RenderTable(w io.Writer, summary dataset.Summary, load recovery.Report) {
	overview := newTable(w, "Overview")
	overview.AppendHeader(table.Row{"Metric", "Value"})
	overview.AppendRows([]table.Row{
		{"Fragments found", load.Fragments},
		{"Records recovered", load.Recovered},
		{"Records repaired", load.Repaired},
		{"Fragments dropped", load.Dropped},
		{"Total books", summary.Total},
		{"Unique categories", summary.UniqueCategories},
		{"With image", summary.WithImage},
		{"With description", summary.WithDescription},
	})
	overview.Render()

	prices := newTable(w, "Prices")
	prices.AppendHeader(table.Row{"Statistic", "Value"})
	prices.AppendRows([]table.Row{
		{"Priced books", summary.Price.Count},
		{"Average", money(summary.Price.Mean)},
		{"Least expensive", money(summary.Price.Min)},
		{"Most expensive", money(summary.Price.Max)},
		{"Standard deviation", money(summary.Price.StdDev)},
		{"Most common", money(summary.Price.Mode)},
	})
	for _, band := range summary.PriceBands {
		prices.AppendRow(table.Row{band.Label, strconv.Itoa(band.Count) + " (" + pct(band.Percent) + ")"})
	}
	prices.Render()

	ratings := newTable(w, "Ratings")
	ratings.AppendHeader(table.Row{"Rating", "Books", "Share"})
	for _, r := range summary.Ratings {
		ratings.AppendRow(table.Row{stars(r.Stars), r.Count, pct(r.Percent)})
	}
	ratings.Render()

	categories := newTable(w, "Top categories")
	categories.AppendHeader(table.Row{"#", "Category", "Books", "Share"})
	for i, c := range summary.TopCategories(topCategories) {
		categories.AppendRow(table.Row{i + 1, c.Label, c.Count, pct(c.Percent)})
	}
	categories.Render()

	if len(summary.Sample) > 0 {
		sample := newTable(w, "Sample")
		sample.AppendHeader(table.Row{"Title", "Price", "Category", "Rating"})
		for _, book := range summary.Sample {
			sample.AppendRow(table.Row{truncate(book.Title, 40), orDash(book.Price), orDash(book.Category), orDash(book.Rating)})
		}
		sample.Render()
	}
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}
