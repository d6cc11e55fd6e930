package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/books-crawler/dataset"
	"github.com/aluiziolira/books-crawler/models"
	"github.com/aluiziolira/books-crawler/pipeline"
	"github.com/aluiziolira/books-crawler/recovery"
	"github.com/aluiziolira/books-crawler/report"
)

type statsOptions struct {
	markdown string
	csv      string
}

func newStatsCmd(root *rootOptions) *cobra.Command {
	opts := &statsOptions{}

	cmd := &cobra.Command{
		Use:   "stats [file]",
		Short: "Summarise crawl output, recovering records from damaged files",
		Long: `Load crawl output (JSON array, truncated array or JSONL), print how many
records were recovered and dropped, then print price, rating and category
statistics. Defaults to the configured output file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.cfg.OutputFile
			if len(args) == 1 {
				path = args[0]
			}

			books, load, err := dataset.LoadRecords(path)
			if err != nil {
				return err
			}
			summary := dataset.ComputeSummary(books)
			report.RenderTable(cmd.OutOrStdout(), summary, load)

			if opts.markdown != "" {
				if err := writeMarkdownReport(opts.markdown, path, summary, load); err != nil {
					return err
				}
				slog.Info("markdown summary written", slog.String("path", opts.markdown))
			}
			if opts.csv != "" {
				if err := writeCSV(opts.csv, books); err != nil {
					return err
				}
				slog.Info("csv export written", slog.String("path", opts.csv), slog.Int("records", len(books)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.markdown, "markdown", "", "also write a Markdown summary to this path")
	cmd.Flags().StringVar(&opts.csv, "csv", "", "also export the recovered records as CSV to this path")
	return cmd
}

func writeMarkdownReport(path, source string, summary dataset.Summary, load recovery.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create markdown file: %w", err)
	}
	if err := report.WriteMarkdown(f, summary, load, report.MarkdownOptions{Source: source, Generated: time.Now()}); err != nil {
		f.Close()
		return fmt.Errorf("write markdown: %w", err)
	}
	return f.Close()
}

func writeCSV(path string, books []*models.Book) error {
	writer, err := pipeline.NewCSVWriter(path)
	if err != nil {
		return err
	}
	if err := writer.Write(books); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}
