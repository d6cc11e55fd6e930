// Package dataset loads crawl output for analysis and summarises it.
package dataset

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aluiziolira/books-crawler/models"
	"github.com/aluiziolira/books-crawler/recovery"
)

// LoadRecords reads the crawl output at path, salvaging what it can from
// damaged files. Only an unreadable file is an error; decode problems are
// reported per fragment in the returned report.
func LoadRecords(path string) ([]*models.Book, recovery.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, recovery.Report{}, fmt.Errorf("read records %s: %w", path, err)
	}

	books, report := recovery.Recover(data)

	attrs := []any{
		slog.String("path", path),
		slog.Int("fragments", report.Fragments),
		slog.Int("recovered", report.Recovered),
		slog.Int("repaired", report.Repaired),
		slog.Int("dropped", report.Dropped),
		slog.Bool("strict", report.Strict),
	}
	if report.Lossless() {
		slog.Info("records loaded", attrs...)
	} else {
		slog.Warn("records loaded with dropped fragments", attrs...)
		for _, failure := range report.Failures {
			slog.Debug("dropped fragment", slog.Int("offset", failure.Offset), slog.Any("error", failure.Err))
		}
	}
	return books, report, nil
}
