package scraper

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRunRecordsMetrics(t *testing.T) {
	f := newMemFetcher(buildChain(2, 3))
	f.status[detailURL(4)] = http.StatusNotFound
	s := NewScraperWithFetcher(testConfig(), f)

	result, err := s.Run(context.Background(), &collectingSink{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := testutil.ToFloat64(s.Metrics.RecordsTotal); got != float64(result.RecordCount) {
		t.Fatalf("records metric = %v, want %d", got, result.RecordCount)
	}
	if got := testutil.ToFloat64(s.Metrics.PagesTotal.WithLabelValues("listing", "fetched")); got != 2 {
		t.Fatalf("listing pages metric = %v, want 2", got)
	}
	if got := testutil.ToFloat64(s.Metrics.PagesTotal.WithLabelValues("detail", "fetch_failed")); got != 1 {
		t.Fatalf("failed detail metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.Metrics.ErrorsTotal.WithLabelValues("not_found")); got != 1 {
		t.Fatalf("not_found metric = %v, want 1", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.IncRequest("started")
	m.IncPage(RoleDetail, "fetched")
	m.IncRecords()
	m.IncRetries()
	m.IncError("timeout")
	m.IncDuplicate()
}
