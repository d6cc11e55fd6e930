package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/books-crawler/config"
	"github.com/aluiziolira/books-crawler/models"
	"github.com/aluiziolira/books-crawler/pipeline"
	"github.com/aluiziolira/books-crawler/scraper"
)

type crawlOptions struct {
	startURL        string
	maxPages        int
	delay           time.Duration
	randomDelay     time.Duration
	timeout         time.Duration
	maxRetries      int
	retryBackoff    time.Duration
	retryBackoffMax time.Duration
	respectRobots   bool
	output          string
	format          string
	batchSize       int
	userAgent       string
	metricsAddr     string
}

func newCrawlCmd(root *rootOptions) *cobra.Command {
	opts := &crawlOptions{}
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the catalogue and write one record per book",
		Long: `Follow the listing pages from the start URL, fetch every linked detail
page and write the extracted records in traversal order.

Pages that fail are counted and skipped; only a failure on the start page
aborts the run. Interrupting the crawl (Ctrl-C) keeps every record written
so far and closes the output cleanly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.apply(cmd, root.cfg)
			return runCrawl(cmd.Context(), cmd.OutOrStdout(), root.cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.startURL, "start-url", defaults.StartURL, "first listing page to crawl")
	flags.IntVar(&opts.maxPages, "max-pages", defaults.MaxPages, "maximum listing pages to follow (0 = no limit)")
	flags.DurationVar(&opts.delay, "delay", defaults.Delay, "delay between requests")
	flags.DurationVar(&opts.randomDelay, "random-delay", defaults.RandomDelay, "random jitter added to the delay")
	flags.DurationVar(&opts.timeout, "timeout", defaults.Timeout, "per-request timeout")
	flags.IntVar(&opts.maxRetries, "max-retries", defaults.MaxRetries, "maximum retry attempts per URL")
	flags.DurationVar(&opts.retryBackoff, "retry-backoff", defaults.RetryBackoff, "initial retry backoff")
	flags.DurationVar(&opts.retryBackoffMax, "retry-backoff-max", defaults.RetryBackoffMax, "maximum retry backoff")
	flags.BoolVar(&opts.respectRobots, "respect-robots", defaults.RespectRobotsTxt, "respect robots.txt directives")
	flags.StringVarP(&opts.output, "output", "o", defaults.OutputFile, "output file path")
	flags.StringVar(&opts.format, "format", defaults.OutputFormat, "output format: json, jsonl, csv, or dual")
	flags.IntVar(&opts.batchSize, "batch-size", defaults.BatchSize, "records per output write")
	flags.StringVar(&opts.userAgent, "user-agent", defaults.UserAgent, "User-Agent header")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")

	return cmd
}

// apply overlays explicitly set flags on the loaded configuration.
func (o *crawlOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("start-url") {
		cfg.StartURL = o.startURL
	}
	if flags.Changed("max-pages") {
		cfg.MaxPages = o.maxPages
	}
	if flags.Changed("delay") {
		cfg.Delay = o.delay
	}
	if flags.Changed("random-delay") {
		cfg.RandomDelay = o.randomDelay
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.timeout
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries = o.maxRetries
	}
	if flags.Changed("retry-backoff") {
		cfg.RetryBackoff = o.retryBackoff
	}
	if flags.Changed("retry-backoff-max") {
		cfg.RetryBackoffMax = o.retryBackoffMax
	}
	if flags.Changed("respect-robots") {
		cfg.RespectRobotsTxt = o.respectRobots
	}
	if flags.Changed("output") {
		cfg.OutputFile = o.output
	}
	if flags.Changed("format") {
		cfg.OutputFormat = strings.ToLower(o.format)
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = o.batchSize
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = o.userAgent
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = o.metricsAddr
	}
}

func runCrawl(ctx context.Context, out io.Writer, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	slog.Info("starting crawl",
		slog.String("start_url", cfg.StartURL),
		slog.Int("max_pages", cfg.MaxPages),
		slog.Duration("delay", cfg.Delay),
		slog.String("output", cfg.OutputFile),
		slog.String("format", cfg.OutputFormat),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		return fmt.Errorf("initialise scraper: %w", err)
	}

	writer, err := pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}
	writerClosed := false
	defer func() {
		if writerClosed {
			return
		}
		if closeErr := writer.Close(); closeErr != nil {
			slog.Error("close writer", slog.Any("error", closeErr))
		}
	}()

	parent := ctx
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer watchShutdown(parent, ctx)()

	metricsServer := startMetricsServer(cfg.MetricsAddr, s.Metrics)
	defer shutdownMetricsServer(metricsServer)

	p := pipeline.NewPipeline(writer, cfg)
	p.Start(1)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	result, runErr := s.Run(ctx, p)
	closeErr := p.Close()

	writerClosed = true
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("crawl failed: %w", runErr)
	}
	if closeErr != nil {
		return fmt.Errorf("pipeline shutdown: %w", closeErr)
	}
	if err := writer.Validate(); err != nil {
		return fmt.Errorf("output validation: %w", err)
	}

	printSummary(out, result, p.Stats(), cfg.OutputFile)
	if result.Interrupted {
		slog.Warn("crawl interrupted, output holds a partial result", slog.Int("records", result.RecordCount))
	}
	return nil
}

// watchShutdown logs once when ctx is cancelled by a signal rather than by
// parent. The returned func stops the watcher and waits for it to exit.
func watchShutdown(parent, ctx context.Context) func() {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		select {
		case <-ctx.Done():
			if parent.Err() == nil {
				slog.Info("shutdown signal received, finishing the current page")
			}
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

func startMetricsServer(addr string, metrics *scraper.Metrics) *http.Server {
	if addr == "" || metrics == nil {
		return nil
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func shutdownMetricsServer(server *http.Server) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}

func printSummary(w io.Writer, result *models.CrawlResult, stats pipeline.Stats, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, "\n"+separator)
	if result.Interrupted {
		fmt.Fprintln(w, "Crawl interrupted")
	} else {
		fmt.Fprintln(w, "Crawl complete")
	}

	fmt.Fprintf(w, "  Attempted pages:     %d\n", result.AttemptedPages)
	fmt.Fprintf(w, "  Listing pages:       %d\n", result.ListingPages)
	fmt.Fprintf(w, "  Detail pages:        %d\n", result.DetailPages)
	fmt.Fprintf(w, "  Records:             %d\n", result.RecordCount)
	fmt.Fprintf(w, "  Written:             %d\n", stats.Written)
	fmt.Fprintf(w, "  Failed pages:        %d\n", result.FailedPages)
	fmt.Fprintf(w, "  Extraction failures: %d\n", result.ExtractionFailures)
	fmt.Fprintf(w, "  Skipped duplicates:  %d\n", result.SkippedDuplicates+int(stats.Duplicates))
	fmt.Fprintf(w, "  Requests:            %d\n", result.RequestCount)
	fmt.Fprintf(w, "  Retries:             %d\n", result.RetryCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Fprintf(w, "  Errors by type:      %s\n", formatCounts(result.ErrorsByType))
	}
	if len(result.FailedURLs) > 0 {
		fmt.Fprintln(w, "  Failed URLs:")
		for _, url := range result.FailedURLs {
			fmt.Fprintf(w, "    - %s\n", url)
		}
	}

	duration := result.Duration()
	fmt.Fprintf(w, "  Duration:            %v\n", duration.Round(time.Millisecond))
	if seconds := duration.Seconds(); seconds > 0 {
		fmt.Fprintf(w, "  Records/sec:         %.2f\n", float64(result.RecordCount)/seconds)
	}
	fmt.Fprintf(w, "  Output file:         %s\n", outputFile)
	fmt.Fprintln(w, separator)
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}
