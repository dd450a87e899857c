package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"majorincome/internal/amqp"
	"majorincome/internal/backend"
	"majorincome/internal/chart"
	"majorincome/internal/cli"
	"majorincome/internal/config"
	"majorincome/internal/log"
	"majorincome/internal/pipeline"
	"majorincome/internal/scraper"
)

func newScrapeCommand() *cobra.Command {
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch all sources and refresh the dataset",
		Long: `Fetch every configured source, merge duplicate majors, and write the
result to SQLite and the JSON fallback file. With --every the command keeps
running and repeats on that interval until interrupted.`,
		Example: `  majorincome scrape
  majorincome scrape --every 6h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := cli.Bootstrap()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("every") {
				every = cfg.ScrapeInterval
			}
			return runScrape(cmd.Context(), cmd.OutOrStdout(), cfg, logger, every)
		},
	}
	cmd.Flags().DurationVar(&every, "every", 0, "repeat the scrape on this interval (default SCRAPE_INTERVAL, 0 runs once)")
	return cmd
}

func runScrape(parent context.Context, out io.Writer, cfg *config.Config, logger *log.Logger, every time.Duration) error {
	ctx, stop := cli.SignalContext(parent, logger)
	defer stop()

	res, err := backend.NewFactory(logger).CreateBackend(ctx, backend.FromAppConfig(cfg))
	if err != nil {
		return err
	}
	defer res.Cleanup()

	opts := pipeline.Options{Snapshot: res.JSON, Logger: logger}
	if res.Database != nil {
		opts.Database = res.Database
	}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, refresh events disabled", log.FieldError, err.Error())
		} else {
			defer client.Close()
			opts.Publisher = client
		}
	}

	agg := scraper.NewAggregator(scraper.Config{
		Timeout:     cfg.FetchTimeout,
		Concurrency: cfg.FetchConcurrency,
		Extractor:   scraper.DefaultExtractor,
	}, scraper.NewHTTPFetcher(nil), logger)
	runner := pipeline.NewRunner(agg, scraperSources(cfg.Sources), opts)

	if every <= 0 {
		report, err := runner.Run(ctx)
		printReport(out, report, err)
		return err
	}

	logger.Info("Scraping on interval", "interval", every.String())
	err = runner.Loop(ctx, every, func(report pipeline.RunReport, err error) {
		printReport(out, report, err)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func scraperSources(sources []config.Source) []scraper.Source {
	out := make([]scraper.Source, 0, len(sources))
	for _, s := range sources {
		out = append(out, scraper.Source{Name: s.Name, URL: s.URL, Format: s.Format})
	}
	return out
}

func printReport(out io.Writer, report pipeline.RunReport, err error) {
	for _, f := range report.Failures {
		fmt.Fprintf(out, "Failed to fetch %s: %v\n", f.URL, f.Err)
	}
	if err != nil {
		fmt.Fprintf(out, "Scrape failed: %v\n", err)
		return
	}
	if !report.HasData() {
		fmt.Fprintln(out, "No records extracted.")
		return
	}

	s := report.Stats
	fmt.Fprintf(out, "Saved %d majors (run %s, %s)\n", s.TotalMajors, report.RunID, report.Duration.Round(time.Millisecond))
	fmt.Fprintln(out, "Statistics:")
	fmt.Fprintf(out, "  Total majors:   %d\n", s.TotalMajors)
	fmt.Fprintf(out, "  Average income: %s\n", chart.FormatCurrency(int64(s.AvgIncome+0.5)))
	fmt.Fprintf(out, "  Highest income: %s\n", chart.FormatCurrency(s.MaxIncome))
	fmt.Fprintf(out, "  Lowest income:  %s\n", chart.FormatCurrency(s.MinIncome))
	if report.SnapshotErr != nil {
		fmt.Fprintf(out, "Warning: JSON fallback not written: %v\n", report.SnapshotErr)
	}
	if report.DatabaseErr != nil {
		fmt.Fprintf(out, "Warning: database not updated: %v\n", report.DatabaseErr)
	}
}
