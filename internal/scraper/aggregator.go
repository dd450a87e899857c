// Package scraper fetches the configured income sources and turns their
// tabular text into income records.
package scraper

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"majorincome/internal/core"
	"majorincome/internal/log"
)

// Source formats.
const (
	FormatCSV  = "csv"
	FormatHTML = "html"
)

// Source describes one place to fetch records from.
type Source struct {
	Name   string
	URL    string
	Format string
}

// SourceReport summarizes how one source fared during FetchAll.
type SourceReport struct {
	Name    string       `json:"name,omitempty"`
	URL     string       `json:"url"`
	OK      bool         `json:"ok"`
	Records int          `json:"records"`
	Stats   ExtractStats `json:"stats"`
	Kind    FailureKind  `json:"failure,omitempty"`
}

// Result is the merged output of FetchAll.
type Result struct {
	Records  []core.IncomeRecord
	Sources  []SourceReport
	Failures []*SourceError
}

// Stats sums the extract stats of every source.
func (r Result) Stats() ExtractStats {
	var total ExtractStats
	for _, s := range r.Sources {
		total.Add(s.Stats)
	}
	return total
}

// Config holds aggregator configuration.
type Config struct {
	Timeout     time.Duration // Per-source timeout (default: 10s)
	Concurrency int           // Max concurrent fetches (default: 1)
	Extractor   Extractor
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:     10 * time.Second,
		Concurrency: 1,
		Extractor:   DefaultExtractor,
	}
}

// Aggregator fetches every source and merges the extracted records.
type Aggregator struct {
	cfg     Config
	fetcher Fetcher
	logger  *log.Logger
	events  *log.StructuredLogger
}

// NewAggregator creates an Aggregator. A nil logger discards output.
func NewAggregator(cfg Config, fetcher Fetcher, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	logger = logger.WithComponent(log.ComponentScraper)
	return &Aggregator{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger,
		events:  log.NewStructuredLogger(logger),
	}
}

// outcome is the per-source slot filled by a fetch.
type outcome struct {
	records []core.IncomeRecord
	stats   ExtractStats
	err     *SourceError
}

// FetchAll fetches sources in order and returns their merged records. Source
// failures are recorded in the result; an error is returned only when every
// source failed, and it matches ErrAllSourcesFailed.
func (a *Aggregator) FetchAll(ctx context.Context, sources []Source) (Result, error) {
	slots := make([]outcome, len(sources))

	if a.cfg.Concurrency == 1 {
		for i, src := range sources {
			slots[i] = a.fetchOne(ctx, src)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(a.cfg.Concurrency)
		for i, src := range sources {
			g.Go(func() error {
				slots[i] = a.fetchOne(ctx, src)
				return nil
			})
		}
		_ = g.Wait()
	}

	var result Result
	for i, src := range sources {
		result = fold(result, src, slots[i])
	}

	if len(result.Failures) == len(sources) {
		a.logger.ErrorContext(ctx, "No source produced data", log.FieldFailed, len(result.Failures))
		return Result{}, &AllSourcesError{Failures: result.Failures}
	}

	a.logger.InfoContext(ctx, "Sources fetched",
		log.FieldRecordCount, len(result.Records),
		log.FieldFailed, len(result.Failures))
	return result, nil
}

// fold appends one source outcome to the accumulated result.
func fold(acc Result, src Source, o outcome) Result {
	report := SourceReport{Name: src.Name, URL: src.URL, OK: o.err == nil, Records: len(o.records), Stats: o.stats}
	if o.err != nil {
		report.Kind = o.err.Kind
		acc.Failures = append(acc.Failures, o.err)
	}
	acc.Sources = append(acc.Sources, report)
	acc.Records = append(acc.Records, o.records...)
	return acc
}

func (a *Aggregator) fetchOne(ctx context.Context, src Source) outcome {
	if err := ctx.Err(); err != nil {
		return outcome{err: classify(src.URL, err)}
	}

	start := time.Now()
	body, err := a.fetcher.Fetch(ctx, src.URL, a.cfg.Timeout)
	if err != nil {
		se := classify(src.URL, err)
		a.events.LogSourceFailure(ctx, src.URL, string(se.Kind), err)
		return outcome{err: se}
	}

	if src.Format == FormatHTML {
		text, err := TableToCSV(body)
		if err != nil {
			a.logger.WarnContext(ctx, "Source has no usable table",
				log.FieldSourceURL, src.URL, log.FieldError, err.Error())
			return outcome{}
		}
		body = text
	}

	records, stats := a.cfg.Extractor.Extract(body)
	a.logger.DebugContext(ctx, "Source extracted",
		log.FieldSourceURL, src.URL,
		log.FieldRecordCount, len(records),
		"malformed", stats.Malformed,
		"unparseable", stats.Unparseable,
		log.FieldDuration, time.Since(start).Milliseconds())
	return outcome{records: records, stats: stats}
}
