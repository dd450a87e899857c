// Package pipeline runs one scrape: fetch every source, reduce the rows into
// one record per major, persist the result and announce it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"majorincome/internal/amqp"
	"majorincome/internal/core"
	"majorincome/internal/log"
	"majorincome/internal/scraper"
	"majorincome/internal/storage"
)

// ErrNotPersisted is returned when every configured store rejected the dataset.
var ErrNotPersisted = errors.New("dataset was not persisted")

type (
	Aggregator interface {
		FetchAll(ctx context.Context, sources []scraper.Source) (scraper.Result, error)
	}

	// SnapshotWriter replaces the JSON fallback file.
	SnapshotWriter interface {
		Save(records []core.AggregatedRecord) error
	}

	// Database stores records and keeps a history of runs.
	Database interface {
		InsertMany(ctx context.Context, records []core.AggregatedRecord) error
		RecordRun(ctx context.Context, run storage.Run) error
	}

	Publisher interface {
		PublishDatasetRefreshed(ctx context.Context, msg *amqp.DatasetRefreshedMessage) error
	}
)

// Options wires optional collaborators. A nil store is skipped.
type Options struct {
	Snapshot  SnapshotWriter
	Database  Database
	Publisher Publisher
	Logger    *log.Logger
}

// RunReport describes one completed run.
type RunReport struct {
	RunID    string
	Records  []core.AggregatedRecord
	Stats    core.Statistics
	Extract  scraper.ExtractStats
	Sources  []scraper.SourceReport
	Failures []*scraper.SourceError
	Duration time.Duration

	SnapshotErr error
	DatabaseErr error
	PublishErr  error
}

// HasData reports whether the run produced at least one record.
func (r RunReport) HasData() bool { return len(r.Records) > 0 }

type Runner struct {
	agg     Aggregator
	sources []scraper.Source
	opts    Options
	logger  *log.Logger
	now     func() time.Time
	newID   func() string
}

func NewRunner(agg Aggregator, sources []scraper.Source, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	return &Runner{
		agg:     agg,
		sources: sources,
		opts:    opts,
		logger:  opts.Logger.WithComponent(log.ComponentPipeline),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Run executes a single scrape. Source failures are reported, not returned,
// unless every source failed. Snapshot and database writes are independent:
// one failing does not skip the other.
func (r *Runner) Run(ctx context.Context) (RunReport, error) {
	start := r.now()
	report := RunReport{RunID: r.newID()}
	logger := r.logger.With(log.FieldRunID, report.RunID)

	logger.InfoContext(ctx, "Scrape run started", "sources", len(r.sources))

	result, err := r.agg.FetchAll(ctx, r.sources)
	report.Sources = result.Sources
	report.Failures = result.Failures
	report.Extract = result.Stats()
	if err != nil {
		var all *scraper.AllSourcesError
		if errors.As(err, &all) {
			report.Failures = all.Failures
		}
		report.Duration = r.now().Sub(start)
		r.recordRun(ctx, logger, report, start)
		logger.ErrorContext(ctx, "Scrape run produced no data",
			log.FieldError, err.Error(),
			log.FieldFailed, len(report.Failures))
		return report, err
	}

	report.Records = core.Reduce(result.Records)
	report.Stats, _ = core.ComputeStatistics(report.Records)

	persisted := 0
	if r.opts.Snapshot != nil {
		if err := r.opts.Snapshot.Save(report.Records); err != nil {
			report.SnapshotErr = err
			logger.ErrorContext(ctx, "Saving JSON snapshot failed",
				log.FieldOperation, log.OpSave, log.FieldError, err.Error())
		} else {
			persisted++
		}
	}
	if r.opts.Database != nil {
		if err := r.opts.Database.InsertMany(ctx, report.Records); err != nil {
			report.DatabaseErr = err
			logger.ErrorContext(ctx, "Database insert failed",
				log.FieldOperation, log.OpInsert, log.FieldError, err.Error())
		} else {
			persisted++
		}
	}
	report.Duration = r.now().Sub(start)
	r.recordRun(ctx, logger, report, start)

	if persisted == 0 && (r.opts.Snapshot != nil || r.opts.Database != nil) {
		return report, fmt.Errorf("%w: %w", ErrNotPersisted, errors.Join(report.SnapshotErr, report.DatabaseErr))
	}

	if r.opts.Publisher != nil {
		msg := amqp.NewDatasetRefreshedMessage(report.RunID, len(report.Records), len(r.sources), len(report.Failures))
		if err := r.opts.Publisher.PublishDatasetRefreshed(ctx, msg); err != nil {
			report.PublishErr = err
			logger.WarnContext(ctx, "Publishing refresh event failed",
				log.FieldOperation, log.OpPublish, log.FieldError, err.Error())
		}
	}

	logger.InfoContext(ctx, "Scrape run finished",
		log.FieldRecordCount, report.Extract.Emitted,
		log.FieldMajorCount, len(report.Records),
		log.FieldFailed, len(report.Failures),
		log.FieldDuration, report.Duration.Milliseconds())
	return report, nil
}

func (r *Runner) recordRun(ctx context.Context, logger *log.Logger, report RunReport, start time.Time) {
	if r.opts.Database == nil {
		return
	}
	run := storage.Run{
		ID:               report.RunID,
		StartedAt:        start,
		FinishedAt:       start.Add(report.Duration),
		SourcesTotal:     len(r.sources),
		SourcesFailed:    len(report.Failures),
		RecordsExtracted: report.Extract.Emitted,
		Majors:           len(report.Records),
	}
	if err := r.opts.Database.RecordRun(ctx, run); err != nil {
		logger.WarnContext(ctx, "Recording run history failed", log.FieldError, err.Error())
	}
}

// Loop runs immediately and then every interval until ctx is cancelled.
// Failed runs are logged and retried on the next tick.
func (r *Runner) Loop(ctx context.Context, interval time.Duration, onRun func(RunReport, error)) error {
	if interval <= 0 {
		return errors.New("interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := r.Run(ctx)
		if onRun != nil {
			onRun(report, err)
		}
		if ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case <-ticker.C:
				continue
			}
		}
		r.logger.InfoContext(ctx, "Scrape loop stopped", log.FieldOperation, log.OpShutdown)
		return ctx.Err()
	}
}
