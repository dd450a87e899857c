package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"majorincome/internal/core"
	"majorincome/internal/dataset"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Run is the bookkeeping row written after each pipeline run.
type Run struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       time.Time
	SourcesTotal     int
	SourcesFailed    int
	RecordsExtracted int
	Majors           int
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InsertMany upserts every record in a single transaction. Either all
// records are stored or none are.
func (r *SQLiteRepository) InsertMany(ctx context.Context, records []core.AggregatedRecord) error {
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("invalid record %q: %w", rec.Major, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	for _, rec := range records {
		if err := q.UpsertMajor(ctx, UpsertMajorParams{
			Major:       rec.Major,
			Income:      rec.Income,
			SourceCount: int64(rec.SourceCount),
		}); err != nil {
			return fmt.Errorf("upsert %q: %w", rec.Major, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetStatistics(ctx context.Context) (core.Statistics, bool, error) {
	row, err := r.queries.GetStatistics(ctx)
	if err != nil {
		return core.Statistics{}, false, fmt.Errorf("get statistics: %w", err)
	}
	if row.Total == 0 {
		return core.Statistics{}, false, nil
	}
	return core.Statistics{
		TotalMajors: int(row.Total),
		AvgIncome:   row.AvgIncome,
		MaxIncome:   row.MaxIncome,
		MinIncome:   row.MinIncome,
	}, true, nil
}

func (r *SQLiteRepository) GetTopN(ctx context.Context, n int) ([]core.AggregatedRecord, error) {
	if n < 0 {
		n = 0
	}
	return r.list(ctx, int64(n))
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.AggregatedRecord, error) {
	return r.list(ctx, -1)
}

func (r *SQLiteRepository) list(ctx context.Context, limit int64) ([]core.AggregatedRecord, error) {
	rows, err := r.queries.ListMajorsByIncome(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list majors: %w", err)
	}
	out := make([]core.AggregatedRecord, 0, len(rows))
	for _, m := range rows {
		out = append(out, core.AggregatedRecord{
			Major:       m.Major,
			Income:      m.Income,
			SourceCount: int(m.SourceCount),
		})
	}
	return out, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	n, err := r.queries.CountMajors(ctx)
	if err != nil {
		return 0, fmt.Errorf("count majors: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) RecordRun(ctx context.Context, run Run) error {
	err := r.queries.InsertScrapeRun(ctx, ScrapeRun{
		ID:               run.ID,
		StartedAt:        run.StartedAt.UTC().Format(timeLayout),
		FinishedAt:       run.FinishedAt.UTC().Format(timeLayout),
		SourcesTotal:     int64(run.SourcesTotal),
		SourcesFailed:    int64(run.SourcesFailed),
		RecordsExtracted: int64(run.RecordsExtracted),
		Majors:           int64(run.Majors),
	})
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// LastRun returns the most recently finished run or dataset.ErrNotFound.
func (r *SQLiteRepository) LastRun(ctx context.Context) (Run, error) {
	row, err := r.queries.GetLastScrapeRun(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, dataset.ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get last run: %w", err)
	}

	started, err := time.Parse(timeLayout, row.StartedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	finished, err := time.Parse(timeLayout, row.FinishedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return Run{
		ID:               row.ID,
		StartedAt:        started,
		FinishedAt:       finished,
		SourcesTotal:     int(row.SourcesTotal),
		SourcesFailed:    int(row.SourcesFailed),
		RecordsExtracted: int(row.RecordsExtracted),
		Majors:           int(row.Majors),
	}, nil
}

var _ dataset.Store = (*SQLiteRepository)(nil)
