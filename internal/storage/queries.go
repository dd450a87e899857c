package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Major struct {
	Major       string
	Income      int64
	SourceCount int64
}

const upsertMajor = `
INSERT INTO majors (major, income, source_count, updated_at)
VALUES (?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
ON CONFLICT (major) DO UPDATE SET
    income = excluded.income,
    source_count = excluded.source_count,
    updated_at = excluded.updated_at`

type UpsertMajorParams struct {
	Major       string
	Income      int64
	SourceCount int64
}

func (q *Queries) UpsertMajor(ctx context.Context, arg UpsertMajorParams) error {
	_, err := q.db.ExecContext(ctx, upsertMajor, arg.Major, arg.Income, arg.SourceCount)
	return err
}

const getStatistics = `
SELECT COUNT(*), COALESCE(AVG(income), 0), COALESCE(MAX(income), 0), COALESCE(MIN(income), 0)
FROM majors`

type GetStatisticsRow struct {
	Total     int64
	AvgIncome float64
	MaxIncome int64
	MinIncome int64
}

func (q *Queries) GetStatistics(ctx context.Context) (GetStatisticsRow, error) {
	row := q.db.QueryRowContext(ctx, getStatistics)
	var i GetStatisticsRow
	err := row.Scan(&i.Total, &i.AvgIncome, &i.MaxIncome, &i.MinIncome)
	return i, err
}

const listMajorsByIncome = `
SELECT major, income, source_count
FROM majors
ORDER BY income DESC, major ASC
LIMIT ?`

// ListMajorsByIncome returns up to limit rows; a negative limit returns all.
func (q *Queries) ListMajorsByIncome(ctx context.Context, limit int64) ([]Major, error) {
	rows, err := q.db.QueryContext(ctx, listMajorsByIncome, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Major
	for rows.Next() {
		var i Major
		if err := rows.Scan(&i.Major, &i.Income, &i.SourceCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countMajors = `SELECT COUNT(*) FROM majors`

func (q *Queries) CountMajors(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countMajors)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const insertScrapeRun = `
INSERT INTO scrape_runs (id, started_at, finished_at, sources_total, sources_failed, records_extracted, majors)
VALUES (?, ?, ?, ?, ?, ?, ?)`

type ScrapeRun struct {
	ID               string
	StartedAt        string
	FinishedAt       string
	SourcesTotal     int64
	SourcesFailed    int64
	RecordsExtracted int64
	Majors           int64
}

func (q *Queries) InsertScrapeRun(ctx context.Context, arg ScrapeRun) error {
	_, err := q.db.ExecContext(ctx, insertScrapeRun,
		arg.ID,
		arg.StartedAt,
		arg.FinishedAt,
		arg.SourcesTotal,
		arg.SourcesFailed,
		arg.RecordsExtracted,
		arg.Majors,
	)
	return err
}

const getLastScrapeRun = `
SELECT id, started_at, finished_at, sources_total, sources_failed, records_extracted, majors
FROM scrape_runs
ORDER BY finished_at DESC
LIMIT 1`

func (q *Queries) GetLastScrapeRun(ctx context.Context) (ScrapeRun, error) {
	row := q.db.QueryRowContext(ctx, getLastScrapeRun)
	var i ScrapeRun
	err := row.Scan(
		&i.ID,
		&i.StartedAt,
		&i.FinishedAt,
		&i.SourcesTotal,
		&i.SourcesFailed,
		&i.RecordsExtracted,
		&i.Majors,
	)
	return i, err
}
