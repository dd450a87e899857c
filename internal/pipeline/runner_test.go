package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"majorincome/internal/amqp"
	"majorincome/internal/core"
	"majorincome/internal/dataset/jsonfile"
	"majorincome/internal/scraper"
	"majorincome/internal/storage"
)

var sources = []scraper.Source{
	{Name: "a", URL: "https://example.com/a.csv", Format: scraper.FormatCSV},
	{Name: "b", URL: "https://example.com/b.csv", Format: scraper.FormatCSV},
}

type fakeAggregator struct {
	result scraper.Result
	err    error
	calls  int
}

func (f *fakeAggregator) FetchAll(ctx context.Context, _ []scraper.Source) (scraper.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeSnapshot struct {
	saved []core.AggregatedRecord
	err   error
}

func (f *fakeSnapshot) Save(records []core.AggregatedRecord) error {
	if f.err != nil {
		return f.err
	}
	f.saved = records
	return nil
}

type fakeDatabase struct {
	inserted  []core.AggregatedRecord
	runs      []storage.Run
	insertErr error
}

func (f *fakeDatabase) InsertMany(_ context.Context, records []core.AggregatedRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = records
	return nil
}

func (f *fakeDatabase) RecordRun(_ context.Context, run storage.Run) error {
	f.runs = append(f.runs, run)
	return nil
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.DatasetRefreshedMessage
	err  error
}

func (f *fakePublisher) PublishDatasetRefreshed(_ context.Context, msg *amqp.DatasetRefreshedMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.err
}

func partialResult() scraper.Result {
	failure := &scraper.SourceError{URL: sources[1].URL, Kind: scraper.FailureTimeout, Err: context.DeadlineExceeded}
	return scraper.Result{
		Records: []core.IncomeRecord{
			{Major: "Nursing", Income: 48000},
			{Major: "NURSING", Income: 48001},
			{Major: "Art", Income: 30000},
		},
		Sources: []scraper.SourceReport{
			{URL: sources[0].URL, OK: true, Records: 3, Stats: scraper.ExtractStats{Rows: 3, Emitted: 3}},
			{URL: sources[1].URL, Kind: scraper.FailureTimeout},
		},
		Failures: []*scraper.SourceError{failure},
	}
}

func newTestRunner(agg Aggregator, opts Options) *Runner {
	r := NewRunner(agg, sources, opts)
	tick := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		tick = tick.Add(250 * time.Millisecond)
		return tick
	}
	r.newID = func() string { return "run-1" }
	return r
}

func TestRunPersistsAndPublishes(t *testing.T) {
	snap, db, pub := &fakeSnapshot{}, &fakeDatabase{}, &fakePublisher{}
	r := newTestRunner(&fakeAggregator{result: partialResult()}, Options{Snapshot: snap, Database: db, Publisher: pub})

	report, err := r.Run(context.Background())
	require.NoError(t, err)

	want := []core.AggregatedRecord{
		{Major: "NURSING", Income: 48001, SourceCount: 2},
		{Major: "ART", Income: 30000, SourceCount: 1},
	}
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, want, report.Records)
	assert.Equal(t, want, snap.saved)
	assert.Equal(t, want, db.inserted)
	assert.Equal(t, 2, report.Stats.TotalMajors)
	assert.Equal(t, int64(48001), report.Stats.MaxIncome)
	assert.Len(t, report.Failures, 1)
	assert.Equal(t, 250*time.Millisecond, report.Duration)

	require.Len(t, db.runs, 1)
	run := db.runs[0]
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, 2, run.SourcesTotal)
	assert.Equal(t, 1, run.SourcesFailed)
	assert.Equal(t, 3, run.RecordsExtracted)
	assert.Equal(t, 2, run.Majors)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "run-1", pub.msgs[0].RunID)
	assert.Equal(t, 2, pub.msgs[0].Majors)
	assert.Equal(t, 1, pub.msgs[0].Failed)
}

func TestRunAllSourcesFailed(t *testing.T) {
	failures := []*scraper.SourceError{
		{URL: sources[0].URL, Kind: scraper.FailureStatus},
		{URL: sources[1].URL, Kind: scraper.FailureTransport},
	}
	snap, db, pub := &fakeSnapshot{}, &fakeDatabase{}, &fakePublisher{}
	r := newTestRunner(&fakeAggregator{err: &scraper.AllSourcesError{Failures: failures}},
		Options{Snapshot: snap, Database: db, Publisher: pub})

	report, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, scraper.ErrAllSourcesFailed)
	assert.False(t, report.HasData())
	assert.Nil(t, snap.saved, "snapshot must not be overwritten")
	assert.Nil(t, db.inserted)
	assert.Empty(t, pub.msgs)

	require.Len(t, db.runs, 1)
	assert.Equal(t, 2, db.runs[0].SourcesFailed)
	assert.Equal(t, 0, db.runs[0].Majors)
}

func TestRunDatabaseFailureKeepsSnapshot(t *testing.T) {
	snap := &fakeSnapshot{}
	db := &fakeDatabase{insertErr: errors.New("database is locked")}
	pub := &fakePublisher{}
	r := newTestRunner(&fakeAggregator{result: partialResult()}, Options{Snapshot: snap, Database: db, Publisher: pub})

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.saved, 2)
	assert.EqualError(t, report.DatabaseErr, "database is locked")
	assert.Len(t, pub.msgs, 1)
}

func TestRunNothingPersisted(t *testing.T) {
	snap := &fakeSnapshot{err: errors.New("read-only file system")}
	db := &fakeDatabase{insertErr: errors.New("database is locked")}
	pub := &fakePublisher{}
	r := newTestRunner(&fakeAggregator{result: partialResult()}, Options{Snapshot: snap, Database: db, Publisher: pub})

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotPersisted)
	assert.Contains(t, err.Error(), "read-only file system")
	assert.Contains(t, err.Error(), "database is locked")
	assert.Empty(t, pub.msgs)
}

func TestRunPublishFailureIsNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("circuit breaker is open")}
	r := newTestRunner(&fakeAggregator{result: partialResult()}, Options{Snapshot: &fakeSnapshot{}, Publisher: pub})

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Error(t, report.PublishErr)
}

func TestRunEmptySuccessWritesEmptySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	store := jsonfile.New(path)
	r := newTestRunner(&fakeAggregator{result: scraper.Result{
		Sources: []scraper.SourceReport{{URL: sources[0].URL, OK: true}},
	}}, Options{Snapshot: store})

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.HasData())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoopRunsUntilCancelled(t *testing.T) {
	agg := &fakeAggregator{result: partialResult()}
	r := NewRunner(agg, sources, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	runs := 0
	err := r.Loop(ctx, time.Millisecond, func(report RunReport, err error) {
		require.NoError(t, err)
		runs++
		if runs == 3 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, runs)
	assert.Equal(t, 3, agg.calls)
}

func TestLoopRejectsNonPositiveInterval(t *testing.T) {
	r := NewRunner(&fakeAggregator{}, sources, Options{})
	assert.Error(t, r.Loop(context.Background(), 0, nil))
}
