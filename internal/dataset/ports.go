// Package dataset declares the ports the API and pipeline use to persist
// and read aggregated major income records.
package dataset

import (
	"context"
	"errors"

	"majorincome/internal/core"
)

var (
	// ErrNotFound is returned when the backing file or database does not exist yet.
	ErrNotFound = errors.New("dataset not found")
	// ErrNoData is returned when a store exists but holds no records.
	ErrNoData = errors.New("no data available")
)

// Ports for outbound adapters.
type (
	RecordWriter interface {
		// InsertMany replaces the stored value of every given major.
		InsertMany(ctx context.Context, records []core.AggregatedRecord) error
	}

	// StatisticsReader reports aggregate figures; ok is false when the store is empty.
	StatisticsReader interface {
		GetStatistics(ctx context.Context) (stats core.Statistics, ok bool, err error)
	}

	// TopReader returns the n highest earning majors, income descending.
	TopReader interface {
		GetTopN(ctx context.Context, n int) ([]core.AggregatedRecord, error)
	}

	RecordLister interface {
		ListAll(ctx context.Context) ([]core.AggregatedRecord, error)
	}

	Store interface {
		RecordWriter
		StatisticsReader
		TopReader
		RecordLister
	}
)
