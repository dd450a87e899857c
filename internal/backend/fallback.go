package backend

import (
	"context"
	"errors"
	"fmt"
	"os"

	"majorincome/internal/core"
	"majorincome/internal/dataset"
	"majorincome/internal/log"
)

// ReadStore is the read side of a dataset store.
type ReadStore interface {
	dataset.StatisticsReader
	dataset.TopReader
	dataset.RecordLister
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Summary is a statistics view answered by a single store.
type Summary struct {
	Stats  core.Statistics
	Top    []core.AggregatedRecord
	Origin Origin
}

// FallbackStore reads from the primary store and falls back to the
// secondary one when the primary fails or holds no data.
type FallbackStore struct {
	primary  ReadStore
	fallback ReadStore
	logger   *log.Logger
}

// NewFallbackStore wraps primary and fallback. primary may be nil.
func NewFallbackStore(primary, fallback ReadStore, logger *log.Logger) *FallbackStore {
	if logger == nil {
		logger = log.Discard()
	}
	return &FallbackStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger.WithComponent(log.ComponentFallback),
	}
}

// Summary returns statistics and the top n majors. Both come from the same
// store. dataset.ErrNoData is returned when neither store has records.
func (s *FallbackStore) Summary(ctx context.Context, n int) (Summary, error) {
	if s.primary != nil {
		sum, err := summarize(ctx, s.primary, n)
		if err == nil {
			sum.Origin = OriginDatabase
			return sum, nil
		}
		s.logPrimaryMiss(ctx, "statistics", err)
	}

	sum, err := summarize(ctx, s.fallback, n)
	if err != nil {
		return Summary{}, err
	}
	sum.Origin = OriginJSON
	return sum, nil
}

// List returns every record by income descending.
func (s *FallbackStore) List(ctx context.Context) ([]core.AggregatedRecord, Origin, error) {
	if s.primary != nil {
		records, err := s.primary.ListAll(ctx)
		if err == nil && len(records) > 0 {
			return records, OriginDatabase, nil
		}
		if err == nil {
			err = dataset.ErrNoData
		}
		s.logPrimaryMiss(ctx, "list", err)
	}

	records, err := s.fallback.ListAll(ctx)
	if errors.Is(err, dataset.ErrNotFound) {
		return nil, OriginJSON, dataset.ErrNoData
	}
	if err != nil {
		return nil, OriginJSON, err
	}
	if len(records) == 0 {
		return nil, OriginJSON, dataset.ErrNoData
	}
	return records, OriginJSON, nil
}

// Ping reports whether reads can be served: the primary answers a ping, or
// the fallback file exists.
func (s *FallbackStore) Ping(ctx context.Context) error {
	var primaryErr error
	if p, ok := s.primary.(pinger); ok {
		if primaryErr = p.Ping(ctx); primaryErr == nil {
			return nil
		}
	}
	if fp, ok := s.fallback.(interface{ Path() string }); ok {
		if _, err := os.Stat(fp.Path()); err == nil {
			return nil
		}
	}
	if primaryErr != nil {
		return fmt.Errorf("database unavailable and no fallback file: %w", primaryErr)
	}
	return dataset.ErrNotFound
}

func (s *FallbackStore) logPrimaryMiss(ctx context.Context, op string, err error) {
	if errors.Is(err, dataset.ErrNoData) {
		s.logger.DebugContext(ctx, "Database empty, using JSON fallback", log.FieldOperation, op)
		return
	}
	s.logger.WarnContext(ctx, "Database read failed, using JSON fallback",
		log.FieldOperation, op, log.FieldError, err.Error())
}

func summarize(ctx context.Context, store ReadStore, n int) (Summary, error) {
	stats, ok, err := store.GetStatistics(ctx)
	if err != nil {
		return Summary{}, err
	}
	if !ok {
		return Summary{}, dataset.ErrNoData
	}
	top, err := store.GetTopN(ctx, n)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Stats: stats, Top: top}, nil
}
