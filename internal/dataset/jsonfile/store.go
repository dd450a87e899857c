// Package jsonfile keeps the aggregated dataset in a JSON file that serves
// as the fallback when the database is unavailable.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"majorincome/internal/core"
	"majorincome/internal/dataset"
)

// Store reads and writes jobs.json style files.
type Store struct {
	path string
	mu   sync.RWMutex
}

// New returns a store backed by path. The file is created on first Save.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Save writes records with two-space indentation. The file is replaced
// atomically so readers never observe a partial document.
func (s *Store) Save(records []core.AggregatedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(records)
}

// save writes records; the caller holds s.mu for writing.
func (s *Store) save(records []core.AggregatedRecord) error {
	if records == nil {
		records = []core.AggregatedRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".jobs-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Load reads every record. A missing file yields dataset.ErrNotFound.
func (s *Store) Load() ([]core.AggregatedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// load reads records; the caller holds s.mu.
func (s *Store) load() ([]core.AggregatedRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, dataset.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var records []core.AggregatedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	for i := range records {
		records[i].Major = core.CanonicalMajor(records[i].Major)
	}
	return records, nil
}

// InsertMany merges records into the file, replacing existing majors. The
// whole read-merge-write holds the lock so concurrent calls do not drop
// each other's records.
func (s *Store) InsertMany(_ context.Context, records []core.AggregatedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil && !errors.Is(err, dataset.ErrNotFound) {
		return err
	}

	index := make(map[string]int, len(existing))
	for i, r := range existing {
		index[r.Major] = i
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("invalid record %q: %w", r.Major, err)
		}
		if i, ok := index[r.Major]; ok {
			existing[i] = r
			continue
		}
		index[r.Major] = len(existing)
		existing = append(existing, r)
	}
	return s.save(existing)
}

func (s *Store) GetStatistics(_ context.Context) (core.Statistics, bool, error) {
	records, err := s.Load()
	if errors.Is(err, dataset.ErrNotFound) {
		return core.Statistics{}, false, nil
	}
	if err != nil {
		return core.Statistics{}, false, err
	}
	stats, ok := core.ComputeStatistics(records)
	return stats, ok, nil
}

func (s *Store) GetTopN(_ context.Context, n int) ([]core.AggregatedRecord, error) {
	records, err := s.Load()
	if err != nil {
		return nil, err
	}
	return core.TopN(records, n), nil
}

func (s *Store) ListAll(_ context.Context) ([]core.AggregatedRecord, error) {
	records, err := s.Load()
	if err != nil {
		return nil, err
	}
	return core.SortByIncomeDesc(records), nil
}

var _ dataset.Store = (*Store)(nil)
