package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"majorincome/internal/core"
	"majorincome/internal/dataset"
)

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "jobs.json")
	s := New(path)

	records := []core.AggregatedRecord{
		{Major: "ENGINEERING", Income: 85000, SourceCount: 3},
		{Major: "ART", Income: 30000, SourceCount: 1},
	}
	if err := s.Save(records); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.Contains(string(data), "\n  {\n    \"major\": \"ENGINEERING\",\n    \"income\": 85000,\n    \"count\": 3\n  }") {
		t.Errorf("unexpected layout:\n%s", data)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 2 || got[0] != records[0] || got[1] != records[1] {
		t.Errorf("Load() = %+v, want %+v", got, records)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only jobs.json in directory, found %d entries", len(entries))
	}
}

func TestLoadMissing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "jobs.json"))

	if _, err := s.Load(); !errors.Is(err, dataset.ErrNotFound) {
		t.Fatalf("Load() error = %v, want ErrNotFound", err)
	}
	_, ok, err := s.GetStatistics(context.Background())
	if err != nil || ok {
		t.Fatalf("GetStatistics() = ok %v err %v, want empty", ok, err)
	}
}

func TestLoadLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	legacy := `[{"major": "nursing", "income": 48000, "count": 2}, {"major": "Art", "income": 30000, "sourceCount": 4}]`
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := New(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []core.AggregatedRecord{
		{Major: "NURSING", Income: 48000, SourceCount: 2},
		{Major: "ART", Income: 30000, SourceCount: 4},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStoreQueries(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "jobs.json"))

	if err := s.InsertMany(ctx, []core.AggregatedRecord{
		{Major: "ART", Income: 30000, SourceCount: 1},
		{Major: "ENGINEERING", Income: 85000, SourceCount: 3},
	}); err != nil {
		t.Fatalf("InsertMany() error = %v", err)
	}
	if err := s.InsertMany(ctx, []core.AggregatedRecord{
		{Major: "ART", Income: 32000, SourceCount: 2},
		{Major: "NURSING", Income: 48000, SourceCount: 1},
	}); err != nil {
		t.Fatalf("InsertMany() error = %v", err)
	}

	stats, ok, err := s.GetStatistics(ctx)
	if err != nil || !ok {
		t.Fatalf("GetStatistics() ok=%v err=%v", ok, err)
	}
	if stats.TotalMajors != 3 || stats.MaxIncome != 85000 || stats.MinIncome != 32000 {
		t.Errorf("GetStatistics() = %+v", stats)
	}

	top, err := s.GetTopN(ctx, 2)
	if err != nil {
		t.Fatalf("GetTopN() error = %v", err)
	}
	if len(top) != 2 || top[0].Major != "ENGINEERING" || top[1].Major != "NURSING" {
		t.Errorf("GetTopN() = %+v", top)
	}

	if err := s.InsertMany(ctx, []core.AggregatedRecord{{Major: "bad", Income: 1, SourceCount: 1}}); err == nil {
		t.Error("expected validation error for non-canonical major")
	}
}

func TestInsertManyConcurrent(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "jobs.json"))

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.InsertMany(ctx, []core.AggregatedRecord{
				{Major: fmt.Sprintf("MAJOR %02d", i), Income: int64(1000 * (i + 1)), SourceCount: 1},
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("InsertMany() error = %v", err)
		}
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != writers {
		t.Fatalf("Load() returned %d records, want %d", len(got), writers)
	}
	seen := make(map[string]bool, writers)
	for _, r := range got {
		seen[r.Major] = true
	}
	for i := 0; i < writers; i++ {
		if major := fmt.Sprintf("MAJOR %02d", i); !seen[major] {
			t.Errorf("missing %s after concurrent inserts", major)
		}
	}
}
