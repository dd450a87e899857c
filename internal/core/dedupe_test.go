package core

import (
	"math"
	"testing"
)

func TestReduceMergesCanonicalNames(t *testing.T) {
	in := []IncomeRecord{
		{Major: "Engineering", Income: 80000},
		{Major: "ENGINEERING ", Income: 90000},
		{Major: "engineering", Income: 85000},
	}
	got := Reduce(in)
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d: %+v", len(got), got)
	}
	want := AggregatedRecord{Major: "ENGINEERING", Income: 85000, SourceCount: 3}
	if got[0] != want {
		t.Fatalf("got %+v, want %+v", got[0], want)
	}
}

func TestReduceKeepsFirstSeenOrder(t *testing.T) {
	in := []IncomeRecord{
		{Major: "Nursing", Income: 48000},
		{Major: "Art", Income: 30000},
		{Major: " nursing", Income: 50000},
		{Major: "Physics", Income: 45000},
	}
	got := Reduce(in)
	names := []string{"NURSING", "ART", "PHYSICS"}
	if len(got) != len(names) {
		t.Fatalf("len=%d", len(got))
	}
	for i, n := range names {
		if got[i].Major != n {
			t.Errorf("position %d: got %q want %q", i, got[i].Major, n)
		}
	}
	if got[0].Income != 49000 || got[0].SourceCount != 2 {
		t.Errorf("nursing: %+v", got[0])
	}
}

func TestReduceRoundsHalfAwayFromZero(t *testing.T) {
	got := Reduce([]IncomeRecord{{Major: "a", Income: 1}, {Major: "A", Income: 2}})
	if got[0].Income != 2 {
		t.Fatalf("mean 1.5 should round to 2, got %d", got[0].Income)
	}
	got = Reduce([]IncomeRecord{{Major: "b", Income: 1}, {Major: "b", Income: 1}, {Major: "b", Income: 2}})
	if got[0].Income != 1 {
		t.Fatalf("mean 1.33 should round to 1, got %d", got[0].Income)
	}
}

func TestReduceEmpty(t *testing.T) {
	got := Reduce(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestReduceCountsSumToInputLength(t *testing.T) {
	in := []IncomeRecord{
		{Major: "x", Income: 1}, {Major: "y", Income: 2}, {Major: "X", Income: 3},
		{Major: "z", Income: 4}, {Major: " y ", Income: 5}, {Major: "w", Income: 6},
	}
	total := 0
	for _, r := range Reduce(in) {
		total += r.SourceCount
	}
	if total != len(in) {
		t.Fatalf("sum of counts = %d, want %d", total, len(in))
	}
}

func TestReduceIsPermutationInvariant(t *testing.T) {
	in := []IncomeRecord{
		{Major: "Biology", Income: 40000}, {Major: "Chemistry", Income: 45000},
		{Major: "biology", Income: 43000}, {Major: "Economics", Income: 50000},
		{Major: "CHEMISTRY", Income: 47000}, {Major: "Biology ", Income: 41000},
	}
	reversed := make([]IncomeRecord, len(in))
	for i, r := range in {
		reversed[len(in)-1-i] = r
	}

	asMap := func(rs []AggregatedRecord) map[string]AggregatedRecord {
		m := make(map[string]AggregatedRecord, len(rs))
		for _, r := range rs {
			m[r.Major] = r
		}
		return m
	}
	a, b := asMap(Reduce(in)), asMap(Reduce(reversed))
	if len(a) != len(b) {
		t.Fatalf("group counts differ: %d vs %d", len(a), len(b))
	}
	for k, v := range a {
		if b[k] != v {
			t.Errorf("%s: %+v vs %+v", k, v, b[k])
		}
	}
}

func TestReduceIsIdempotentOnUniqueInput(t *testing.T) {
	in := []IncomeRecord{{Major: "ART", Income: 30000}, {Major: "MATH", Income: 52000}}
	got := Reduce(in)
	for i, r := range got {
		if r.Income != in[i].Income || r.SourceCount != 1 || r.Major != in[i].Major {
			t.Errorf("record %d changed: %+v", i, r)
		}
	}
}

func TestCanonicalMajorUsesFullCaseMapping(t *testing.T) {
	if got := CanonicalMajor("  straße "); got != "STRASSE" {
		t.Fatalf("got %q", got)
	}
}

func TestSortByIncomeDesc(t *testing.T) {
	in := []AggregatedRecord{
		{Major: "B", Income: 10, SourceCount: 1},
		{Major: "A", Income: 10, SourceCount: 1},
		{Major: "C", Income: 20, SourceCount: 1},
	}
	got := SortByIncomeDesc(in)
	if got[0].Major != "C" || got[1].Major != "A" || got[2].Major != "B" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if in[0].Major != "B" {
		t.Fatal("input must not be reordered")
	}
}

func TestReduceLargeIncomesDoNotOverflow(t *testing.T) {
	const big = 9000000000000000000
	got := Reduce([]IncomeRecord{{Major: "x", Income: big}, {Major: "X", Income: big}})
	if len(got) != 1 || got[0].Income != big || got[0].SourceCount != 2 {
		t.Fatalf("got %+v, want income %d from 2 sources", got, int64(big))
	}

	got = Reduce([]IncomeRecord{
		{Major: "y", Income: math.MaxInt64},
		{Major: "y", Income: math.MaxInt64 - 1},
		{Major: "y", Income: math.MaxInt64},
	})
	if got[0].Income != math.MaxInt64 {
		t.Fatalf("mean near the int64 limit = %d, want %d", got[0].Income, int64(math.MaxInt64))
	}
	if err := got[0].Validate(); err != nil {
		t.Fatalf("reduced record invalid: %v", err)
	}
}

func TestWideSumNegativeRoundsAwayFromZero(t *testing.T) {
	var s wideSum
	s.add(-1)
	s.add(-2)
	if got := s.roundedMean(2); got != -2 {
		t.Fatalf("mean -1.5 should round to -2, got %d", got)
	}
	if got := s.mean(2); got != -1.5 {
		t.Fatalf("mean = %v, want -1.5", got)
	}
}
