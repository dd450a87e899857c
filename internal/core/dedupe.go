package core

import (
	"sort"
)

// Reduce groups records by canonical major and replaces each group with a single
// record carrying the mean income and the number of contributing records.
//
// Groups are emitted in the order their first record appears. The mean is rounded
// half away from zero. An empty input yields an empty, non-nil slice.
func Reduce(records []IncomeRecord) []AggregatedRecord {
	type group struct {
		sum   wideSum
		count int
	}

	order := make([]string, 0, len(records))
	groups := make(map[string]*group, len(records))
	for _, r := range records {
		key := CanonicalMajor(r.Major)
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		g.sum.add(r.Income)
		g.count++
	}

	out := make([]AggregatedRecord, 0, len(order))
	for _, key := range order {
		g := groups[key]
		out = append(out, AggregatedRecord{
			Major:       key,
			Income:      g.sum.roundedMean(g.count),
			SourceCount: g.count,
		})
	}
	return out
}

// SortByIncomeDesc returns a copy of records ordered by income, highest first.
// Ties are ordered by major name.
func SortByIncomeDesc(records []AggregatedRecord) []AggregatedRecord {
	out := make([]AggregatedRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Income != out[j].Income {
			return out[i].Income > out[j].Income
		}
		return out[i].Major < out[j].Major
	})
	return out
}
