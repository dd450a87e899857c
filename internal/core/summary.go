package core

// Statistics summarizes a set of aggregated records.
type Statistics struct {
	TotalMajors int
	AvgIncome   float64
	MaxIncome   int64
	MinIncome   int64
}

// ComputeStatistics returns false when there are no records to summarize.
func ComputeStatistics(records []AggregatedRecord) (Statistics, bool) {
	if len(records) == 0 {
		return Statistics{}, false
	}
	st := Statistics{
		TotalMajors: len(records),
		MaxIncome:   records[0].Income,
		MinIncome:   records[0].Income,
	}
	var sum wideSum
	for _, r := range records {
		sum.add(r.Income)
		if r.Income > st.MaxIncome {
			st.MaxIncome = r.Income
		}
		if r.Income < st.MinIncome {
			st.MinIncome = r.Income
		}
	}
	st.AvgIncome = sum.mean(len(records))
	return st, true
}

// TopN returns up to n records with the highest incomes.
func TopN(records []AggregatedRecord, n int) []AggregatedRecord {
	sorted := SortByIncomeDesc(records)
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// FilterByIncome keeps records whose income lies in [lower, upper].
func FilterByIncome(records []AggregatedRecord, lower, upper int64) []AggregatedRecord {
	out := make([]AggregatedRecord, 0, len(records))
	for _, r := range records {
		if r.Income >= lower && r.Income <= upper {
			out = append(out, r)
		}
	}
	return out
}
