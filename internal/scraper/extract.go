package scraper

import (
	"strings"

	"majorincome/internal/core"
)

// Column positions of the recent-grads layout.
const (
	DefaultMajorColumn  = 2
	DefaultIncomeColumn = 15
)

// ExtractStats counts what happened to each data line.
type ExtractStats struct {
	Rows        int `json:"rows"`
	Emitted     int `json:"emitted"`
	Malformed   int `json:"malformed"`
	Unparseable int `json:"unparseable"`
	Blank       int `json:"blank"`
}

// Add accumulates other into s.
func (s *ExtractStats) Add(other ExtractStats) {
	s.Rows += other.Rows
	s.Emitted += other.Emitted
	s.Malformed += other.Malformed
	s.Unparseable += other.Unparseable
	s.Blank += other.Blank
}

// Extractor turns comma separated text into income records. Fields are split
// on bare commas; quoting is not supported.
type Extractor struct {
	MajorColumn  int
	IncomeColumn int
}

// DefaultExtractor reads majors from column 2 and median income from column 15.
var DefaultExtractor = Extractor{MajorColumn: DefaultMajorColumn, IncomeColumn: DefaultIncomeColumn}

// Extract runs DefaultExtractor over text.
func Extract(text string) ([]core.IncomeRecord, ExtractStats) {
	return DefaultExtractor.Extract(text)
}

// Extract skips the header line and emits one record per row that has a
// non-empty major and a parseable income. Rejected rows are counted in the
// returned stats, never reported as errors.
func (x Extractor) Extract(text string) ([]core.IncomeRecord, ExtractStats) {
	var stats ExtractStats
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, stats
	}

	need := max(x.MajorColumn, x.IncomeColumn)
	lines := strings.Split(text, "\n")

	var records []core.IncomeRecord
	for _, line := range lines[1:] {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			stats.Blank++
			continue
		}
		stats.Rows++

		fields := strings.Split(line, ",")
		if len(fields) <= need {
			stats.Malformed++
			continue
		}

		major := strings.TrimSpace(fields[x.MajorColumn])
		income, ok := core.ParseIncomeString(strings.TrimSpace(fields[x.IncomeColumn]))
		if major == "" || !ok {
			stats.Unparseable++
			continue
		}

		records = append(records, core.IncomeRecord{Major: major, Income: income})
		stats.Emitted++
	}
	return records, stats
}
