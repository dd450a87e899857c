// Package core provides the income domain: record types, income parsing and
// the deduplication of records coming from several sources.
//
// This file contains the income normalizer, which turns the free-form text
// found in the median income column into a whole-dollar amount.
package core

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	thousandsPattern = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)[\s\p{Z}]*k$`)
	digitRunPattern  = regexp.MustCompile(`[0-9]+`)
)

// ParseIncome converts a raw income token into whole dollars.
// A nil token is unparseable.
func ParseIncome(raw *string) (int64, bool) {
	if raw == nil {
		return 0, false
	}
	return ParseIncomeString(*raw)
}

// ParseIncomeString applies the income rules in order, first match wins:
//
//	"$75,000"          -> 75000
//	"75,000 to 99,999" -> 75000 (lower bound of a range)
//	"45k", "45.5 K"    -> 45000, 45500
//	"approx 52000/yr"  -> 52000 (first run of digits)
//	"n/a", "", "k"     -> unparseable
func ParseIncomeString(raw string) (int64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")

	if i := strings.Index(s, "to"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}

	if m := thousandsPattern.FindStringSubmatch(s); m != nil {
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		v := math.Round(f * 1000)
		// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
		if v >= math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	}

	run := digitRunPattern.FindString(s)
	if run == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(run, 10, 64)
	if err != nil {
		// digit run too large for int64
		return 0, false
	}
	return v, true
}
