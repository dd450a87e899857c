package core

import (
	"encoding/json"
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type (
	// IncomeRecord is one parsed row from a source, before deduplication.
	IncomeRecord struct {
		Major  string
		Income int64
	}

	// AggregatedRecord is the canonical record for one major after averaging.
	AggregatedRecord struct {
		Major       string `json:"major"`
		Income      int64  `json:"income"`
		SourceCount int    `json:"count"`
	}
)

var (
	ErrEmptyMajor     = errors.New("empty major")
	ErrNegativeIncome = errors.New("negative income")
	ErrInvalidCount   = errors.New("source count must be at least 1")
	ErrNotCanonical   = errors.New("major is not canonical")
)

// CanonicalMajor returns the deduplication key for a major name: trimmed and
// upper-cased with full Unicode case mapping.
func CanonicalMajor(name string) string {
	// A Caser carries state and must not be shared between goroutines.
	return cases.Upper(language.Und).String(strings.TrimSpace(name))
}

func (r AggregatedRecord) Validate() error {
	if strings.TrimSpace(r.Major) == "" {
		return ErrEmptyMajor
	}
	if CanonicalMajor(r.Major) != r.Major {
		return ErrNotCanonical
	}
	if r.Income < 0 {
		return ErrNegativeIncome
	}
	if r.SourceCount < 1 {
		return ErrInvalidCount
	}
	return nil
}

// UnmarshalJSON accepts both "count" and "sourceCount" for the contributor count.
func (r *AggregatedRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Major       string `json:"major"`
		Income      int64  `json:"income"`
		Count       *int   `json:"count"`
		SourceCount *int   `json:"sourceCount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Major = raw.Major
	r.Income = raw.Income
	switch {
	case raw.Count != nil:
		r.SourceCount = *raw.Count
	case raw.SourceCount != nil:
		r.SourceCount = *raw.SourceCount
	default:
		r.SourceCount = 1
	}
	return nil
}
