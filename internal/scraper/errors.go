package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// FailureKind tags why a source could not be fetched.
type FailureKind string

const (
	FailureTimeout   FailureKind = "timeout"
	FailureStatus    FailureKind = "status"
	FailureTransport FailureKind = "transport"
	FailureCanceled  FailureKind = "canceled"
)

// ErrAllSourcesFailed is matched by errors.Is when no configured source
// produced a body.
var ErrAllSourcesFailed = errors.New("all sources failed")

// StatusError is returned by HTTPFetcher for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// SourceError records a single failed source.
type SourceError struct {
	URL  string
	Kind FailureKind
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// AllSourcesError carries every per-source failure of a run in which
// nothing could be fetched.
type AllSourcesError struct {
	Failures []*SourceError
}

func (e *AllSourcesError) Error() string {
	if len(e.Failures) == 0 {
		return "all sources failed: no sources configured"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s (%s)", f.URL, f.Kind))
	}
	return fmt.Sprintf("all %d sources failed: %s", len(e.Failures), strings.Join(parts, ", "))
}

func (e *AllSourcesError) Is(target error) bool {
	return target == ErrAllSourcesFailed
}

// classify maps a fetch error onto a FailureKind.
func classify(url string, err error) *SourceError {
	kind := FailureTransport
	var statusErr *StatusError
	var netErr net.Error
	switch {
	case errors.As(err, &statusErr):
		kind = FailureStatus
	case errors.Is(err, context.Canceled):
		kind = FailureCanceled
	case errors.Is(err, context.DeadlineExceeded):
		kind = FailureTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = FailureTimeout
	}
	return &SourceError{URL: url, Kind: kind, Err: err}
}
