package service

import (
	"context"
	"errors"
	"fmt"

	"calendar-cache/internal/calendar"
	"calendar-cache/internal/scrape"
)

// ErrRangeUnavailable matches a *RangeUnavailableError.
var ErrRangeUnavailable = errors.New("range unavailable")

// Source tells where the days of a result came from.
type Source string

const (
	SourceCache Source = "cache"
	SourceLive  Source = "live"
	SourceMixed Source = "mixed"
)

// DayState is the per-day outcome of a query.
type DayState string

const (
	DayHit     DayState = "hit"
	DayFetched DayState = "fetched"
	DayFailed  DayState = "failed"
)

// Failure reasons.
const (
	ReasonTimeout         = "timeout"
	ReasonSiteUnreachable = "site_unreachable"
	ReasonParseFailure    = "parse_failure"
	ReasonCanceled        = "canceled"
	ReasonError           = "error"
)

// PartialFailure records a day that could not be produced.
type PartialFailure struct {
	Date    string `json:"date"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func newPartialFailure(date string, err error) PartialFailure {
	return PartialFailure{Date: date, Reason: reasonOf(err), Message: err.Error(), Err: err}
}

func reasonOf(err error) string {
	if errors.Is(err, context.Canceled) {
		return ReasonCanceled
	}
	var se *scrape.Error
	if errors.As(err, &se) {
		return string(se.Kind)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonError
}

// DayStatus describes how one day of the range was served.
type DayStatus struct {
	Date       string   `json:"date"`
	State      DayState `json:"state"`
	EventCount int      `json:"event_count"`
	Shared     bool     `json:"shared,omitempty"`
	Degraded   bool     `json:"degraded,omitempty"`
}

// RangeResult is the answer to a range query.
type RangeResult struct {
	QueryID           string                  `json:"query_id"`
	Start             string                  `json:"start"`
	End               string                  `json:"end"`
	Representation    calendar.Representation `json:"representation"`
	Events            []calendar.Event        `json:"events"`
	Source            Source                  `json:"source"`
	ProcessingTimeMS  int64                   `json:"processing_time_ms"`
	PartialFailures   []PartialFailure        `json:"partial_failures"`
	TransformDegraded []string                `json:"transform_degraded"`
	Days              []DayStatus             `json:"days"`
}

// RangeUnavailableError is returned when every day of a range failed.
type RangeUnavailableError struct {
	Start    string
	End      string
	Failures []PartialFailure
}

func (e *RangeUnavailableError) Error() string {
	msg := fmt.Sprintf("range %s..%s unavailable: %d day(s) failed", e.Start, e.End, len(e.Failures))
	if len(e.Failures) > 0 {
		msg += ": " + e.Failures[0].Message
	}
	return msg
}

func (e *RangeUnavailableError) Is(target error) bool {
	return target == ErrRangeUnavailable
}

// Unwrap exposes the per-day errors.
func (e *RangeUnavailableError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// Stats summarises cache contents.
type Stats struct {
	TotalKeys    int    `json:"total_keys"`
	OriginalKeys int    `json:"original_keys"`
	DerivedKeys  int    `json:"derived_keys"`
	FirstDate    string `json:"first_date,omitempty"`
	LastDate     string `json:"last_date,omitempty"`
	InFlight     int    `json:"in_flight"`
}

// Health reports store reachability.
type Health struct {
	StoreReachable bool   `json:"store_reachable"`
	Error          string `json:"error,omitempty"`
	InFlight       int    `json:"in_flight"`
}
