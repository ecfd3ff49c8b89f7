package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical day format used in keys and payloads.
const DateLayout = "2006-01-02"

// ErrInvalidRange reports a query whose bounds are malformed or out of limits.
var ErrInvalidRange = errors.New("invalid range")

// ParseDate parses a YYYY-MM-DD day in UTC.
func ParseDate(v string) (time.Time, error) {
	day, err := time.Parse(DateLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", v, err)
	}
	return day, nil
}

// FormatDate renders a day as YYYY-MM-DD.
func FormatDate(day time.Time) string {
	return day.Format(DateLayout)
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Days lists every day from start to end inclusive in ascending order.
func Days(start, end time.Time) []time.Time {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return nil
	}
	days := make([]time.Time, 0, SpanDays(start, end)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// SpanDays returns the number of whole days between start and end.
func SpanDays(start, end time.Time) int {
	return int(DateOnly(end).Sub(DateOnly(start)).Hours() / 24)
}

// Limits bound how wide and how far from today a query may reach.
// Zero values disable the corresponding check.
type Limits struct {
	MaxSpanDays int
	HorizonDays int
}

// RangeQuery asks for every event from Start to End inclusive.
type RangeQuery struct {
	Start          time.Time
	End            time.Time
	Representation Representation
}

// NewRangeQuery parses the textual bounds of a query.
func NewRangeQuery(start, end string, repr Representation) (RangeQuery, error) {
	s, err := ParseDate(start)
	if err != nil {
		return RangeQuery{}, fmt.Errorf("%w: start: %w", ErrInvalidRange, err)
	}
	e, err := ParseDate(end)
	if err != nil {
		return RangeQuery{}, fmt.Errorf("%w: end: %w", ErrInvalidRange, err)
	}
	return RangeQuery{Start: s, End: e, Representation: repr}, nil
}

// Days lists the days covered by the query.
func (q RangeQuery) Days() []time.Time {
	return Days(q.Start, q.End)
}

// Validate checks ordering, span and horizon against now.
func (q RangeQuery) Validate(limits Limits, now time.Time) error {
	if q.Representation != Original && q.Representation != Derived {
		return fmt.Errorf("%w: representation %q", ErrInvalidRange, q.Representation)
	}
	start, end := DateOnly(q.Start), DateOnly(q.End)
	if end.Before(start) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, FormatDate(start), FormatDate(end))
	}
	if limits.MaxSpanDays > 0 && SpanDays(start, end) > limits.MaxSpanDays {
		return fmt.Errorf("%w: range cannot exceed %d days", ErrInvalidRange, limits.MaxSpanDays)
	}
	if limits.HorizonDays > 0 {
		today := DateOnly(now)
		earliest := today.AddDate(0, 0, -limits.HorizonDays)
		latest := today.AddDate(0, 0, limits.HorizonDays)
		if start.Before(earliest) || end.After(latest) {
			return fmt.Errorf("%w: dates must be within %d days of %s", ErrInvalidRange, limits.HorizonDays, FormatDate(today))
		}
	}
	return nil
}
