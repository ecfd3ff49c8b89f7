package scrape

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"calendar-cache/internal/calendar"
)

// Scraper fetches the raw events of a single day from an upstream source.
type Scraper interface {
	FetchDay(ctx context.Context, day time.Time) ([]calendar.Event, error)
}

// Kind classifies scrape failures.
type Kind string

const (
	KindTimeout         Kind = "timeout"
	KindSiteUnreachable Kind = "site_unreachable"
	KindParseFailure    Kind = "parse_failure"
)

// Error is the typed failure returned by the gateway and the scrapers.
type Error struct {
	Kind     Kind
	Date     string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("scrape")
	if e.Date != "" {
		b.WriteString(" " + e.Date)
	}
	fmt.Fprintf(&b, ": %s", e.Kind)
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindSiteUnreachable
}

func parseFailure(format string, args ...any) *Error {
	return &Error{Kind: KindParseFailure, Err: fmt.Errorf(format, args...)}
}

func unreachable(err error) *Error {
	return &Error{Kind: KindSiteUnreachable, Err: err}
}

// Classify maps any error onto a typed scrape error.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		cp := *se
		return &cp
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return unreachable(err)
}

// IsChallengePage detects anti-bot interstitials served instead of the calendar.
func IsChallengePage(body string) bool {
	if strings.Contains(body, "calendar__table") {
		return false
	}
	return strings.Contains(body, "Just a moment") || strings.Contains(body, "Checking your browser")
}

// DayURL renders the calendar URL of a day, e.g. ?day=aug11.2025.
func DayURL(baseURL string, day time.Time) string {
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return baseURL + sep + "day=" + strings.ToLower(day.Format("Jan2.2006"))
}
