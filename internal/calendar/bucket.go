package calendar

import (
	"time"
)

// DayBucket holds every event of one (date, representation) pair.
type DayBucket struct {
	Date            string         `json:"date"`
	Representation  Representation `json:"representation"`
	Events          []Event        `json:"events"`
	FetchedAt       time.Time      `json:"fetched_at"`
	FetchDurationMS int64          `json:"fetch_duration_ms"`
	EventCount      int            `json:"event_count"`

	// Degraded marks a derived bucket that fell back to original events.
	// It is never persisted.
	Degraded bool `json:"-"`
}

// NewDayBucket builds a bucket, normalising a nil event list to an empty one.
func NewDayBucket(day time.Time, repr Representation, events []Event, fetchedAt time.Time, took time.Duration) DayBucket {
	if events == nil {
		events = []Event{}
	}
	return DayBucket{
		Date:            FormatDate(day),
		Representation:  repr,
		Events:          events,
		FetchedAt:       fetchedAt.UTC(),
		FetchDurationMS: took.Milliseconds(),
		EventCount:      len(events),
	}
}

// Day returns the bucket date as a time.
func (b DayBucket) Day() time.Time {
	day, _ := ParseDate(b.Date)
	return day
}
