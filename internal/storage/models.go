package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"calendar-cache/internal/calendar"
)

// KeyStats summarises what the store currently holds.
type KeyStats struct {
	Total    int    `json:"total_keys"`
	Original int    `json:"original_keys"`
	Derived  int    `json:"derived_keys"`
	First    string `json:"first_date,omitempty"`
	Last     string `json:"last_date,omitempty"`
}

// legacyEvent is the per-day payload written before buckets carried
// metadata: a bare JSON array with "" for missing figures.
type legacyEvent struct {
	Date     string            `json:"date"`
	Time     string            `json:"time"`
	Currency string            `json:"currency"`
	Impact   string            `json:"impact"`
	Event    string            `json:"event"`
	Actual   string            `json:"actual"`
	Forecast string            `json:"forecast"`
	Previous string            `json:"previous"`
	Details  *calendar.Details `json:"details"`
}

func decodeBucket(raw []byte, date string, repr calendar.Representation) (calendar.DayBucket, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		return decodeLegacy(raw, date, repr)
	}

	var bucket calendar.DayBucket
	if err := json.Unmarshal(raw, &bucket); err != nil {
		return calendar.DayBucket{}, fmt.Errorf("decode bucket: %w", err)
	}
	if bucket.Date != date || bucket.Representation != repr {
		return calendar.DayBucket{}, fmt.Errorf("bucket %s:%s stored under %s:%s", bucket.Date, bucket.Representation, date, repr)
	}
	if bucket.Events == nil {
		bucket.Events = []calendar.Event{}
	}
	bucket.EventCount = len(bucket.Events)
	return bucket, nil
}

func decodeLegacy(raw []byte, date string, repr calendar.Representation) (calendar.DayBucket, error) {
	var rows []legacyEvent
	if err := json.Unmarshal(raw, &rows); err != nil {
		return calendar.DayBucket{}, fmt.Errorf("decode legacy bucket: %w", err)
	}

	events := make([]calendar.Event, 0, len(rows))
	for _, row := range rows {
		impact, err := calendar.ParseImpact(row.Impact)
		if err != nil {
			impact = calendar.ImpactLow
		}
		ev := calendar.Event{
			Date:     date,
			Time:     row.Time,
			Currency: row.Currency,
			Impact:   impact,
			Name:     row.Event,
			Actual:   calendar.OptionalString(row.Actual),
			Forecast: calendar.OptionalString(row.Forecast),
			Previous: calendar.OptionalString(row.Previous),
			Details:  row.Details,
		}
		if ev.Details.IsEmpty() {
			ev.Details = nil
		}
		ev.AssignID()
		events = append(events, ev)
	}

	return calendar.DayBucket{
		Date:           date,
		Representation: repr,
		Events:         events,
		EventCount:     len(events),
	}, nil
}
