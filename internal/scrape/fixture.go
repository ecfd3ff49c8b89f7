package scrape

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"calendar-cache/internal/calendar"
)

type fixtureEvent struct {
	Time     string            `yaml:"time"`
	Currency string            `yaml:"currency"`
	Impact   string            `yaml:"impact"`
	Event    string            `yaml:"event"`
	Actual   string            `yaml:"actual"`
	Forecast string            `yaml:"forecast"`
	Previous string            `yaml:"previous"`
	Details  *calendar.Details `yaml:"details"`
}

// FixtureScraper serves events from a YAML document keyed by date:
//
//	2025-08-11:
//	  - time: 8:30am
//	    currency: USD
//	    impact: High
//	    event: CPI m/m
//
// Dates absent from the document are empty days.
type FixtureScraper struct {
	days map[string][]calendar.Event
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*FixtureScraper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a fixture document.
func ParseFixture(data []byte) (*FixtureScraper, error) {
	var doc map[string][]fixtureEvent
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	days := make(map[string][]calendar.Event, len(doc))
	for date, rows := range doc {
		if _, err := calendar.ParseDate(date); err != nil {
			return nil, fmt.Errorf("fixture key: %w", err)
		}
		events := make([]calendar.Event, 0, len(rows))
		for i, row := range rows {
			impact, err := calendar.ParseImpact(row.Impact)
			if err != nil {
				return nil, fmt.Errorf("fixture %s[%d]: %w", date, i, err)
			}
			events = append(events, calendar.Event{
				Date:     date,
				Time:     row.Time,
				Currency: row.Currency,
				Impact:   impact,
				Name:     row.Event,
				Actual:   calendar.OptionalString(row.Actual),
				Forecast: calendar.OptionalString(row.Forecast),
				Previous: calendar.OptionalString(row.Previous),
				Details:  row.Details,
			})
		}
		days[date] = events
	}
	return &FixtureScraper{days: days}, nil
}

// FetchDay returns a copy of the fixture events for day.
func (f *FixtureScraper) FetchDay(ctx context.Context, day time.Time) ([]calendar.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return calendar.CloneEvents(f.days[calendar.FormatDate(day)]), nil
}

var _ Scraper = (*FixtureScraper)(nil)
