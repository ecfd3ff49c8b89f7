package scrape

import (
	"context"
	"testing"

	"calendar-cache/internal/calendar"
)

const fixtureDoc = `
"2025-08-11":
  - time: "8:30am"
    currency: USD
    impact: High
    event: CPI m/m
    actual: "0.3%"
    forecast: "0.2%"
    details:
      source: Bureau of Labor Statistics
  - time: "10:00am"
    currency: USD
    impact: low
    event: Wholesale Inventories m/m
"2025-08-12": []
`

func TestFixtureScraper(t *testing.T) {
	f, err := ParseFixture([]byte(fixtureDoc))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	events, err := f.FetchDay(context.Background(), testDay)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(events) != 2 || events[0].Impact != calendar.ImpactHigh || events[1].Impact != calendar.ImpactLow {
		t.Fatalf("unexpected events %+v", events)
	}
	if events[0].Details == nil || events[0].Details.Source != "Bureau of Labor Statistics" {
		t.Fatalf("details not decoded: %+v", events[0].Details)
	}
	if events[1].Actual != nil {
		t.Fatal("missing actual should be nil")
	}

	events[0].Name = "mutated"
	again, _ := f.FetchDay(context.Background(), testDay)
	if again[0].Name != "CPI m/m" {
		t.Fatal("fixture events must be copied")
	}

	empty, err := f.FetchDay(context.Background(), testDay.AddDate(0, 0, 5))
	if err != nil || len(empty) != 0 {
		t.Fatalf("unknown date should be empty, got %v %v", empty, err)
	}
}

func TestFixtureRejectsBadImpact(t *testing.T) {
	if _, err := ParseFixture([]byte(`"2025-08-11": [{event: x, impact: Extreme}]`)); err == nil {
		t.Fatal("unknown impact should fail")
	}
}
