package scrape

import (
	"errors"
	"strings"
	"testing"
	"time"

	"calendar-cache/internal/calendar"
)

const calendarPage = `<!doctype html>
<html><body>
<table class="calendar__table">
  <tr class="calendar__row" data-event-id="1">
    <td class="calendar__cell calendar__time"><span>8:30am</span></td>
    <td class="calendar__cell calendar__currency">USD</td>
    <td class="calendar__cell calendar__impact"><span class="icon icon--ff-impact-red"></span></td>
    <td class="calendar__cell calendar__event"><span class="calendar__event-title">CPI m/m</span></td>
    <td class="calendar__cell calendar__actual">0.3%</td>
    <td class="calendar__cell calendar__forecast">0.2%</td>
    <td class="calendar__cell calendar__previous">0.1%</td>
  </tr>
  <tr class="calendar__details">
    <td colspan="7">
      <table class="calendarspecs">
        <tr><td>Source</td><td>Bureau of Labor Statistics</td></tr>
        <tr><td>Measures</td><td>Change in the price of goods</td></tr>
        <tr><td>FF Notes</td><td>Key inflation gauge</td></tr>
        <tr><td>Why Traders Care</td><td>Drives rate expectations</td></tr>
        <tr><td>Acro Expand</td><td>Consumer Price Index</td></tr>
      </table>
    </td>
  </tr>
  <tr class="calendar__row" data-event-id="2">
    <td class="calendar__cell calendar__time"></td>
    <td class="calendar__cell calendar__currency">USD</td>
    <td class="calendar__cell calendar__impact"><span class="icon icon--ff-impact-ora"></span></td>
    <td class="calendar__cell calendar__event"><span class="calendar__event-title">Core CPI m/m</span></td>
    <td class="calendar__cell calendar__actual"></td>
    <td class="calendar__cell calendar__forecast">0.3%</td>
    <td class="calendar__cell calendar__previous">0.2%</td>
  </tr>
  <tr class="calendar__row" data-event-id="3">
    <td class="calendar__cell calendar__time">All Day</td>
    <td class="calendar__cell calendar__currency">EUR</td>
    <td class="calendar__cell calendar__impact"><span class="icon icon--ff-impact-gra"></span></td>
    <td class="calendar__cell calendar__event"><span class="calendar__event-title">Bank Holiday</span></td>
  </tr>
  <tr class="calendar__row" data-event-id="4">
    <td class="calendar__cell calendar__time"></td>
    <td class="calendar__cell calendar__currency"></td>
    <td class="calendar__cell calendar__event"></td>
  </tr>
</table>
</body></html>`

func TestParseCalendarHTML(t *testing.T) {
	day := time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC)
	events, err := ParseCalendarHTML(day, strings.NewReader(calendarPage))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}

	cpi := events[0]
	if cpi.Date != "2025-08-12" || cpi.Time != "8:30am" || cpi.Currency != "USD" || cpi.Impact != calendar.ImpactHigh {
		t.Fatalf("unexpected first event %+v", cpi)
	}
	if cpi.Name != "CPI m/m" || calendar.Display(cpi.Actual) != "0.3%" || calendar.Display(cpi.Previous) != "0.1%" {
		t.Fatalf("unexpected figures %+v", cpi)
	}
	if cpi.Details == nil || cpi.Details.Source != "Bureau of Labor Statistics" || cpi.Details.AcroExpand != "Consumer Price Index" {
		t.Fatalf("details not attached: %+v", cpi.Details)
	}
	if cpi.Details.FFNotes != "Key inflation gauge | Drives rate expectations" {
		t.Fatalf("unexpected notes %q", cpi.Details.FFNotes)
	}

	core := events[1]
	if core.Time != "8:30am" {
		t.Fatalf("blank time should inherit the previous row, got %q", core.Time)
	}
	if core.Impact != calendar.ImpactMedium || core.Actual != nil || core.Details != nil {
		t.Fatalf("unexpected second event %+v", core)
	}

	holiday := events[2]
	if holiday.Time != calendar.AllDay || holiday.Impact != calendar.ImpactNone {
		t.Fatalf("unexpected holiday %+v", holiday)
	}
}

func TestParseCalendarHTMLEmptyDay(t *testing.T) {
	page := `<html><body><table class="calendar__table"><tr><td>No events</td></tr></table></body></html>`
	events, err := ParseCalendarHTML(time.Now(), strings.NewReader(page))
	if err != nil {
		t.Fatalf("empty calendar should not fail: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", events)
	}
}

func TestParseCalendarHTMLMissingTable(t *testing.T) {
	_, err := ParseCalendarHTML(time.Now(), strings.NewReader(`<html><body><h1>Maintenance</h1></body></html>`))
	var se *Error
	if !errors.As(err, &se) || se.Kind != KindParseFailure {
		t.Fatalf("expected parse failure, got %v", err)
	}
	if se.Retryable() {
		t.Fatal("parse failures must not be retryable")
	}
}

func TestDayURL(t *testing.T) {
	got := DayURL("https://www.forexfactory.com/calendar", time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC))
	if got != "https://www.forexfactory.com/calendar?day=aug11.2025" {
		t.Fatalf("unexpected url %s", got)
	}
}

func TestIsChallengePage(t *testing.T) {
	if !IsChallengePage("<title>Just a moment...</title>") {
		t.Fatal("challenge page not detected")
	}
	if IsChallengePage(calendarPage) {
		t.Fatal("calendar page flagged as challenge")
	}
}
