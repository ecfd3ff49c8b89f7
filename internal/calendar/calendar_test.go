package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func strPtr(v string) *string { return &v }

func TestDaysInclusive(t *testing.T) {
	start := time.Date(2025, 8, 11, 15, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 13, 1, 0, 0, 0, time.UTC)

	days := Days(start, end)
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}
	if FormatDate(days[0]) != "2025-08-11" || FormatDate(days[2]) != "2025-08-13" {
		t.Fatalf("unexpected bounds %v", days)
	}
	if got := Days(end, start); got != nil {
		t.Fatalf("reversed range should be empty, got %v", got)
	}
}

func TestRangeQueryValidate(t *testing.T) {
	now := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)
	limits := Limits{MaxSpanDays: 30, HorizonDays: 365}

	cases := []struct {
		name  string
		start string
		end   string
		ok    bool
	}{
		{"single day", "2025-08-11", "2025-08-11", true},
		{"max span", "2025-08-01", "2025-08-31", true},
		{"reversed", "2025-08-12", "2025-08-11", false},
		{"too wide", "2025-08-01", "2025-09-01", false},
		{"beyond horizon", "2026-09-01", "2026-09-02", false},
		{"too old", "2024-08-01", "2024-08-02", false},
	}

	for _, tc := range cases {
		q, err := NewRangeQuery(tc.start, tc.end, Original)
		if err != nil {
			t.Fatalf("%s: parse: %v", tc.name, err)
		}
		err = q.Validate(limits, now)
		if tc.ok && err != nil {
			t.Fatalf("%s: expected valid, got %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("%s: expected ErrInvalidRange, got %v", tc.name, err)
		}
	}
}

func TestNewRangeQueryRejectsBadDates(t *testing.T) {
	if _, err := NewRangeQuery("2025-13-01", "2025-08-01", Original); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestEventIDStable(t *testing.T) {
	a := EventID("2025-08-11", "8:30am", "USD", "CPI m/m")
	b := EventID("2025-08-11", "8:30am", "USD", "CPI m/m")
	c := EventID("2025-08-11", "8:30am", "USD", "Core CPI m/m")
	if a != b {
		t.Fatalf("ids should be deterministic: %s vs %s", a, b)
	}
	if a == c {
		t.Fatalf("different names should yield different ids")
	}
}

func TestParseFigure(t *testing.T) {
	cases := map[string]Figure{
		"215K":   {Value: decimal.NewFromInt(215_000)},
		"-0.3%":  {Value: decimal.RequireFromString("-0.3"), Unit: "%"},
		"1.25B":  {Value: decimal.NewFromInt(1_250_000_000)},
		"<0.1%":  {Value: decimal.RequireFromString("0.1"), Unit: "%"},
		"52.4":   {Value: decimal.RequireFromString("52.4")},
		"1,200K": {Value: decimal.NewFromInt(1_200_000)},
	}
	for raw, want := range cases {
		got, err := ParseFigure(raw)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", raw, err)
		}
		if !got.Value.Equal(want.Value) || got.Unit != want.Unit {
			t.Fatalf("%s: got %s%s want %s%s", raw, got.Value, got.Unit, want.Value, want.Unit)
		}
	}
	if _, err := ParseFigure("-"); err == nil {
		t.Fatal("placeholder should not parse")
	}
}

func TestSurprise(t *testing.T) {
	ev := Event{Actual: strPtr("0.4%"), Forecast: strPtr("0.2%")}
	got, ok := ev.Surprise()
	if !ok || !got.Equal(decimal.RequireFromString("0.2")) {
		t.Fatalf("expected surprise 0.2, got %s (%v)", got, ok)
	}

	mixed := Event{Actual: strPtr("215K"), Forecast: strPtr("0.2%")}
	if _, ok := mixed.Surprise(); ok {
		t.Fatal("mixed units should not produce a surprise")
	}
	if _, ok := (Event{Forecast: strPtr("1%")}).Surprise(); ok {
		t.Fatal("missing actual should not produce a surprise")
	}
}

func TestSanitize(t *testing.T) {
	ev := Event{
		Name:     "  <b>CPI</b>  m/m &amp; more ",
		Currency: "usd",
		Actual:   strPtr(" - "),
		Forecast: strPtr("<0.1%"),
		Details:  &Details{Source: "<a href=\"x\">BLS</a>"},
	}
	ev.Sanitize()

	if ev.Name != "CPI m/m & more" {
		t.Fatalf("unexpected name %q", ev.Name)
	}
	if ev.Currency != "USD" {
		t.Fatalf("unexpected currency %q", ev.Currency)
	}
	if ev.Actual != nil {
		t.Fatalf("placeholder actual should become nil, got %q", *ev.Actual)
	}
	if ev.Forecast == nil || *ev.Forecast != "<0.1%" {
		t.Fatalf("forecast should survive sanitising, got %v", ev.Forecast)
	}
	if ev.Details == nil || ev.Details.Source != "BLS" {
		t.Fatalf("unexpected details %+v", ev.Details)
	}

	empty := Event{Name: "x", Details: &Details{Source: "   "}}
	empty.Sanitize()
	if empty.Details != nil {
		t.Fatal("blank details should be dropped")
	}
}

func TestCloneIsDeep(t *testing.T) {
	ev := Event{Actual: strPtr("1"), Details: &Details{Source: "a"}}
	cp := ev.Clone()
	*cp.Actual = "2"
	cp.Details.Source = "b"
	if *ev.Actual != "1" || ev.Details.Source != "a" {
		t.Fatal("clone shares memory with the original")
	}
}

func TestNewDayBucketEmptyList(t *testing.T) {
	b := NewDayBucket(time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC), Original, nil, time.Now(), time.Second)
	if b.Events == nil || b.EventCount != 0 {
		t.Fatalf("empty day must carry a non-nil empty list: %+v", b)
	}
	if b.FetchDurationMS != 1000 {
		t.Fatalf("unexpected duration %d", b.FetchDurationMS)
	}
}
