package transform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"calendar-cache/internal/calendar"
)

func sampleEvents() []calendar.Event {
	actual := "0.3%"
	events := []calendar.Event{
		{Date: "2025-08-11", Time: "8:30am", Currency: "USD", Impact: calendar.ImpactHigh, Name: "CPI m/m", Actual: &actual,
			Details: &calendar.Details{Measures: "Change in the price of goods measured by the BLS"}},
		{Date: "2025-08-11", Time: "2:00pm", Currency: "GBP", Impact: calendar.ImpactMedium, Name: "BoE Gov Bailey Speaks"},
		{Date: "2025-08-11", Time: "All Day", Currency: "CNY", Impact: calendar.ImpactNone, Name: "Bank Holiday"},
	}
	for i := range events {
		events[i].AssignID()
	}
	return events
}

func TestRewriteName(t *testing.T) {
	cases := map[string]string{
		"CPI m/m":                "Consumer Price Index month over month",
		"FOMC Statement":         "Federal Open Market Committee Statement",
		"Employment Change":      "Employment Change Report - Employment Change",
		"Retail Sales":           "Retail Sales Report",
		"Consumer Credit m/m":    "Consumer Credit Change month over month",
		"Housing Starts":         "Housing Starts",
		"Inflation":              "Inflation Rate",
		"Bank Holiday":           "Bank Holiday",
		"Trade Balance Report":   "Trade Balance Report",
		"Non-CPI release":        "Non-Consumer Price Index release",
		"DEPOSIT RATE":           "DEPOSIT RATE",
		"Interest Rate Decision": "Interest Rate Decision",
	}
	for in, want := range cases {
		if got := RewriteName(in); got != want {
			t.Errorf("RewriteName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExpandAbbreviationsWholeWord(t *testing.T) {
	if got := ExpandAbbreviations("PMIs and CPIX"); got != "PMIs and CPIX" {
		t.Fatalf("partial words must not be expanded, got %q", got)
	}
	if got := ExpandAbbreviations("RBNZ and RBA"); got != "Reserve Bank of New Zealand and Reserve Bank of Australia" {
		t.Fatalf("unexpected expansion %q", got)
	}
}

func TestPipelineDictionary(t *testing.T) {
	in := sampleEvents()
	p := NewPipeline(Dictionary{}, time.Second, zerolog.Nop())

	out, err := p.Transform(context.Background(), in)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if in[0].Name != "CPI m/m" {
		t.Fatal("input was mutated")
	}
	if out[0].Name != "Consumer Price Index month over month" {
		t.Fatalf("unexpected name %q", out[0].Name)
	}
	if out[0].Details.Measures != "Change in the price of goods measured by the Bureau of Labor Statistics" {
		t.Fatalf("details not rewritten: %q", out[0].Details.Measures)
	}
	if *out[0].Actual != "0.3%" {
		t.Fatal("figures must be preserved")
	}
	for i := range in {
		if out[i].ID != in[i].ID || out[i].Time != in[i].Time || out[i].Impact != in[i].Impact {
			t.Fatalf("identity changed at %d", i)
		}
	}
}

func TestPipelineEmptyDay(t *testing.T) {
	p := NewPipeline(transformerFunc(func(context.Context, []calendar.Event) ([]calendar.Event, error) {
		t.Fatal("transformer should not run for an empty day")
		return nil, nil
	}), time.Second, zerolog.Nop())

	out, err := p.Transform(context.Background(), nil)
	if err != nil || out == nil || len(out) != 0 {
		t.Fatalf("expected empty slice, got %v %v", out, err)
	}
}

func TestPipelineRejectsBadOutput(t *testing.T) {
	cases := map[string]transformerFunc{
		"dropped": func(_ context.Context, ev []calendar.Event) ([]calendar.Event, error) {
			return ev[:1], nil
		},
		"reordered": func(_ context.Context, ev []calendar.Event) ([]calendar.Event, error) {
			ev[0], ev[1] = ev[1], ev[0]
			return ev, nil
		},
		"blank name": func(_ context.Context, ev []calendar.Event) ([]calendar.Event, error) {
			ev[2].Name = "  "
			return ev, nil
		},
		"failed": func(context.Context, []calendar.Event) ([]calendar.Event, error) {
			return nil, errors.New("model offline")
		},
	}
	for name, fn := range cases {
		p := NewPipeline(fn, time.Second, zerolog.Nop())
		if _, err := p.Transform(context.Background(), sampleEvents()); !errors.Is(err, ErrDegraded) {
			t.Errorf("%s: expected ErrDegraded, got %v", name, err)
		}
	}
}

func TestPipelineTimeout(t *testing.T) {
	slow := transformerFunc(func(ctx context.Context, ev []calendar.Event) ([]calendar.Event, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	p := NewPipeline(slow, 20*time.Millisecond, zerolog.Nop())
	_, err := p.Transform(context.Background(), sampleEvents())
	if !errors.Is(err, ErrDegraded) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected degraded deadline error, got %v", err)
	}
}

func TestRemoteTransformer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req remoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for i := range req.Events {
			req.Events[i].Name = "Rewritten " + req.Events[i].Name
		}
		_ = json.NewEncoder(w).Encode(remoteResponse{Success: true, Events: req.Events})
	}))
	defer srv.Close()

	remote, err := NewRemote(srv.URL, time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("new remote: %v", err)
	}
	out, err := NewPipeline(remote, time.Second, zerolog.Nop()).Transform(context.Background(), sampleEvents())
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if out[1].Name != "Rewritten BoE Gov Bailey Speaks" {
		t.Fatalf("unexpected name %q", out[1].Name)
	}
}

func TestRemoteTransformerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(remoteResponse{Success: false, ErrorMessage: "quota exceeded"})
	}))
	defer srv.Close()

	remote, _ := NewRemote(srv.URL, time.Second, zerolog.Nop())
	_, err := NewPipeline(remote, time.Second, zerolog.Nop()).Transform(context.Background(), sampleEvents())
	if !errors.Is(err, ErrDegraded) {
		t.Fatalf("expected ErrDegraded, got %v", err)
	}
}

type transformerFunc func(ctx context.Context, events []calendar.Event) ([]calendar.Event, error)

func (f transformerFunc) Transform(ctx context.Context, events []calendar.Event) ([]calendar.Event, error) {
	return f(ctx, events)
}
