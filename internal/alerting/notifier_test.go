package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"calendar-cache/internal/calendar"
)

func sampleDigest() Digest {
	actual, forecast := "0.4%", "0.2%"
	events := []calendar.Event{
		{Date: "2025-08-12", Time: "8:30am", Currency: "USD", Impact: calendar.ImpactHigh, Name: "CPI m/m", Actual: &actual, Forecast: &forecast},
		{Date: "2025-08-12", Time: "10:00am", Currency: "USD", Impact: calendar.ImpactLow, Name: "Wholesale Inventories m/m"},
		{Date: "2025-08-13", Time: "2:00am", Currency: "GBP", Impact: calendar.ImpactMedium, Name: "Claimant Count Change"},
	}
	return BuildDigest("2025-08-12", "2025-08-13", events, calendar.ImpactMedium)
}

func TestBuildDigestFiltersByImpact(t *testing.T) {
	d := sampleDigest()
	if len(d.Events) != 2 {
		t.Fatalf("expected 2 events at or above medium, got %d", len(d.Events))
	}
	if d.Events[0].Name != "CPI m/m" || d.Events[1].Name != "Claimant Count Change" {
		t.Fatalf("unexpected order %+v", d.Events)
	}
}

func TestRenderDigest(t *testing.T) {
	d := sampleDigest()
	d.Missing = []string{"2025-08-14"}
	text := RenderDigest(d)
	for _, want := range []string{"2025-08-12 to 2025-08-13", "CPI m/m", "A 0.4% F 0.2% P -", "surprise 0.2", "Unavailable: 2025-08-14"} {
		if !strings.Contains(text, want) {
			t.Fatalf("rendered digest missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Wholesale") {
		t.Fatal("low impact event should be filtered")
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/bottoken/sendMessage") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, zerolog.Nop())
	if err := notifier.Notify(context.Background(), sampleDigest()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if received["chat_id"] != "chat" {
		t.Fatalf("wrong chat_id: %#v", received)
	}
	if !strings.Contains(received["text"], "CPI m/m") {
		t.Fatalf("text should carry the digest, got %q", received["text"])
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "chat not found"})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, zerolog.Nop())
	if err := notifier.Notify(context.Background(), sampleDigest()); err == nil {
		t.Fatal("ok=false should be an error")
	}
}

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	if err := (WriterNotifier{Out: &buf}).Notify(context.Background(), sampleDigest()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !strings.Contains(buf.String(), "Claimant Count Change") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
