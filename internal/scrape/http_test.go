package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestHTTPScraperSuccess(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("day")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(calendarPage))
	}))
	defer srv.Close()

	s := NewHTTPScraper(HTTPOptions{BaseURL: srv.URL, UserAgent: "calcache-test", Timeout: time.Second}, zerolog.Nop())
	events, err := s.FetchDay(context.Background(), testDay)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotQuery != "aug11.2025" || gotUA != "calcache-test" {
		t.Fatalf("unexpected request day=%q ua=%q", gotQuery, gotUA)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
}

func TestHTTPScraperServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewHTTPScraper(HTTPOptions{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	_, err := s.FetchDay(context.Background(), testDay)
	var se *Error
	if !errors.As(err, &se) || se.Kind != KindSiteUnreachable {
		t.Fatalf("expected site unreachable, got %v", err)
	}
}

func TestHTTPScraperChallenge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><title>Just a moment...</title></html>"))
	}))
	defer srv.Close()

	s := NewHTTPScraper(HTTPOptions{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	_, err := s.FetchDay(context.Background(), testDay)
	var se *Error
	if !errors.As(err, &se) || se.Kind != KindSiteUnreachable {
		t.Fatalf("challenge page should be site unreachable, got %v", err)
	}
}

func TestHTTPScraperClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	s := NewHTTPScraper(HTTPOptions{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, zerolog.Nop())
	_, err := s.FetchDay(context.Background(), testDay)
	var se *Error
	if !errors.As(err, &se) || se.Kind != KindTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
}
