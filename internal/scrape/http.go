package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"calendar-cache/internal/calendar"
)

const maxPageBytes = 8 << 20

// HTTPOptions parameterise the plain HTTP scraper.
type HTTPOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// HTTPScraper downloads the calendar page of a day and parses it.
type HTTPScraper struct {
	opts    HTTPOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewHTTPScraper constructs an HTTP scraper.
func NewHTTPScraper(opts HTTPOptions, logger zerolog.Logger) *HTTPScraper {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.forexfactory.com/calendar"
	}

	return &HTTPScraper{
		opts:    opts,
		logger:  logger.With().Str("component", "http_scraper").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchDay retrieves and parses the calendar page of day.
func (h *HTTPScraper) FetchDay(ctx context.Context, day time.Time) ([]calendar.Event, error) {
	endpoint := DayURL(h.baseURL, day)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if ua := strings.TrimSpace(h.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	h.logger.Debug().Str("url", endpoint).Msg("fetching calendar page")
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, Classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, Classify(fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, unreachable(parseHTTPError(resp.StatusCode, body))
	}
	if IsChallengePage(string(body)) {
		return nil, unreachable(fmt.Errorf("anti-bot challenge served for %s", endpoint))
	}

	return ParseCalendarHTML(day, bytes.NewReader(body))
}

func parseHTTPError(status int, payload []byte) error {
	snippet := strings.TrimSpace(string(payload))
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	if snippet != "" {
		return fmt.Errorf("calendar site error (%d): %s", status, snippet)
	}
	return fmt.Errorf("calendar site error (%d)", status)
}

var _ Scraper = (*HTTPScraper)(nil)
