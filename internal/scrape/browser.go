package scrape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"calendar-cache/internal/calendar"
)

// BrowserOptions configure the headless browser scraper.
type BrowserOptions struct {
	BaseURL      string
	UserAgent    string
	ExecPath     string
	WaitSelector string
	Headless     bool
	Width        int
	Height       int
}

// BrowserScraper renders the calendar page in headless Chrome before
// parsing, for pages that need JavaScript or a browser fingerprint.
type BrowserScraper struct {
	opts   BrowserOptions
	logger zerolog.Logger
}

// NewBrowserScraper constructs a chromedp-backed scraper.
func NewBrowserScraper(opts BrowserOptions, logger zerolog.Logger) *BrowserScraper {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.forexfactory.com/calendar"
	}
	if opts.WaitSelector == "" {
		opts.WaitSelector = "body"
	}
	if opts.Width <= 0 {
		opts.Width = 1920
	}
	if opts.Height <= 0 {
		opts.Height = 1080
	}
	return &BrowserScraper{
		opts:   opts,
		logger: logger.With().Str("component", "browser_scraper").Logger(),
	}
}

// FetchDay launches a browser for the day, waits for the page and parses
// its rendered HTML. The caller's context bounds the whole session.
func (b *BrowserScraper) FetchDay(ctx context.Context, day time.Time) ([]calendar.Event, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.WindowSize(b.opts.Width, b.opts.Height),
	)
	if b.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(b.opts.UserAgent))
	}
	if b.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	endpoint := strings.TrimRight(b.opts.BaseURL, "/")
	endpoint = DayURL(endpoint, day)
	b.logger.Debug().Str("url", endpoint).Msg("rendering calendar page")

	var page string
	tasks := chromedp.Tasks{
		chromedp.Navigate(endpoint),
		chromedp.WaitReady(b.opts.WaitSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &page, chromedp.ByQuery),
	}
	if err := chromedp.Run(browserCtx, tasks); err != nil {
		if ctx.Err() != nil {
			return nil, Classify(ctx.Err())
		}
		return nil, unreachable(fmt.Errorf("chromedp run: %w", err))
	}

	if IsChallengePage(page) {
		return nil, unreachable(fmt.Errorf("anti-bot challenge served for %s", endpoint))
	}
	return ParseCalendarHTML(day, strings.NewReader(page))
}

var _ Scraper = (*BrowserScraper)(nil)
