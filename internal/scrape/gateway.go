package scrape

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"calendar-cache/internal/calendar"
)

// GatewayOptions parameterise the retry policy.
type GatewayOptions struct {
	AttemptTimeout time.Duration
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	Clock          clockwork.Clock
}

// Gateway wraps a Scraper with per-attempt timeouts, bounded retries and
// output normalisation.
type Gateway struct {
	scraper Scraper
	opts    GatewayOptions
	clock   clockwork.Clock
	logger  zerolog.Logger
}

// NewGateway constructs a gateway around scraper.
func NewGateway(scraper Scraper, opts GatewayOptions, logger zerolog.Logger) *Gateway {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 30 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.BackoffMax < opts.BackoffBase {
		opts.BackoffMax = opts.BackoffBase
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Gateway{
		scraper: scraper,
		opts:    opts,
		clock:   clock,
		logger:  logger.With().Str("component", "scrape_gateway").Logger(),
	}
}

// Fetch returns the events of day in page order. An empty day yields an
// empty, non-nil slice. Failures are *Error values.
func (g *Gateway) Fetch(ctx context.Context, day time.Time) ([]calendar.Event, error) {
	day = calendar.DateOnly(day)
	date := calendar.FormatDate(day)

	var lastErr *Error
	for attempt := 0; attempt <= g.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := g.backoff(attempt)
			g.logger.Warn().Err(lastErr).Str("date", date).Int("attempt", attempt+1).Dur("backoff", wait).Msg("retrying scrape")
			select {
			case <-ctx.Done():
				return nil, &Error{Kind: KindTimeout, Date: date, Attempts: attempt, Err: ctx.Err()}
			case <-g.clock.After(wait):
			}
		}

		started := g.clock.Now()
		events, err := g.attempt(ctx, day)
		if err == nil {
			events = normalise(date, events, g.logger)
			g.logger.Debug().Str("date", date).Int("events", len(events)).Dur("took", g.clock.Since(started)).Msg("scrape succeeded")
			return events, nil
		}

		lastErr = Classify(err)
		lastErr.Date = date
		lastErr.Attempts = attempt + 1
		if ctx.Err() != nil || !lastErr.Retryable() {
			break
		}
	}

	g.logger.Error().Err(lastErr).Str("date", date).Msg("scrape failed")
	return nil, lastErr
}

func (g *Gateway) attempt(ctx context.Context, day time.Time) ([]calendar.Event, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.opts.AttemptTimeout)
	defer cancel()

	events, err := g.scraper.FetchDay(attemptCtx, day)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &Error{Kind: KindTimeout, Err: fmt.Errorf("attempt exceeded %s: %w", g.opts.AttemptTimeout, err)}
		}
		return nil, err
	}
	return events, nil
}

func (g *Gateway) backoff(retry int) time.Duration {
	wait := g.opts.BackoffBase << (retry - 1)
	if wait <= 0 || wait > g.opts.BackoffMax {
		return g.opts.BackoffMax
	}
	return wait
}

// normalise pins every event to date, cleans its text, assigns identifiers
// and drops entries that cannot be stored.
func normalise(date string, events []calendar.Event, logger zerolog.Logger) []calendar.Event {
	out := make([]calendar.Event, 0, len(events))
	seen := make(map[string]int, len(events))
	for _, ev := range events {
		ev.Date = date
		ev.Sanitize()
		if ev.Time == "" {
			ev.Time = calendar.AllDay
		}
		if ev.Impact == "" {
			ev.Impact = calendar.ImpactNone
		}
		if err := ev.Validate(); err != nil {
			logger.Debug().Err(err).Str("date", date).Str("currency", ev.Currency).Msg("skipping scraped row")
			continue
		}
		base := calendar.EventID(date, ev.Time, ev.Currency, ev.Name)
		ev.ID = base
		// identical rows on one day get an ordinal suffix
		if n := seen[base]; n > 0 {
			ev.ID = calendar.EventID(date, ev.Time, ev.Currency, fmt.Sprintf("%s#%d", ev.Name, n+1))
		}
		seen[base]++
		out = append(out, ev)
	}
	return out
}
