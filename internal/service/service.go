package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"calendar-cache/internal/calendar"
	"calendar-cache/internal/flight"
	"calendar-cache/internal/storage"
)

// ErrInvalidRange is returned for malformed or out-of-limits queries.
var ErrInvalidRange = calendar.ErrInvalidRange

// Fetcher scrapes the original events of one day.
type Fetcher interface {
	Fetch(ctx context.Context, day time.Time) ([]calendar.Event, error)
}

// Transformer produces the derived events of one day.
type Transformer interface {
	Transform(ctx context.Context, events []calendar.Event) ([]calendar.Event, error)
}

// Options tune query execution.
type Options struct {
	RequestTimeout time.Duration
	FetchTimeout   time.Duration
	MaxConcurrency int
	Limits         calendar.Limits
	Clock          clockwork.Clock
}

// Service answers range queries from the day cache, filling gaps on demand.
type Service struct {
	store       *storage.Adapter
	fetcher     Fetcher
	transformer Transformer
	coord       *flight.Coordinator
	opts        Options
	clock       clockwork.Clock
	logger      zerolog.Logger
}

// New constructs the range cache service.
func New(store *storage.Adapter, fetcher Fetcher, transformer Transformer, opts Options, logger zerolog.Logger) *Service {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 3 * time.Minute
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger = logger.With().Str("component", "service").Logger()

	return &Service{
		store:       store,
		fetcher:     fetcher,
		transformer: transformer,
		coord:       flight.NewCoordinator(store, opts.FetchTimeout, logger),
		opts:        opts,
		clock:       clock,
		logger:      logger,
	}
}

// Limits exposes the configured query bounds.
func (s *Service) Limits() calendar.Limits {
	return s.opts.Limits
}

type dayOutcome struct {
	bucket  calendar.DayBucket
	state   DayState
	shared  bool
	failure *PartialFailure
}

// Query returns every event of the range in ascending date order. Days that
// cannot be produced are reported in PartialFailures; if no day succeeds the
// error is a *RangeUnavailableError.
func (s *Service) Query(ctx context.Context, q calendar.RangeQuery) (*RangeResult, error) {
	started := s.clock.Now()
	if err := q.Validate(s.opts.Limits, started); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	days := q.Days()
	outcomes := make([]dayOutcome, len(days))

	misses, err := s.lookup(ctx, days, q.Representation, outcomes)
	if err != nil {
		s.logger.Error().Err(err).Msg("query aborted")
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxConcurrency)
	for _, i := range misses {
		g.Go(func() error {
			return s.fill(gctx, days[i], q.Representation, &outcomes[i])
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("query aborted")
		return nil, err
	}

	result := s.assemble(q, days, outcomes)
	result.ProcessingTimeMS = s.clock.Since(started).Milliseconds()

	s.logger.Info().
		Str("query_id", result.QueryID).
		Str("start", result.Start).
		Str("end", result.End).
		Str("representation", string(q.Representation)).
		Str("source", string(result.Source)).
		Int("events", len(result.Events)).
		Int("failures", len(result.PartialFailures)).
		Int64("took_ms", result.ProcessingTimeMS).
		Msg("range query complete")

	if len(result.PartialFailures) == len(days) {
		return nil, &RangeUnavailableError{Start: result.Start, End: result.End, Failures: result.PartialFailures}
	}
	return result, nil
}

// lookup reads every day from the store before any fetch is scheduled, so
// cached days never queue behind slow misses. It returns the indexes of the
// days that still need producing. Only store failures are returned.
func (s *Service) lookup(ctx context.Context, days []time.Time, repr calendar.Representation, outcomes []dayOutcome) ([]int, error) {
	g, gctx := errgroup.WithContext(ctx)
	for i, day := range days {
		g.Go(func() error {
			date := calendar.FormatDate(day)
			bucket, found, err := s.store.Get(gctx, day, repr)
			switch {
			case err != nil && ctx.Err() != nil:
				outcomes[i].fail(date, ctx.Err())
			case err != nil:
				return err
			case found:
				s.logger.Debug().Str("date", date).Str("representation", string(repr)).Msg("cache hit")
				outcomes[i].bucket, outcomes[i].state = bucket, DayHit
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var misses []int
	for i := range outcomes {
		if outcomes[i].state == "" {
			misses = append(misses, i)
		}
	}
	return misses, nil
}

// fill produces one missing day through the coordinator. Only store failures
// are returned; they abort the query.
func (s *Service) fill(ctx context.Context, day time.Time, repr calendar.Representation, out *dayOutcome) error {
	date := calendar.FormatDate(day)
	if err := ctx.Err(); err != nil {
		out.fail(date, err)
		return nil
	}

	s.logger.Debug().Str("date", date).Str("representation", string(repr)).Msg("cache miss")
	res, err := s.coord.Resolve(ctx, day, repr, s.producer(day, repr))
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			return err
		}
		out.fail(date, err)
		return nil
	}

	out.bucket, out.shared = res.Bucket, res.Shared
	out.state = DayFetched
	if res.FromStore {
		out.state = DayHit
	}
	return nil
}

func (o *dayOutcome) fail(date string, err error) {
	f := newPartialFailure(date, err)
	o.state, o.failure = DayFailed, &f
}

func (s *Service) producer(day time.Time, repr calendar.Representation) flight.Producer {
	if repr == calendar.Derived {
		return s.produceDerived(day)
	}
	return s.produceOriginal(day)
}

func (s *Service) produceOriginal(day time.Time) flight.Producer {
	return func(ctx context.Context) (calendar.DayBucket, error) {
		started := s.clock.Now()
		events, err := s.fetcher.Fetch(ctx, day)
		if err != nil {
			return calendar.DayBucket{}, err
		}
		return calendar.NewDayBucket(day, calendar.Original, events, s.clock.Now(), s.clock.Since(started)), nil
	}
}

// produceDerived transforms the cached original when present and otherwise
// resolves the original through the coordinator, so a day is scraped once
// whichever representation is asked for first.
func (s *Service) produceDerived(day time.Time) flight.Producer {
	return func(ctx context.Context) (calendar.DayBucket, error) {
		started := s.clock.Now()
		date := calendar.FormatDate(day)

		original, found, err := s.store.Get(ctx, day, calendar.Original)
		if err != nil {
			return calendar.DayBucket{}, err
		}
		if found {
			s.logger.Debug().Str("date", date).Msg("deriving from cached original")
		} else {
			res, err := s.coord.Resolve(ctx, day, calendar.Original, s.produceOriginal(day))
			if err != nil {
				return calendar.DayBucket{}, err
			}
			original = res.Bucket
		}

		degraded := false
		events, err := s.transformer.Transform(ctx, original.Events)
		if err != nil {
			s.logger.Warn().Err(err).Str("date", date).Msg("transform degraded; serving original events")
			events = calendar.CloneEvents(original.Events)
			degraded = true
		}

		bucket := calendar.NewDayBucket(day, calendar.Derived, events, s.clock.Now(), s.clock.Since(started))
		bucket.Degraded = degraded
		return bucket, nil
	}
}

func (s *Service) assemble(q calendar.RangeQuery, days []time.Time, outcomes []dayOutcome) *RangeResult {
	result := &RangeResult{
		QueryID:           uuid.NewString(),
		Start:             calendar.FormatDate(q.Start),
		End:               calendar.FormatDate(q.End),
		Representation:    q.Representation,
		Events:            []calendar.Event{},
		PartialFailures:   []PartialFailure{},
		TransformDegraded: []string{},
		Days:              make([]DayStatus, 0, len(days)),
	}

	hits, fetched := 0, 0
	for i, day := range days {
		o := outcomes[i]
		status := DayStatus{Date: calendar.FormatDate(day), State: o.state, Shared: o.shared}
		switch o.state {
		case DayFailed:
			result.PartialFailures = append(result.PartialFailures, *o.failure)
		default:
			if o.state == DayHit {
				hits++
			} else {
				fetched++
			}
			result.Events = append(result.Events, o.bucket.Events...)
			status.EventCount = len(o.bucket.Events)
			if o.bucket.Degraded {
				status.Degraded = true
				result.TransformDegraded = append(result.TransformDegraded, status.Date)
			}
		}
		result.Days = append(result.Days, status)
	}

	failed := len(result.PartialFailures)
	switch {
	case fetched == 0 && failed == 0:
		result.Source = SourceCache
	case hits == 0 && failed == 0:
		result.Source = SourceLive
	default:
		result.Source = SourceMixed
	}
	return result
}

// DeleteRange removes both representations of every day in [start, end].
func (s *Service) DeleteRange(ctx context.Context, start, end time.Time) (int, error) {
	start, end = calendar.DateOnly(start), calendar.DateOnly(end)
	if end.Before(start) {
		return 0, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, calendar.FormatDate(start), calendar.FormatDate(end))
	}
	deleted, err := s.store.DeleteRange(ctx, start, end)
	if err != nil {
		return deleted, err
	}
	s.logger.Info().
		Str("start", calendar.FormatDate(start)).
		Str("end", calendar.FormatDate(end)).
		Int("deleted", deleted).
		Msg("cache range deleted")
	return deleted, nil
}

// Stats summarises the cache contents.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	keys, err := s.store.ListKeys(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalKeys:    keys.Total,
		OriginalKeys: keys.Original,
		DerivedKeys:  keys.Derived,
		FirstDate:    keys.First,
		LastDate:     keys.Last,
		InFlight:     s.coord.InFlight(),
	}, nil
}

// Healthy probes the store.
func (s *Service) Healthy(ctx context.Context) Health {
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("store ping failed")
		return Health{StoreReachable: false, Error: err.Error(), InFlight: s.coord.InFlight()}
	}
	return Health{StoreReachable: true, InFlight: s.coord.InFlight()}
}
