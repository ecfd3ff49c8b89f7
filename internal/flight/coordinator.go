// Package flight collapses concurrent work for the same day bucket into a
// single producer run.
package flight

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"calendar-cache/internal/calendar"
)

// Store is the subset of the bucket store the coordinator needs.
type Store interface {
	Get(ctx context.Context, day time.Time, repr calendar.Representation) (calendar.DayBucket, bool, error)
	Put(ctx context.Context, bucket calendar.DayBucket) error
}

// Producer builds the bucket of a missing day.
type Producer func(ctx context.Context) (calendar.DayBucket, error)

// Resolution is the outcome of Resolve.
type Resolution struct {
	Bucket calendar.DayBucket
	// Shared is set when the result was delivered to more than one caller.
	Shared bool
	// FromStore is set when the flight found the bucket already persisted
	// and the producer did not run.
	FromStore bool
}

// Coordinator runs at most one producer per (date, representation) at a time.
type Coordinator struct {
	group        singleflight.Group
	store        Store
	fetchTimeout time.Duration
	inFlight     atomic.Int64
	logger       zerolog.Logger
}

// NewCoordinator constructs a coordinator writing through store.
func NewCoordinator(store Store, fetchTimeout time.Duration, logger zerolog.Logger) *Coordinator {
	if fetchTimeout <= 0 {
		fetchTimeout = 2 * time.Minute
	}
	return &Coordinator{
		store:        store,
		fetchTimeout: fetchTimeout,
		logger:       logger.With().Str("component", "coordinator").Logger(),
	}
}

// Key identifies a flight.
func Key(day time.Time, repr calendar.Representation) string {
	return calendar.FormatDate(day) + ":" + string(repr)
}

// Resolve returns the bucket for (day, repr), joining a running flight when
// one exists. The flight outlives ctx: a caller that gives up gets ctx.Err()
// while other waiters still receive the result. Errors are never cached.
func (c *Coordinator) Resolve(ctx context.Context, day time.Time, repr calendar.Representation, produce Producer) (Resolution, error) {
	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}

	key := Key(day, repr)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.run(context.WithoutCancel(ctx), key, day, repr, produce)
	})

	select {
	case res := <-ch:
		return resolution(res)
	case <-ctx.Done():
	}

	// A result that landed together with the cancellation still wins.
	select {
	case res := <-ch:
		return resolution(res)
	default:
	}
	c.logger.Debug().Str("key", key).Msg("caller left flight early")
	return Resolution{}, ctx.Err()
}

func resolution(res singleflight.Result) (Resolution, error) {
	if res.Err != nil {
		return Resolution{Shared: res.Shared}, res.Err
	}
	out := res.Val.(Resolution)
	out.Shared = res.Shared
	return out, nil
}

// InFlight reports how many producers are currently running.
func (c *Coordinator) InFlight() int {
	return int(c.inFlight.Load())
}

func (c *Coordinator) run(ctx context.Context, key string, day time.Time, repr calendar.Representation, produce Producer) (Resolution, error) {
	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	bucket, found, err := c.store.Get(ctx, day, repr)
	if err != nil {
		return Resolution{}, err
	}
	if found {
		c.logger.Debug().Str("key", key).Msg("bucket persisted by an earlier flight")
		return Resolution{Bucket: bucket, FromStore: true}, nil
	}

	bucket, err = produce(ctx)
	if err != nil {
		return Resolution{}, err
	}
	if bucket.Date != calendar.FormatDate(day) || bucket.Representation != repr {
		return Resolution{}, fmt.Errorf("producer for %s returned bucket %s:%s", key, bucket.Date, bucket.Representation)
	}

	if bucket.Degraded {
		c.logger.Warn().Str("key", key).Msg("not persisting degraded bucket")
		return Resolution{Bucket: bucket}, nil
	}
	if err := c.store.Put(ctx, bucket); err != nil {
		return Resolution{}, err
	}
	c.logger.Debug().Str("key", key).Int("events", bucket.EventCount).Msg("flight complete")
	return Resolution{Bucket: bucket}, nil
}
