package flight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"calendar-cache/internal/calendar"
	"calendar-cache/internal/storage"
)

var testDay = time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC)

func newStore() *storage.Adapter {
	return storage.NewAdapter(storage.NewMemoryKV(), "test", zerolog.Nop())
}

func bucketOf(n int) calendar.DayBucket {
	events := make([]calendar.Event, n)
	for i := range events {
		events[i] = calendar.Event{Date: "2025-08-11", Time: calendar.AllDay, Currency: "USD", Impact: calendar.ImpactLow, Name: "Event"}
	}
	return calendar.NewDayBucket(testDay, calendar.Original, events, time.Now(), 0)
}

func TestResolveCollapsesConcurrentCallers(t *testing.T) {
	store := newStore()
	c := NewCoordinator(store, time.Second, zerolog.Nop())

	var calls atomic.Int32
	release := make(chan struct{})
	produce := func(ctx context.Context) (calendar.DayBucket, error) {
		calls.Add(1)
		<-release
		return bucketOf(2), nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]Resolution, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Resolve(context.Background(), testDay, calendar.Original, produce)
		}(i)
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.InFlight() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if len(results[i].Bucket.Events) != 2 {
			t.Fatalf("caller %d got %d events", i, len(results[i].Bucket.Events))
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 producer run, got %d", calls.Load())
	}
	if _, found, _ := store.Get(context.Background(), testDay, calendar.Original); !found {
		t.Fatal("bucket was not persisted")
	}
	if c.InFlight() != 0 {
		t.Fatalf("in-flight counter leaked: %d", c.InFlight())
	}
}

func TestResolveReadsStoreInsideFlight(t *testing.T) {
	store := newStore()
	if err := store.Put(context.Background(), bucketOf(3)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	c := NewCoordinator(store, time.Second, zerolog.Nop())

	res, err := c.Resolve(context.Background(), testDay, calendar.Original, func(context.Context) (calendar.DayBucket, error) {
		t.Fatal("producer must not run when the bucket is stored")
		return calendar.DayBucket{}, nil
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !res.FromStore || len(res.Bucket.Events) != 3 {
		t.Fatalf("unexpected resolution %+v", res)
	}
}

func TestResolveErrorsAreNotCached(t *testing.T) {
	store := newStore()
	c := NewCoordinator(store, time.Second, zerolog.Nop())
	boom := errors.New("upstream down")

	if _, err := c.Resolve(context.Background(), testDay, calendar.Original, func(context.Context) (calendar.DayBucket, error) {
		return calendar.DayBucket{}, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	res, err := c.Resolve(context.Background(), testDay, calendar.Original, func(context.Context) (calendar.DayBucket, error) {
		return bucketOf(1), nil
	})
	if err != nil || res.FromStore || len(res.Bucket.Events) != 1 {
		t.Fatalf("retry after failure should run producer: %+v %v", res, err)
	}
}

func TestResolveSkipsPersistingDegraded(t *testing.T) {
	store := newStore()
	c := NewCoordinator(store, time.Second, zerolog.Nop())

	_, err := c.Resolve(context.Background(), testDay, calendar.Derived, func(context.Context) (calendar.DayBucket, error) {
		b := calendar.NewDayBucket(testDay, calendar.Derived, nil, time.Now(), 0)
		b.Degraded = true
		return b, nil
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, found, _ := store.Get(context.Background(), testDay, calendar.Derived); found {
		t.Fatal("degraded bucket must not be persisted")
	}
}

func TestResolveCallerCancelDoesNotCancelFlight(t *testing.T) {
	store := newStore()
	c := NewCoordinator(store, time.Second, zerolog.Nop())

	release := make(chan struct{})
	var producerErr atomic.Value
	produce := func(ctx context.Context) (calendar.DayBucket, error) {
		<-release
		if err := ctx.Err(); err != nil {
			producerErr.Store(err)
		}
		return bucketOf(1), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Resolve(ctx, testDay, calendar.Original, produce)
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for c.InFlight() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}

	close(release)
	deadline = time.Now().Add(2 * time.Second)
	for c.InFlight() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if v := producerErr.Load(); v != nil {
		t.Fatalf("producer context was cancelled: %v", v)
	}
	if _, found, _ := store.Get(context.Background(), testDay, calendar.Original); !found {
		t.Fatal("abandoned flight should still persist its bucket")
	}
}

func TestResolveRejectsCancelledContext(t *testing.T) {
	c := NewCoordinator(newStore(), time.Second, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Resolve(ctx, testDay, calendar.Original, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

// settledCtx becomes done only once the producer has returned, so the caller
// sees a finished result and a done context at the same time.
type settledCtx struct {
	context.Context
	produced chan struct{}
	done     chan struct{}
	once     sync.Once
}

func (c *settledCtx) Done() <-chan struct{} {
	<-c.produced
	time.Sleep(20 * time.Millisecond)
	c.once.Do(func() { close(c.done) })
	return c.done
}

func (c *settledCtx) Err() error {
	select {
	case <-c.done:
		return context.Canceled
	default:
		return nil
	}
}

func TestResolvePrefersReadyResultOverCancellation(t *testing.T) {
	for i := 0; i < 20; i++ {
		c := NewCoordinator(newStore(), time.Second, zerolog.Nop())
		ctx := &settledCtx{Context: context.Background(), produced: make(chan struct{}), done: make(chan struct{})}
		produce := func(context.Context) (calendar.DayBucket, error) {
			defer close(ctx.produced)
			return bucketOf(2), nil
		}

		res, err := c.Resolve(ctx, testDay, calendar.Original, produce)
		if err != nil {
			t.Fatalf("run %d: finished result discarded: %v", i, err)
		}
		if res.Bucket.EventCount != 2 {
			t.Fatalf("run %d: unexpected bucket %+v", i, res.Bucket)
		}
	}
}
