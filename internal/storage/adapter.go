package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"calendar-cache/internal/calendar"
)

// Adapter stores one DayBucket per (date, representation) key on top of a KV.
type Adapter struct {
	kv     KV
	prefix string
	logger zerolog.Logger
}

// NewAdapter wraps kv, namespacing every key under prefix.
func NewAdapter(kv KV, prefix string, logger zerolog.Logger) *Adapter {
	return &Adapter{
		kv:     kv,
		prefix: strings.TrimSuffix(prefix, ":"),
		logger: logger.With().Str("component", "bucket_store").Logger(),
	}
}

// Key renders the storage key of a day bucket.
func (a *Adapter) Key(day time.Time, repr calendar.Representation) string {
	return fmt.Sprintf("%s:%s:%s", a.prefix, calendar.FormatDate(day), repr)
}

// Get loads a bucket. A value that cannot be decoded is logged and reported
// as absent so the next fetch overwrites it.
func (a *Adapter) Get(ctx context.Context, day time.Time, repr calendar.Representation) (calendar.DayBucket, bool, error) {
	key := a.Key(day, repr)
	raw, found, err := a.kv.Get(ctx, key)
	if err != nil {
		return calendar.DayBucket{}, false, fmt.Errorf("get bucket %s: %w", key, err)
	}
	if !found {
		return calendar.DayBucket{}, false, nil
	}

	bucket, err := decodeBucket(raw, calendar.FormatDate(day), repr)
	if err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable bucket")
		return calendar.DayBucket{}, false, nil
	}
	return bucket, true, nil
}

// Put writes the whole bucket with a single Set.
func (a *Adapter) Put(ctx context.Context, bucket calendar.DayBucket) error {
	day, err := calendar.ParseDate(bucket.Date)
	if err != nil {
		return err
	}
	if bucket.Representation != calendar.Original && bucket.Representation != calendar.Derived {
		return fmt.Errorf("put bucket: unknown representation %q", bucket.Representation)
	}
	if bucket.Events == nil {
		bucket.Events = []calendar.Event{}
	}
	bucket.EventCount = len(bucket.Events)

	payload, err := json.Marshal(bucket)
	if err != nil {
		return fmt.Errorf("encode bucket: %w", err)
	}

	key := a.Key(day, bucket.Representation)
	if err := a.kv.Set(ctx, key, payload); err != nil {
		return fmt.Errorf("put bucket %s: %w", key, err)
	}
	a.logger.Debug().Str("key", key).Int("events", bucket.EventCount).Msg("bucket stored")
	return nil
}

// DeleteRange removes both representations of every day in [start, end]
// and returns how many keys actually existed.
func (a *Adapter) DeleteRange(ctx context.Context, start, end time.Time) (int, error) {
	days := calendar.Days(start, end)
	if len(days) == 0 {
		return 0, nil
	}
	keys := make([]string, 0, len(days)*2)
	for _, day := range days {
		keys = append(keys, a.Key(day, calendar.Original), a.Key(day, calendar.Derived))
	}
	deleted, err := a.kv.Delete(ctx, keys...)
	if err != nil {
		return deleted, fmt.Errorf("delete range: %w", err)
	}
	return deleted, nil
}

// ListKeys reports key counts and the covered date bounds.
func (a *Adapter) ListKeys(ctx context.Context) (KeyStats, error) {
	keys, err := a.kv.Keys(ctx, a.prefix+":")
	if err != nil {
		return KeyStats{}, fmt.Errorf("list keys: %w", err)
	}

	stats := KeyStats{Total: len(keys)}
	for _, key := range keys {
		date, repr, ok := a.parseKey(key)
		if !ok {
			continue
		}
		switch repr {
		case calendar.Original:
			stats.Original++
		case calendar.Derived:
			stats.Derived++
		}
		if stats.First == "" || date < stats.First {
			stats.First = date
		}
		if date > stats.Last {
			stats.Last = date
		}
	}
	return stats, nil
}

// Ping checks store reachability.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.kv.Ping(ctx)
}

// Close releases the backend.
func (a *Adapter) Close() error {
	return a.kv.Close()
}

func (a *Adapter) parseKey(key string) (string, calendar.Representation, bool) {
	rest, ok := strings.CutPrefix(key, a.prefix+":")
	if !ok {
		return "", "", false
	}
	date, repr, ok := strings.Cut(rest, ":")
	if !ok {
		return "", "", false
	}
	if _, err := calendar.ParseDate(date); err != nil {
		return "", "", false
	}
	return date, calendar.Representation(repr), true
}
