package app

import (
	"context"
	"fmt"

	"calendar-cache/internal/calendar"
)

// Warm fills the cache for a range of any length, one window at a time.
func (a *App) Warm(ctx context.Context, opts WarmOptions) error {
	repr := opts.Representation
	if repr == "" {
		repr = calendar.Original
	}

	svc, closeStore, err := a.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	got, err := a.collect(ctx, svc, opts.From, opts.To, repr)
	if err != nil {
		return err
	}

	days := len(calendar.Days(opts.From, opts.To))
	a.Logger.Info().
		Int("days", days).
		Int("windows", got.Windows).
		Int("events", len(got.Events)).
		Int("failed", len(got.Failures)).
		Msg("warm complete")
	fmt.Fprintf(a.Out, "warmed %d day(s) with %d event(s), %d failed\n", days-len(got.Failures), len(got.Events), len(got.Failures))

	if len(got.Failures) > 0 {
		return fmt.Errorf("%d day(s) could not be warmed; check the logs", len(got.Failures))
	}
	return nil
}
