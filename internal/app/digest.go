package app

import (
	"context"

	"calendar-cache/internal/alerting"
	"calendar-cache/internal/calendar"
)

// Digest sends the notable events of a range through the configured notifier.
func (a *App) Digest(ctx context.Context, opts DigestOptions) error {
	minImpact, err := calendar.ParseImpact(opts.MinImpact)
	if err != nil {
		return err
	}
	if opts.MinImpact == "" {
		if minImpact, err = calendar.ParseImpact(a.Config.Alerting.MinImpact); err != nil {
			return err
		}
	}

	svc, closeStore, err := a.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	got, err := a.collect(ctx, svc, opts.From, opts.To, opts.representation())
	if err != nil {
		return err
	}

	digest := alerting.BuildDigest(calendar.FormatDate(opts.From), calendar.FormatDate(opts.To), got.Events, minImpact)
	digest.Missing = failedDates(got.Failures)

	a.Logger.Info().
		Int("events", len(digest.Events)).
		Str("min_impact", string(minImpact)).
		Msg("sending digest")
	return a.newNotifier().Notify(ctx, digest)
}
