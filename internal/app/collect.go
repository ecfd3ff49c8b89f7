package app

import (
	"context"
	"errors"
	"time"

	"calendar-cache/internal/calendar"
	"calendar-cache/internal/service"
)

// collection is the merged outcome of a range split into service-sized windows.
type collection struct {
	Events   []calendar.Event
	Failures []service.PartialFailure
	Windows  int
}

// collect queries [from, to] window by window so ranges longer than the
// configured span limit can be served.
func (a *App) collect(ctx context.Context, svc *service.Service, from, to time.Time, repr calendar.Representation) (collection, error) {
	from, to = calendar.DateOnly(from), calendar.DateOnly(to)
	if to.Before(from) {
		return collection{}, errors.New("--from must not be after --to")
	}

	span := svc.Limits().MaxSpanDays
	if span <= 0 {
		span = calendar.SpanDays(from, to)
	}

	out := collection{Events: []calendar.Event{}}
	for start := from; !start.After(to); start = start.AddDate(0, 0, span+1) {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}

		end := start.AddDate(0, 0, span)
		if end.After(to) {
			end = to
		}
		out.Windows++

		res, err := svc.Query(ctx, calendar.RangeQuery{Start: start, End: end, Representation: repr})
		var rue *service.RangeUnavailableError
		switch {
		case errors.As(err, &rue):
			a.Logger.Error().Err(err).Str("start", calendar.FormatDate(start)).Msg("window unavailable")
			out.Failures = append(out.Failures, rue.Failures...)
			continue
		case err != nil:
			return out, err
		}
		out.Events = append(out.Events, res.Events...)
		out.Failures = append(out.Failures, res.PartialFailures...)
	}
	return out, nil
}

func failedDates(failures []service.PartialFailure) []string {
	dates := make([]string, len(failures))
	for i, f := range failures {
		dates[i] = f.Date
	}
	return dates
}
