package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"calendar-cache/internal/calendar"
)

// Query prints the events of a range, fetching missing days.
func (a *App) Query(ctx context.Context, opts QueryOptions) error {
	svc, closeStore, err := a.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	q := calendar.RangeQuery{Start: opts.From, End: opts.To, Representation: opts.representation()}
	res, err := svc.Query(ctx, q)
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(a.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if len(res.Events) == 0 {
		fmt.Fprintln(a.Out, "no events found")
	} else {
		writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "Date\tTime\tCur\tImpact\tEvent\tActual\tForecast\tPrevious")
		for _, ev := range res.Events {
			fmt.Fprintf(
				writer,
				"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				ev.Date,
				ev.Time,
				ev.Currency,
				ev.Impact,
				sanitizeInline(ev.Name),
				calendar.Display(ev.Actual),
				calendar.Display(ev.Forecast),
				calendar.Display(ev.Previous),
			)
		}
		writer.Flush()
	}

	fmt.Fprintf(a.Out, "\n%d event(s), source %s, %dms\n", len(res.Events), res.Source, res.ProcessingTimeMS)
	for _, f := range res.PartialFailures {
		fmt.Fprintf(a.Out, "failed %s: %s (%s)\n", f.Date, f.Reason, sanitizeInline(f.Message))
	}
	if len(res.TransformDegraded) > 0 {
		fmt.Fprintf(a.Out, "original text served for: %s\n", strings.Join(res.TransformDegraded, ", "))
	}
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
