package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"calendar-cache/internal/calendar"
)

// Export writes the events of a range as CSV and/or a PNG chart of events
// per day, coloured by the day's highest impact.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
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
	if len(got.Failures) > 0 {
		a.Logger.Warn().Strs("dates", failedDates(got.Failures)).Msg("exporting without unavailable days")
	}
	a.Logger.Info().Int("events", len(got.Events)).Msg("exporting events")

	if opts.CSVPath != "" {
		if err := writeEventsCSV(opts.CSVPath, got.Events); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		counts := countByDay(opts.From, opts.To, got.Events)
		if err := writeEventsPNG(opts.PNGPath, counts, a.Config.Export.ChartWidth, a.Config.Export.ChartHeight); err != nil {
			return err
		}
	}

	return nil
}

func writeEventsCSV(path string, events []calendar.Event) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"id", "date", "time", "currency", "impact", "event", "actual", "forecast", "previous", "surprise"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, ev := range events {
		surprise := ""
		if d, ok := ev.Surprise(); ok {
			surprise = d.String()
		}
		record := []string{
			ev.ID,
			ev.Date,
			ev.Time,
			ev.Currency,
			string(ev.Impact),
			ev.Name,
			optional(ev.Actual),
			optional(ev.Forecast),
			optional(ev.Previous),
			surprise,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// dayCount is the number of events of one day per impact level.
type dayCount struct {
	Date    string
	ByLevel map[calendar.Impact]int
	Total   int
}

func countByDay(from, to time.Time, events []calendar.Event) []dayCount {
	days := calendar.Days(from, to)
	index := make(map[string]int, len(days))
	counts := make([]dayCount, len(days))
	for i, d := range days {
		counts[i] = dayCount{Date: calendar.FormatDate(d), ByLevel: map[calendar.Impact]int{}}
		index[counts[i].Date] = i
	}
	for _, ev := range events {
		i, ok := index[ev.Date]
		if !ok {
			continue
		}
		counts[i].ByLevel[ev.Impact]++
		counts[i].Total++
	}
	return counts
}

var impactColors = map[calendar.Impact]string{
	calendar.ImpactHigh:   "d62728",
	calendar.ImpactMedium: "ff7f0e",
	calendar.ImpactLow:    "f2c40f",
	calendar.ImpactNone:   "9e9e9e",
}

// topImpact is the highest impact present on a day.
func (c dayCount) topImpact() calendar.Impact {
	for _, level := range []calendar.Impact{calendar.ImpactHigh, calendar.ImpactMedium, calendar.ImpactLow} {
		if c.ByLevel[level] > 0 {
			return level
		}
	}
	return calendar.ImpactNone
}

func writeEventsPNG(path string, counts []dayCount, width, height int) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}

	maxTotal := 1
	bars := make([]chart.Value, 0, len(counts))
	for _, c := range counts {
		if c.Total > maxTotal {
			maxTotal = c.Total
		}
		color := drawing.ColorFromHex(impactColors[c.topImpact()])
		bars = append(bars, chart.Value{
			Label: c.Date[5:],
			Value: float64(c.Total),
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}

	graph := chart.BarChart{
		Title:    "Events per day",
		Width:    width,
		Height:   height,
		BarWidth: barWidth(width, len(bars)),
		YAxis: chart.YAxis{
			Name:  "Events",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxTotal)},
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		Bars: bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func barWidth(width, bars int) int {
	if bars == 0 {
		return 40
	}
	w := (width - 120) / bars * 2 / 3
	switch {
	case w < 4:
		return 4
	case w > 60:
		return 60
	}
	return w
}

func optional(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
