package scrape

import (
	"io"
	"strings"
	"time"

	"golang.org/x/net/html"

	"calendar-cache/internal/calendar"
)

// ParseCalendarHTML extracts the events of day from a calendar page.
// Event rows are tr elements carrying data-event-id; a table.calendarspecs
// that follows an event row is read as that event's details. A page without
// any calendar markup is a parse failure; a calendar without rows is an
// empty day.
func ParseCalendarHTML(day time.Time, r io.Reader) ([]calendar.Event, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, parseFailure("parse html: %w", err)
	}

	p := &pageParser{date: calendar.FormatDate(day), events: make([]calendar.Event, 0), current: -1}
	p.walk(doc)

	if !p.sawTable && !p.sawRow {
		return nil, parseFailure("calendar table not found")
	}
	return p.events, nil
}

type pageParser struct {
	date     string
	events   []calendar.Event
	lastTime string
	sawTable bool
	sawRow   bool
	// current is the index of the last accepted event, -1 after a skipped row.
	current int
}

func (p *pageParser) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch {
		case n.Data == "table" && hasClass(n, "calendar__table"):
			p.sawTable = true
		case n.Data == "tr" && attr(n, "data-event-id") != "":
			p.sawRow = true
			p.row(n)
			return
		case n.Data == "table" && hasClass(n, "calendarspecs"):
			p.specs(n)
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

func (p *pageParser) row(tr *html.Node) {
	p.current = -1

	timeText := text(findClass(tr, "calendar__time"))
	if timeText == "" {
		timeText = p.lastTime
	} else {
		p.lastTime = timeText
	}
	if timeText == "" {
		timeText = calendar.AllDay
	}

	currency := text(findClass(tr, "calendar__currency"))
	if len(currency) > 3 {
		currency = ""
	}

	name := text(findClass(tr, "calendar__event-title"))
	if name == "" {
		name = text(findClass(tr, "calendar__event"))
	}
	if name == "" && currency == "" {
		return
	}

	ev := calendar.Event{
		Date:     p.date,
		Time:     timeText,
		Currency: currency,
		Impact:   impactOf(findClass(tr, "calendar__impact")),
		Name:     name,
		Actual:   calendar.OptionalString(text(findClass(tr, "calendar__actual"))),
		Forecast: calendar.OptionalString(text(findClass(tr, "calendar__forecast"))),
		Previous: calendar.OptionalString(text(findClass(tr, "calendar__previous"))),
	}
	p.events = append(p.events, ev)
	p.current = len(p.events) - 1

	// some layouts nest the detail pane inside the event row
	if specs := findTableClass(tr, "calendarspecs"); specs != nil {
		p.specs(specs)
	}
}

func (p *pageParser) specs(table *html.Node) {
	if p.current < 0 || p.current >= len(p.events) {
		return
	}
	ev := &p.events[p.current]
	if ev.Details == nil {
		ev.Details = &calendar.Details{}
	}
	d := ev.Details

	forEach(table, "tr", func(tr *html.Node) {
		cells := children(tr, "td")
		if len(cells) < 2 {
			return
		}
		label, value := text(cells[0]), text(cells[1])
		if value == "" {
			return
		}
		switch {
		case strings.Contains(label, "Source"):
			d.Source = value
		case strings.Contains(label, "Measures"):
			d.Measures = value
		case strings.Contains(label, "Usual Effect"):
			d.UsualEffect = value
		case strings.Contains(label, "Frequency"):
			d.Frequency = value
		case strings.Contains(label, "Next Release"):
			d.NextRelease = value
		case strings.Contains(label, "FF Notes"):
			d.FFNotes = joinNote(value, d.FFNotes)
		case strings.Contains(label, "Why Traders"), strings.Contains(label, "Care"):
			d.FFNotes = joinNote(d.FFNotes, value)
		case strings.Contains(label, "Derived Via"):
			d.DerivedVia = value
		case strings.Contains(label, "Acro Expand"):
			d.AcroExpand = value
		case strings.Contains(label, "Also Called"):
			d.AlsoCalled = value
		case strings.Contains(label, "Speaker"):
			d.Speaker = value
		case strings.Contains(label, "Description"):
			d.Description = value
		}
	})

	if d.IsEmpty() {
		ev.Details = nil
	}
}

func joinNote(first, second string) string {
	switch {
	case first == "":
		return second
	case second == "":
		return first
	default:
		return first + " | " + second
	}
}

func impactOf(cell *html.Node) calendar.Impact {
	if cell == nil {
		return calendar.ImpactNone
	}
	classes := collectClasses(cell)
	switch {
	case strings.Contains(classes, "impact-red"):
		return calendar.ImpactHigh
	case strings.Contains(classes, "impact-ora"):
		return calendar.ImpactMedium
	case strings.Contains(classes, "impact-yel"):
		return calendar.ImpactLow
	default:
		return calendar.ImpactNone
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func findClass(root *html.Node, class string) *html.Node {
	var found *html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, class) {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		visit(c)
	}
	return found
}

func findTableClass(root *html.Node, class string) *html.Node {
	n := findClass(root, class)
	if n != nil && n.Data == "table" {
		return n
	}
	return nil
}

func forEach(root *html.Node, tag string, fn func(*html.Node)) {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			fn(c)
			continue
		}
		forEach(c, tag, fn)
	}
}

func children(n *html.Node, tag string) []*html.Node {
	out := make([]*html.Node, 0, 2)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	}
	return out
}

func collectClasses(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			b.WriteString(attr(n, "class"))
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
