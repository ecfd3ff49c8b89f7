package calendar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// AllDay is the time sentinel for events without a scheduled time.
	AllDay = "All Day"
	// Placeholder is rendered for absent actual/forecast/previous figures.
	Placeholder = "-"
)

// eventNamespace seeds deterministic event identifiers.
var eventNamespace = uuid.MustParse("6f1d3c2e-8a4b-5e9f-b1c7-2d4e6a8b0c13")

// Impact grades how strongly an event is expected to move markets.
type Impact string

const (
	ImpactHigh   Impact = "High"
	ImpactMedium Impact = "Medium"
	ImpactLow    Impact = "Low"
	ImpactNone   Impact = "None"
)

// ParseImpact accepts the case-insensitive impact names.
func ParseImpact(v string) (Impact, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "high":
		return ImpactHigh, nil
	case "medium":
		return ImpactMedium, nil
	case "low":
		return ImpactLow, nil
	case "none", "":
		return ImpactNone, nil
	default:
		return "", fmt.Errorf("unknown impact %q", v)
	}
}

// Rank orders impacts from None (0) to High (3).
func (i Impact) Rank() int {
	switch i {
	case ImpactHigh:
		return 3
	case ImpactMedium:
		return 2
	case ImpactLow:
		return 1
	default:
		return 0
	}
}

// Representation selects between the scraped and the rewritten form of a day.
type Representation string

const (
	Original Representation = "original"
	Derived  Representation = "derived"
)

// ParseRepresentation maps user input onto a Representation. The legacy
// name "paraphrased" is accepted for Derived.
func ParseRepresentation(v string) (Representation, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "original":
		return Original, nil
	case "derived", "paraphrased", "":
		return Derived, nil
	default:
		return "", fmt.Errorf("unknown representation %q", v)
	}
}

// Details carries the optional block scraped from an event's specs table.
type Details struct {
	Source      string `json:"source,omitempty" yaml:"source"`
	Measures    string `json:"measures,omitempty" yaml:"measures"`
	UsualEffect string `json:"usual_effect,omitempty" yaml:"usual_effect"`
	Frequency   string `json:"frequency,omitempty" yaml:"frequency"`
	NextRelease string `json:"next_release,omitempty" yaml:"next_release"`
	FFNotes     string `json:"ff_notes,omitempty" yaml:"ff_notes"`
	Description string `json:"description,omitempty" yaml:"description"`
	DerivedVia  string `json:"derived_via,omitempty" yaml:"derived_via"`
	AcroExpand  string `json:"acro_expand,omitempty" yaml:"acro_expand"`
	AlsoCalled  string `json:"also_called,omitempty" yaml:"also_called"`
	Speaker     string `json:"speaker,omitempty" yaml:"speaker"`
}

// Fields exposes every free-text detail field for in-place rewriting.
func (d *Details) Fields() []*string {
	return []*string{
		&d.Source, &d.Measures, &d.UsualEffect, &d.Frequency, &d.NextRelease,
		&d.FFNotes, &d.Description, &d.DerivedVia, &d.AcroExpand, &d.AlsoCalled, &d.Speaker,
	}
}

// IsEmpty reports whether no detail field carries text.
func (d *Details) IsEmpty() bool {
	if d == nil {
		return true
	}
	for _, f := range d.Fields() {
		if *f != "" {
			return false
		}
	}
	return true
}

// Event is one scheduled economic release on a given day.
type Event struct {
	ID       string   `json:"id"`
	Date     string   `json:"date"`
	Time     string   `json:"time"`
	Currency string   `json:"currency"`
	Impact   Impact   `json:"impact"`
	Name     string   `json:"event"`
	Actual   *string  `json:"actual"`
	Forecast *string  `json:"forecast"`
	Previous *string  `json:"previous"`
	Details  *Details `json:"details,omitempty"`
}

// EventID derives the stable identifier of an event from its identity tuple.
func EventID(date, timeOfDay, currency, name string) string {
	key := strings.Join([]string{date, timeOfDay, currency, name}, "|")
	return uuid.NewSHA1(eventNamespace, []byte(key)).String()
}

// AssignID fills in the identifier when the source did not provide one.
func (e *Event) AssignID() {
	if e.ID == "" {
		e.ID = EventID(e.Date, e.Time, e.Currency, e.Name)
	}
}

// Clone returns a deep copy.
func (e Event) Clone() Event {
	out := e
	out.Actual = cloneString(e.Actual)
	out.Forecast = cloneString(e.Forecast)
	out.Previous = cloneString(e.Previous)
	if e.Details != nil {
		d := *e.Details
		out.Details = &d
	}
	return out
}

// Validate checks the fields every stored event must carry.
func (e Event) Validate() error {
	if _, err := ParseDate(e.Date); err != nil {
		return err
	}
	if strings.TrimSpace(e.Name) == "" {
		return errors.New("event name is empty")
	}
	if len(e.Currency) > 3 {
		return fmt.Errorf("currency %q longer than 3 characters", e.Currency)
	}
	if _, err := ParseImpact(string(e.Impact)); err != nil {
		return err
	}
	return nil
}

// Display renders an optional figure, using Placeholder when absent.
func Display(v *string) string {
	if v == nil || *v == "" {
		return Placeholder
	}
	return *v
}

// OptionalString turns scraped text into an optional figure.
func OptionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" || v == Placeholder {
		return nil
	}
	return &v
}

// CloneEvents deep-copies a slice of events.
func CloneEvents(events []Event) []Event {
	out := make([]Event, len(events))
	for i, ev := range events {
		out[i] = ev.Clone()
	}
	return out
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
