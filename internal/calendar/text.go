package calendar

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// CleanText strips markup from untrusted text and collapses whitespace.
func CleanText(v string) string {
	if v == "" {
		return ""
	}
	stripped := html.UnescapeString(strictPolicy.Sanitize(v))
	return strings.Join(strings.Fields(stripped), " ")
}

// Sanitize cleans every free-text field of the event in place.
func (e *Event) Sanitize() {
	e.Time = CleanText(e.Time)
	e.Currency = strings.ToUpper(CleanText(e.Currency))
	e.Name = CleanText(e.Name)
	for _, p := range []**string{&e.Actual, &e.Forecast, &e.Previous} {
		if *p != nil {
			*p = OptionalString(CleanText(**p))
		}
	}
	if e.Details != nil {
		for _, f := range e.Details.Fields() {
			*f = CleanText(*f)
		}
		if e.Details.IsEmpty() {
			e.Details = nil
		}
	}
}
