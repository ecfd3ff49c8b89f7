package calendar

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var unitMultipliers = map[string]decimal.Decimal{
	"K": decimal.NewFromInt(1_000),
	"M": decimal.NewFromInt(1_000_000),
	"B": decimal.NewFromInt(1_000_000_000),
	"T": decimal.NewFromInt(1_000_000_000_000),
}

// Figure is a parsed release value such as "215K" or "-0.3%".
type Figure struct {
	Value decimal.Decimal
	// Unit is "%" for percentages and "" for plain or scaled counts.
	Unit string
}

// ParseFigure understands the K/M/B/T suffixes, percentages and the
// "<" / ">" qualifiers used on calendar pages.
func ParseFigure(raw string) (Figure, error) {
	v := strings.TrimSpace(raw)
	v = strings.TrimLeft(v, "<>")
	v = strings.ReplaceAll(v, ",", "")
	if v == "" || v == Placeholder {
		return Figure{}, fmt.Errorf("empty figure %q", raw)
	}

	unit := ""
	multiplier := decimal.NewFromInt(1)
	if strings.HasSuffix(v, "%") {
		unit = "%"
		v = strings.TrimSuffix(v, "%")
	} else if m, ok := unitMultipliers[strings.ToUpper(v[len(v)-1:])]; ok {
		multiplier = m
		v = v[:len(v)-1]
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return Figure{}, fmt.Errorf("parse figure %q: %w", raw, err)
	}
	return Figure{Value: d.Mul(multiplier), Unit: unit}, nil
}

// Surprise returns actual minus forecast when both figures parse into the
// same unit.
func (e Event) Surprise() (decimal.Decimal, bool) {
	if e.Actual == nil || e.Forecast == nil {
		return decimal.Decimal{}, false
	}
	actual, err := ParseFigure(*e.Actual)
	if err != nil {
		return decimal.Decimal{}, false
	}
	forecast, err := ParseFigure(*e.Forecast)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if actual.Unit != forecast.Unit {
		return decimal.Decimal{}, false
	}
	return actual.Value.Sub(forecast.Value), true
}
