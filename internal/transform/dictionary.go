package transform

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"calendar-cache/internal/calendar"
)

var abbreviations = map[string]string{
	"m/m":  "month over month",
	"y/y":  "year over year",
	"q/q":  "quarter over quarter",
	"w/w":  "week over week",
	"Fed":  "Federal Reserve",
	"ECB":  "European Central Bank",
	"BoE":  "Bank of England",
	"BoJ":  "Bank of Japan",
	"RBA":  "Reserve Bank of Australia",
	"BOC":  "Bank of Canada",
	"SNB":  "Swiss National Bank",
	"RBNZ": "Reserve Bank of New Zealand",
	"CPI":  "Consumer Price Index",
	"PPI":  "Producer Price Index",
	"GDP":  "Gross Domestic Product",
	"NFP":  "Non-Farm Payrolls",
	"ISM":  "Institute for Supply Management",
	"PMI":  "Purchasing Managers Index",
	"ADP":  "Automatic Data Processing",
	"BLS":  "Bureau of Labor Statistics",
	"BEA":  "Bureau of Economic Analysis",
	"CBO":  "Congressional Budget Office",
	"FOMC": "Federal Open Market Committee",
	"MPC":  "Monetary Policy Committee",
}

// descriptive terms in priority order; only the first applicable one fires.
var descriptive = []struct{ term, replacement string }{
	{"Consumer Credit", "Consumer Credit Change"},
	{"Interest Rate", "Interest Rate Decision"},
	{"Retail Sales", "Retail Sales Report"},
	{"Trade Balance", "Trade Balance Report"},
	{"Current Account", "Current Account Balance"},
	{"Employment", "Employment Data"},
	{"Inflation", "Inflation Rate"},
	{"Manufacturing", "Manufacturing Data"},
	{"Services", "Services Sector Data"},
	{"Housing", "Housing Market Data"},
	{"Consumer", "Consumer Data"},
	{"Business", "Business Activity Data"},
}

var contextual = []struct {
	words  []string
	prefix string
}{
	{[]string{"Employment", "Change"}, "Employment Change Report"},
	{[]string{"Interest", "Rate"}, "Interest Rate Decision"},
	{[]string{"Retail", "Sales"}, "Retail Sales Performance"},
	{[]string{"Trade", "Balance"}, "Trade Balance Report"},
}

var abbreviationPattern = compileAbbreviations()

func compileAbbreviations() *regexp.Regexp {
	keys := make([]string, 0, len(abbreviations))
	for k := range abbreviations {
		keys = append(keys, regexp.QuoteMeta(k))
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return regexp.MustCompile(`\b(?:` + strings.Join(keys, "|") + `)\b`)
}

// Dictionary is the deterministic rewriter: abbreviation expansion,
// descriptive wording and contextual prefixes.
type Dictionary struct{}

// Transform rewrites event names and detail text.
func (Dictionary) Transform(ctx context.Context, events []calendar.Event) ([]calendar.Event, error) {
	for i := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		events[i].Name = RewriteName(events[i].Name)
		if events[i].Details != nil {
			for _, f := range events[i].Details.Fields() {
				*f = ExpandAbbreviations(*f)
			}
		}
	}
	return events, nil
}

// ExpandAbbreviations replaces whole-word abbreviations with their full form.
func ExpandAbbreviations(text string) string {
	if text == "" {
		return text
	}
	return abbreviationPattern.ReplaceAllStringFunc(text, func(m string) string {
		return abbreviations[m]
	})
}

// RewriteName produces the derived display name of an event.
func RewriteName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}

	out := ExpandAbbreviations(name)
	out = applyDescriptive(out)
	if out != name {
		return out
	}

	for _, c := range contextual {
		if strings.Contains(name, c.prefix) {
			return name
		}
		if containsAll(name, c.words) {
			return c.prefix + " - " + name
		}
	}
	return name
}

// applyDescriptive extends the first bare occurrence of a known term. An
// occurrence followed by another capitalised word is part of a longer title
// and is left alone.
func applyDescriptive(text string) string {
	for _, d := range descriptive {
		if strings.Contains(text, d.replacement) {
			continue
		}
		idx := wordIndex(text, d.term)
		if idx < 0 {
			continue
		}
		rest := text[idx+len(d.term):]
		if startsCapitalised(rest) {
			continue
		}
		return text[:idx] + d.replacement + rest
	}
	return text
}

func wordIndex(text, term string) int {
	from := 0
	for {
		i := strings.Index(text[from:], term)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(term)
		beforeOK := i == 0 || !isWordRune(rune(text[i-1]))
		afterOK := end == len(text) || !isWordRune(rune(text[end]))
		if beforeOK && afterOK {
			return i
		}
		from = i + 1
	}
}

func startsCapitalised(rest string) bool {
	trimmed := strings.TrimLeft(rest, " ")
	if trimmed == "" || len(trimmed) == len(rest) {
		return false
	}
	return unicode.IsUpper(rune(trimmed[0]))
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func containsAll(text string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}
