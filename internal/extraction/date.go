package extraction

import (
	"fmt"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

// DateLocale is one vocabulary the date parser tries month names in, plus
// the short date layout used as a last resort for that locale.
type DateLocale struct {
	Locale      monday.Locale
	ShortLayout string
}

// DefaultDateLayouts is the ordered list of layouts tried for every date
// candidate. Ambiguous numeric dates resolve to whichever layout comes
// first: slashes read month-first, dashes read day-first.
var DefaultDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"01-02-2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"Jan 02 2006",
	"Jan 2, 2006",
	"2 Jan, 2006",
	"January 2 2006",
	"January 2, 2006",
	"2 January 2006",
	"2006.01.02",
	"02.01.2006",
	"01/02/06",
	"02/01/06",
	"01-02-06",
	"02-01-06",
	"Jan 2 06",
	"2 Jan 06",
}

// DefaultDateLocales lists the month-name vocabularies tried for each layout.
var DefaultDateLocales = []DateLocale{
	{Locale: monday.LocaleEnUS, ShortLayout: "1/2/06"},
	{Locale: monday.LocaleEnGB, ShortLayout: "02/01/2006"},
	{Locale: monday.LocaleFrFR, ShortLayout: "02/01/2006"},
	{Locale: monday.LocaleDeDE, ShortLayout: "02.01.06"},
	{Locale: monday.LocaleEsES, ShortLayout: "2/1/06"},
}

// DateParser interprets date substrings against layout and locale candidates
type DateParser struct {
	layouts []string
	locales []DateLocale
}

// NewDateParser creates a DateParser. Layouts are the outer loop and locales
// the inner one, so every locale gets a chance at a layout before the next
// layout is tried.
func NewDateParser(layouts []string, locales []DateLocale) *DateParser {
	return &DateParser{layouts: layouts, locales: locales}
}

// Parse returns the calendar date (UTC midnight) of the first layout/locale
// combination that accepts s.
func (p *DateParser) Parse(s string) (time.Time, error) {
	value := strings.TrimSpace(s)
	value = strings.TrimSpace(strings.TrimRight(value, ","))
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrUnparseable)
	}

	for _, layout := range p.layouts {
		for _, loc := range p.locales {
			if t, err := monday.ParseInLocation(layout, value, time.UTC, loc.Locale); err == nil {
				return dateOnly(t), nil
			}
		}
	}

	for _, loc := range p.locales {
		if loc.ShortLayout == "" {
			continue
		}
		if t, err := monday.ParseInLocation(loc.ShortLayout, value, time.UTC, loc.Locale); err == nil {
			return dateOnly(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: date %q", ErrUnparseable, s)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
