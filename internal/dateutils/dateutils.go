// Package dateutils provides the date parsing and calendar helpers used by
// the normalizer, the matching engine and the monthly summary builder.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Common date format constants used throughout the application
const (
	DateLayoutISO     = "2006-01-02"
	DateLayoutUS      = "01/02/2006"
	DateLayoutUSDash  = "01-02-2006"
	DateLayoutShort   = "01/02/06"
	DateLayoutLong    = "January 2, 2006"
	DateLayoutAbbrev  = "Jan 2, 2006"
)

// CommonFormats is the ordered list tried when parsing document dates.
// US month-first layouts come before their day-first counterparts because
// the source documents are US business paperwork; the ambiguity check in
// ParseDate catches the cases where the order would silently matter.
var CommonFormats = []string{
	DateLayoutUS,
	DateLayoutUSDash,
	DateLayoutISO,
	DateLayoutShort,
	"01-02-06",
	DateLayoutLong,
	DateLayoutAbbrev,
	"2 January 2006",
	"02 Jan 2006",
	"2006/01/02",
	// Day-first fallbacks. These only win when the day exceeds 12, which is
	// exactly when the string cannot be month-first.
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
}

// dayFirstAlternates maps a month-first layout to its day-first counterpart.
// When both parse a given string to different calendar dates the string is
// genuinely ambiguous.
var dayFirstAlternates = map[string]string{
	DateLayoutUS:     "02/01/2006",
	DateLayoutUSDash: "02-01-2006",
	DateLayoutShort:  "02/01/06",
	"01-02-06":       "02-01-06",
}

// ParseDate parses a date string against CommonFormats in order.
//
// The returned ambiguous flag is true when the matched layout was
// month-first, the day-first reading of the same string is also a valid
// calendar date, and the two readings disagree, e.g. "03/04/2024". Callers
// treat the month-first reading as authoritative but route the document to
// review. "13/04/2024" is not ambiguous: only the day-first reading is valid.
func ParseDate(dateStr string) (parsed time.Time, ambiguous bool, err error) {
	cleaned := CleanDateString(dateStr)
	if cleaned == "" {
		return time.Time{}, false, fmt.Errorf("empty date")
	}

	for _, format := range CommonFormats {
		t, parseErr := time.Parse(format, cleaned)
		if parseErr != nil {
			continue
		}
		if alt, ok := dayFirstAlternates[format]; ok {
			if altT, altErr := time.Parse(alt, cleaned); altErr == nil && !altT.Equal(t) {
				return t, true, nil
			}
		}
		return t, false, nil
	}

	return time.Time{}, false, fmt.Errorf("unable to parse date: %s", dateStr)
}

// CleanDateString trims and collapses whitespace in a date string.
func CleanDateString(dateStr string) string {
	dateStr = strings.TrimSpace(dateStr)
	re := regexp.MustCompile(`\s+`)
	return re.ReplaceAllString(dateStr, " ")
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD).
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

// DayDistance returns the absolute number of whole days between two dates,
// ignoring the time component.
func DayDistance(a, b time.Time) int {
	a = Midnight(a)
	b = Midnight(b)
	d := int(a.Sub(b).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}

// Midnight truncates a time to its UTC calendar date.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two times fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return Midnight(a).Equal(Midnight(b))
}

// StartOfMonth returns the first day of the month for a given date.
func StartOfMonth(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
}

// EndOfMonth returns the last day of the month for a given date.
func EndOfMonth(date time.Time) time.Time {
	return StartOfMonth(date).AddDate(0, 1, -1)
}

// MonthRange returns the first and last day of a given year and month.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

// CompareDates compares two dates by calendar day and returns -1, 0 or 1.
func CompareDates(date1, date2 time.Time) int {
	date1 = Midnight(date1)
	date2 = Midnight(date2)

	switch {
	case date1.Before(date2):
		return -1
	case date1.After(date2):
		return 1
	default:
		return 0
	}
}
