package subjects

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// OrdinalLayout is the 8-digit ordinal date form, e.g. 20180520.
const OrdinalLayout = "20060102"

var nonDateChars = regexp.MustCompile(`[^0-9/:\- ]+`)

// ParseDate parses a date month-first in UTC. A first field that cannot be a
// month is read as the day, so "13/5/18" is 13 May 2018.
func ParseDate(text string) (time.Time, error) {
	t, err := dateparse.ParseIn(strings.TrimSpace(text), time.UTC, dateparse.RetryAmbiguousDateWithSwap(true))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", text, err)
	}
	return t, nil
}

// ParseFuzzyDate parses like ParseDate, and on failure retries with every
// character that cannot belong to a date dropped.
func ParseFuzzyDate(text string) (time.Time, error) {
	t, err := ParseDate(text)
	if err == nil {
		return t, nil
	}
	cleaned := strings.Join(strings.Fields(nonDateChars.ReplaceAllString(text, " ")), " ")
	if cleaned == "" || cleaned == text {
		return time.Time{}, err
	}
	return ParseDate(cleaned)
}

// FullYearsBetween counts whole calendar years from start to end, truncated
// toward zero.
func FullYearsBetween(start, end time.Time) int {
	if end.Before(start) {
		return -FullYearsBetween(end, start)
	}
	years := end.Year() - start.Year()
	anniversary := start.AddDate(years, 0, 0)
	// Feb 29 rolls into Mar 1 in non-leap years
	if start.Month() == time.February && start.Day() == 29 && anniversary.Month() == time.March {
		anniversary = anniversary.AddDate(0, 0, -1)
	}
	if anniversary.After(end) {
		years--
	}
	return years
}

// DaysBetween is the whole number of days from start to end, rounded down.
func DaysBetween(start, end time.Time) int {
	const day = 24 * time.Hour
	d := end.Sub(start)
	days := int(d / day)
	if d < 0 && d%day != 0 {
		days--
	}
	return days
}
