package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	monthYearRe      = regexp.MustCompile(`^(\d{1,2})[/\-](\d{4})$`)
	monthShortYearRe = regexp.MustCompile(`^(\d{1,2})[/\-](\d{2})$`)
	isoDateRe        = regexp.MustCompile(`^(\d{4})[/\-](\d{1,2})[/\-](\d{1,2})$`)
	bareYearRe       = regexp.MustCompile(`(20\d{2}|19\d{2})`)
)

// layouts tried when the text is not one of the explicit forms
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"Jan 2006",
	"January 2006",
}

// ParseExpiry reads the expiry text printed on supplier invoices:
//   - "MM/YYYY" or "MM-YYYY": last day of that month
//   - "YYYY-MM-DD" (or with slashes)
//   - a handful of common date layouts
//   - any 4-digit year 19xx/20xx in the text: December 31 of that year
//
// All results are UTC midnight. ok is false when nothing matched.
func ParseExpiry(text string) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, false
	}

	if m := monthYearRe.FindStringSubmatch(s); m != nil {
		mm, _ := strconv.Atoi(m[1])
		yyyy, _ := strconv.Atoi(m[2])
		if mm >= 1 && mm <= 12 {
			return endOfMonth(yyyy, time.Month(mm)), true
		}
	}

	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		if t.Year() == y && int(t.Month()) == mo && t.Day() == d {
			return t, true
		}
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, mo, d := t.Date()
			return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC), true
		}
	}

	if m := bareYearRe.FindString(s); m != "" {
		y, _ := strconv.Atoi(m)
		return time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC), true
	}

	return time.Time{}, false
}

// ParseOCRExpiry is ParseExpiry plus the "MM/YY" form common on blister strips
func ParseOCRExpiry(text string) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if m := monthShortYearRe.FindStringSubmatch(s); m != nil {
		mm, _ := strconv.Atoi(m[1])
		yy, _ := strconv.Atoi(m[2])
		if mm >= 1 && mm <= 12 {
			return endOfMonth(2000+yy, time.Month(mm)), true
		}
	}
	return ParseExpiry(s)
}

func endOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}

// monthBounds returns the first and last instant of t's calendar month
func monthBounds(t time.Time) (time.Time, time.Time) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, 0).Add(-time.Nanosecond)
}
