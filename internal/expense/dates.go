package expense

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// ErrInvalidDate is returned for input that is not a real DD MM YYYY date.
var ErrInvalidDate = errors.New("expense: invalid date")

// manualLayout accepts one or two digit day and month and a four digit year.
const manualLayout = "2 1 2006"

// ParseDate parses "DD MM YYYY" in loc. Runs of whitespace between fields are tolerated.
func ParseDate(text string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, text)
	}
	t, err := time.ParseInLocation(manualLayout, strings.Join(fields, " "), loc)
	// year 0000 parses but is not a calendar date
	if err != nil || t.Year() < 1 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, text)
	}
	return t, nil
}

// looksLikeDate reports whether text is three groups of digits.
func looksLikeDate(text string) bool {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return false
	}
	for _, f := range fields {
		for _, r := range f {
			if !unicode.IsDigit(r) {
				return false
			}
		}
	}
	return true
}

// Clock supplies "today" in the configured timezone.
type Clock struct {
	Now func() time.Time
	Loc *time.Location
}

// Today returns midnight of the current day in the clock's location.
func (c Clock) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Loc
	if loc == nil {
		loc = time.Local
	}
	y, m, d := now().In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Yesterday returns the calendar day before Today.
func (c Clock) Yesterday() time.Time {
	return c.Today().AddDate(0, 0, -1)
}
