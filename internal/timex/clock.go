package timex

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Day is the period of a recurring reminder.
const Day = 24 * time.Hour

// Clock is a wall-clock time of day with minute precision and no date.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock accepts 24-hour "H:MM" or "HH:MM".
func ParseClock(s string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) == 0 || len(h) > 2 || len(m) != 2 {
		return Clock{}, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}

	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("invalid minute in %q", s)
	}

	return Clock{Hour: hour, Minute: minute}, nil
}

// String renders the canonical zero-padded "HH:MM" form.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns c on the calendar day of t, in t's location.
func (c Clock) On(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, c.Hour, c.Minute, 0, 0, t.Location())
}

// Next returns the first occurrence of c strictly after now. A time of day
// equal to now counts as already passed and rolls over to tomorrow.
func (c Clock) Next(now time.Time) time.Time {
	target := c.On(now)
	if !target.After(now) {
		target = c.On(now.AddDate(0, 0, 1))
	}
	return target
}

// Until is the delay from now to Next(now). It is always positive.
func (c Clock) Until(now time.Time) time.Duration {
	return c.Next(now).Sub(now)
}
