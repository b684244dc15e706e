package stats

import (
	"math"
	"strings"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// Day is a calendar day counted from 1970-01-01. Two timestamps fall on the
// same day when they map to the same Day in the Calendar's location.
type Day int64

// InvalidDay marks input that could not be parsed.
const InvalidDay Day = math.MinInt64

func (d Day) Valid() bool {
	return d != InvalidDay
}

// Date returns the civil year, month and day.
func (d Day) Date() (int, time.Month, int) {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC().Date()
}

func (d Day) Year() int {
	y, _, _ := d.Date()
	return y
}

func (d Day) String() string {
	if !d.Valid() {
		return "invalid"
	}
	return time.Unix(int64(d)*secondsPerDay, 0).UTC().Format(time.DateOnly)
}

// DayFromDate builds a Day from a civil date. Out of range months and days
// are normalized the same way time.Date does.
func DayFromDate(year int, month time.Month, day int) Day {
	return Day(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay)
}

type layout struct {
	value string
	zoned bool
}

var layouts = []layout{
	{time.DateOnly, false},
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05-0700", true},
	{"2006-01-02T15:04:05", false},
	{time.DateTime, false},
}

// Calendar resolves timestamps to days in a single location and owns the
// clock every "today" computation reads.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

func NewCalendar(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{loc: loc, now: time.Now}
}

// WithClock returns a copy of the calendar reading time from now.
func (c *Calendar) WithClock(now func() time.Time) *Calendar {
	return &Calendar{loc: c.loc, now: now}
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

func (c *Calendar) Today() Day {
	return c.DayOf(c.now())
}

func (c *Calendar) DayOf(t time.Time) Day {
	y, m, d := t.In(c.loc).Date()
	return DayFromDate(y, m, d)
}

// Parse maps a date or timestamp string to its Day. Date-only values keep
// their civil date; zoned timestamps are converted into the calendar's
// location first; zoneless timestamps are read as local to it. Anything
// else is InvalidDay.
func (c *Calendar) Parse(s string) Day {
	s = strings.TrimSpace(s)
	if s == "" {
		return InvalidDay
	}

	for _, l := range layouts {
		if l.zoned {
			t, err := time.Parse(l.value, s)
			if err == nil {
				return c.DayOf(t)
			}
			continue
		}

		t, err := time.ParseInLocation(l.value, s, c.loc)
		if err == nil {
			y, m, d := t.Date()
			return DayFromDate(y, m, d)
		}
	}

	return InvalidDay
}

// ParseAll parses every input and drops the invalid ones.
func (c *Calendar) ParseAll(values []string) []Day {
	days := make([]Day, 0, len(values))
	for _, v := range values {
		if d := c.Parse(v); d.Valid() {
			days = append(days, d)
		}
	}
	return days
}
