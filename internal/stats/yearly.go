package stats

import (
	"cmp"
	"slices"
	"time"

	"selfAPI/internal/types/calendar"
)

const monthsInBreakdown = 6

type YearlyStats struct {
	Year   int `json:"year"`
	Count  int `json:"count"`
	Streak int `json:"streak"`
}

type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// MonthCount is one bucket of the monthly breakdown. Label carries only the
// short month name; Year disambiguates buckets across a year boundary.
type MonthCount struct {
	Label string `json:"label"`
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Count int    `json:"count"`
}

// YearlyStats reports the current year's entry count (duplicates included)
// and the streak computed over that year's days only.
func (c *Calendar) YearlyStats(dates []string) YearlyStats {
	today := c.Today()
	year := today.Year()

	var inYear []Day
	for _, d := range c.ParseAll(dates) {
		if d.Year() == year {
			inYear = append(inYear, d)
		}
	}

	return YearlyStats{
		Year:   year,
		Count:  len(inYear),
		Streak: ComputeStreak(inYear, today),
	}
}

// YearlyComparison counts entries per year, newest year first.
func (c *Calendar) YearlyComparison(dates []string) []YearCount {
	counts := make(map[int]int)
	for _, d := range c.ParseAll(dates) {
		counts[d.Year()]++
	}

	out := make([]YearCount, 0, len(counts))
	for year, count := range counts {
		out = append(out, YearCount{Year: year, Count: count})
	}
	slices.SortFunc(out, func(a, b YearCount) int {
		return cmp.Compare(b.Year, a.Year)
	})

	return out
}

// MonthlyBreakdown returns the six most recent months that have activity,
// oldest first.
func (c *Calendar) MonthlyBreakdown(dates []string) []MonthCount {
	type key struct {
		year  int
		month time.Month
	}

	counts := make(map[key]int)
	for _, d := range c.ParseAll(dates) {
		y, m, _ := d.Date()
		counts[key{y, m}]++
	}

	keys := make([]key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b key) int {
		if a.year != b.year {
			return cmp.Compare(b.year, a.year)
		}
		return cmp.Compare(b.month, a.month)
	})

	if len(keys) > monthsInBreakdown {
		keys = keys[:monthsInBreakdown]
	}
	slices.Reverse(keys)

	out := make([]MonthCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, MonthCount{
			Label: k.month.String()[:3],
			Year:  k.year,
			Month: int(k.month),
			Count: counts[k],
		})
	}

	return out
}

// MonthGrid counts unique active days for each month of year.
func (c *Calendar) MonthGrid(dates []string, year int) *calendar.YearCalendar {
	active := make(map[time.Month]map[Day]struct{})
	for _, d := range c.ParseAll(dates) {
		y, m, _ := d.Date()
		if y != year {
			continue
		}
		if active[m] == nil {
			active[m] = make(map[Day]struct{})
		}
		active[m][d] = struct{}{}
	}

	grid := &calendar.YearCalendar{Year: year, Months: make([]*calendar.MonthActivity, 0, 12)}
	for m := time.January; m <= time.December; m++ {
		first := DayFromDate(year, m, 1)
		next := DayFromDate(year, m+1, 1)
		grid.Months = append(grid.Months, &calendar.MonthActivity{
			Year:       year,
			Month:      int(m),
			Label:      m.String()[:3],
			ActiveDays: len(active[m]),
			TotalDays:  int(next - first),
		})
	}

	return grid
}
