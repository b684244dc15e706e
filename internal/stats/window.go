package stats

import "selfAPI/internal/types/calendar"

// LastNDays returns n contiguous days ending today, oldest first.
func (c *Calendar) LastNDays(n int) []Day {
	if n <= 0 {
		return []Day{}
	}

	today := c.Today()
	days := make([]Day, n)
	for i := range days {
		days[i] = today - Day(n-1-i)
	}
	return days
}

// ActivityGrid marks each of the last n days with the number of entries
// that fall on it.
func (c *Calendar) ActivityGrid(dates []string, n int) []*calendar.CalendarDay {
	counts := make(map[Day]int)
	for _, d := range c.ParseAll(dates) {
		counts[d]++
	}

	window := c.LastNDays(n)
	grid := make([]*calendar.CalendarDay, 0, len(window))
	for i, d := range window {
		grid = append(grid, &calendar.CalendarDay{
			Date:    d.String(),
			Active:  counts[d] > 0,
			Count:   counts[d],
			IsToday: i == len(window)-1,
		})
	}

	return grid
}
