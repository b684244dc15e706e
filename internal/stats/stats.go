package stats

import "selfAPI/internal/types/calendar"

type Summary struct {
	Collection       string                  `json:"collection"`
	Total            int                     `json:"total"`
	TodayStatus      bool                    `json:"today_status"`
	DaysThisWeek     int                     `json:"days_this_week"`
	DaysThisMonth    int                     `json:"days_this_month"`
	CurrentStreak    int                     `json:"current_streak"`
	LongestStreak    int                     `json:"longest_streak"`
	Yearly           YearlyStats             `json:"yearly"`
	YearlyComparison []YearCount             `json:"yearly_comparison"`
	Monthly          []MonthCount            `json:"monthly"`
	Last7Days        []*calendar.CalendarDay `json:"last_7_days"`
	Last30Days       []*calendar.CalendarDay `json:"last_30_days"`
	Calendar         *calendar.YearCalendar  `json:"calendar"`
}

// Summarize computes every statistic shown for one collection. Total counts
// raw entries, including ones whose date failed to parse.
func (c *Calendar) Summarize(collection string, dates []string) *Summary {
	today := c.Today()
	days := c.ParseAll(dates)

	s := &Summary{
		Collection:       collection,
		Total:            len(dates),
		CurrentStreak:    ComputeStreak(days, today),
		LongestStreak:    LongestStreak(days),
		Yearly:           c.YearlyStats(dates),
		YearlyComparison: c.YearlyComparison(dates),
		Monthly:          c.MonthlyBreakdown(dates),
		Last7Days:        c.ActivityGrid(dates, 7),
		Last30Days:       c.ActivityGrid(dates, 30),
		Calendar:         c.MonthGrid(dates, today.Year()),
	}

	ty, tm, _ := today.Date()
	seen := make(map[Day]struct{})
	for _, d := range days {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}

		if d == today {
			s.TodayStatus = true
		}
		if d <= today && today-d < 7 {
			s.DaysThisWeek++
		}
		if y, m, _ := d.Date(); y == ty && m == tm {
			s.DaysThisMonth++
		}
	}

	return s
}
