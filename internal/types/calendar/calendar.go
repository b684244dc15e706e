package calendar

type CalendarDay struct {
	Date    string `json:"date"`
	Active  bool   `json:"active"`
	Count   int    `json:"count"`
	IsToday bool   `json:"is_today"`
}

type MonthActivity struct {
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Label      string `json:"label"`
	ActiveDays int    `json:"active_days"`
	TotalDays  int    `json:"total_days"`
}

type YearCalendar struct {
	Year   int              `json:"year"`
	Months []*MonthActivity `json:"months"`
}
