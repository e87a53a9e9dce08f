package models

// DailyAnalytics holds the aggregate counters for a single day.
type DailyAnalytics struct {
	Date       string         `json:"date" db:"date"`
	ToxicCount int            `json:"toxicCount" db:"toxic_count"`
	SafeCount  int            `json:"safeCount" db:"safe_count"`
	Categories map[string]int `json:"categories" db:"-"`
}

// NewDailyAnalytics returns a zeroed row for date.
func NewDailyAnalytics(date string) *DailyAnalytics {
	return &DailyAnalytics{Date: date, Categories: map[string]int{}}
}

// CategoryCount is a single per-day category counter row.
type CategoryCount struct {
	Date     string `db:"date"`
	Category string `db:"category"`
	Count    int    `db:"event_count"`
}
