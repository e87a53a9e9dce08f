package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"safespace/internal/classifier"
	"safespace/internal/models"
	"safespace/internal/repository"
	"safespace/internal/telemetry"
)

const (
	// DateLayout is the format of analytics day keys.
	DateLayout = "2006-01-02"
	// OtherCategory is recorded for toxic events without a category.
	OtherCategory = "other"

	maxRangeDays = 366
	weekDays     = 7
)

var ErrInvalidRange = errors.New("invalid date range")

// WeeklyPoint is a single day of the weekly chart.
type WeeklyPoint struct {
	Day   string `json:"day"`
	Toxic int    `json:"toxic"`
	Safe  int    `json:"safe"`
}

// CategoryTotal is a category's event count over a period.
type CategoryTotal struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// WeeklySummary is the seven-day analytics view.
type WeeklySummary struct {
	WeeklyData   []WeeklyPoint   `json:"weeklyData"`
	CategoryData []CategoryTotal `json:"categoryData"`
}

// AnalyticsService aggregates classification outcomes into daily counters.
type AnalyticsService interface {
	// RecordEvent counts one classification outcome against date.
	RecordEvent(ctx context.Context, date, category string, isToxic bool) (*models.DailyAnalytics, error)
	// RecordResult counts a classifier result against the day containing now.
	RecordResult(ctx context.Context, now time.Time, result classifier.Result) (*models.DailyAnalytics, error)
	// RangeQuery returns one zero-filled entry per day in [start, end].
	RangeQuery(ctx context.Context, start, end string) ([]*models.DailyAnalytics, error)
	// Weekly summarizes the seven days ending on the day containing now.
	Weekly(ctx context.Context, now time.Time) (*WeeklySummary, error)
	// Today returns the counters for the current day.
	Today(ctx context.Context) (*models.DailyAnalytics, error)
	// DayKey formats t as a day key in the service's timezone.
	DayKey(t time.Time) string
}

type analyticsService struct {
	repo    repository.AnalyticsRepository
	loc     *time.Location
	metrics *telemetry.Metrics
	logger  *zap.Logger
}

// NewAnalyticsService creates an analytics service computing day keys in loc.
// A nil loc means UTC.
func NewAnalyticsService(repo repository.AnalyticsRepository, loc *time.Location, metrics *telemetry.Metrics, logger *zap.Logger) AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &analyticsService{
		repo:    repo,
		loc:     loc,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *analyticsService) DayKey(t time.Time) string {
	return t.In(s.loc).Format(DateLayout)
}

func (s *analyticsService) RecordEvent(ctx context.Context, date, category string, isToxic bool) (*models.DailyAnalytics, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidRange, date)
	}

	category = strings.TrimSpace(category)
	if !isToxic {
		category = ""
	} else if category == "" {
		category = OtherCategory
	}

	row, err := s.repo.Increment(ctx, date, category, isToxic)
	if err != nil {
		return nil, fmt.Errorf("failed to record analytics event: %w", err)
	}

	s.metrics.RecordAnalyticsEvent(isToxic)
	return row, nil
}

func (s *analyticsService) RecordResult(ctx context.Context, now time.Time, result classifier.Result) (*models.DailyAnalytics, error) {
	return s.RecordEvent(ctx, s.DayKey(now), result.PrimaryCategory, result.IsToxic)
}

func (s *analyticsService) RangeQuery(ctx context.Context, start, end string) ([]*models.DailyAnalytics, error) {
	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("%w: bad start date %q", ErrInvalidRange, start)
	}
	to, err := time.Parse(DateLayout, end)
	if err != nil {
		return nil, fmt.Errorf("%w: bad end date %q", ErrInvalidRange, end)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange, end, start)
	}
	days := int(to.Sub(from).Hours()/24) + 1
	if days > maxRangeDays {
		return nil, fmt.Errorf("%w: %d days exceeds the %d day limit", ErrInvalidRange, days, maxRangeDays)
	}

	stored, err := s.repo.Range(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics: %w", err)
	}

	byDate := make(map[string]*models.DailyAnalytics, len(stored))
	for _, row := range stored {
		byDate[row.Date] = row
	}

	result := make([]*models.DailyAnalytics, 0, days)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(DateLayout)
		row, ok := byDate[key]
		if !ok {
			row = models.NewDailyAnalytics(key)
		}
		if row.Categories == nil {
			row.Categories = map[string]int{}
		}
		result = append(result, row)
	}

	return result, nil
}

func (s *analyticsService) Weekly(ctx context.Context, now time.Time) (*WeeklySummary, error) {
	today := now.In(s.loc)
	end := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -(weekDays - 1))

	rows, err := s.RangeQuery(ctx, start.Format(DateLayout), end.Format(DateLayout))
	if err != nil {
		return nil, err
	}

	summary := &WeeklySummary{
		WeeklyData:   make([]WeeklyPoint, 0, len(rows)),
		CategoryData: []CategoryTotal{},
	}
	totals := make(map[string]int)
	for _, row := range rows {
		day, _ := time.Parse(DateLayout, row.Date)
		summary.WeeklyData = append(summary.WeeklyData, WeeklyPoint{
			Day:   day.Weekday().String()[:3],
			Toxic: row.ToxicCount,
			Safe:  row.SafeCount,
		})
		for category, count := range row.Categories {
			totals[category] += count
		}
	}

	for category, count := range totals {
		summary.CategoryData = append(summary.CategoryData, CategoryTotal{
			Name:  capitalize(category),
			Value: count,
		})
	}
	sort.Slice(summary.CategoryData, func(i, j int) bool {
		a, b := summary.CategoryData[i], summary.CategoryData[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		return a.Name < b.Name
	})

	return summary, nil
}

func (s *analyticsService) Today(ctx context.Context) (*models.DailyAnalytics, error) {
	key := s.DayKey(time.Now())
	rows, err := s.RangeQuery(ctx, key, key)
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
