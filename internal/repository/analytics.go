package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"safespace/internal/models"
)

// AnalyticsRepository stores per-day counters.
type AnalyticsRepository interface {
	// Increment atomically bumps the counters for date and returns the updated row.
	// A non-empty category is only counted for toxic events.
	Increment(ctx context.Context, date, category string, isToxic bool) (*models.DailyAnalytics, error)
	// Range returns the stored rows with start <= date <= end, ordered by date.
	Range(ctx context.Context, start, end string) ([]*models.DailyAnalytics, error)
}

type analyticsRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewAnalyticsRepository creates a new analytics repository.
func NewAnalyticsRepository(db *sqlx.DB, logger *zap.Logger) AnalyticsRepository {
	return &analyticsRepository{
		db:     db,
		logger: logger,
	}
}

func (r *analyticsRepository) Increment(ctx context.Context, date, category string, isToxic bool) (*models.DailyAnalytics, error) {
	toxic, safe := 0, 1
	if isToxic {
		toxic, safe = 1, 0
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO daily_analytics (date, toxic_count, safe_count)
		VALUES (?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			toxic_count = daily_analytics.toxic_count + excluded.toxic_count,
			safe_count = daily_analytics.safe_count + excluded.safe_count
	`), date, toxic, safe)
	if err != nil {
		r.logger.Error("Failed to increment daily analytics", zap.String("date", date), zap.Error(err))
		return nil, err
	}

	if isToxic && category != "" {
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO daily_analytics_categories (date, category, event_count)
			VALUES (?, ?, 1)
			ON CONFLICT (date, category) DO UPDATE SET
				event_count = daily_analytics_categories.event_count + 1
		`), date, category)
		if err != nil {
			r.logger.Error("Failed to increment category count",
				zap.String("date", date),
				zap.String("category", category),
				zap.Error(err),
			)
			return nil, err
		}
	}

	row := models.NewDailyAnalytics(date)
	err = tx.GetContext(ctx, row, tx.Rebind(`
		SELECT date, toxic_count, safe_count FROM daily_analytics WHERE date = ?
	`), date)
	if err != nil {
		return nil, err
	}

	var counts []models.CategoryCount
	err = tx.SelectContext(ctx, &counts, tx.Rebind(`
		SELECT date, category, event_count FROM daily_analytics_categories WHERE date = ?
	`), date)
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		row.Categories[c.Category] = c.Count
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit analytics increment: %w", err)
	}

	return row, nil
}

func (r *analyticsRepository) Range(ctx context.Context, start, end string) ([]*models.DailyAnalytics, error) {
	var rows []*models.DailyAnalytics
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT date, toxic_count, safe_count
		FROM daily_analytics
		WHERE date >= ? AND date <= ?
		ORDER BY date
	`), start, end)
	if err != nil {
		r.logger.Error("Failed to query daily analytics", zap.Error(err))
		return nil, err
	}

	var counts []models.CategoryCount
	err = r.db.SelectContext(ctx, &counts, r.db.Rebind(`
		SELECT date, category, event_count
		FROM daily_analytics_categories
		WHERE date >= ? AND date <= ?
	`), start, end)
	if err != nil {
		r.logger.Error("Failed to query category counts", zap.Error(err))
		return nil, err
	}

	byDate := make(map[string]*models.DailyAnalytics, len(rows))
	for _, row := range rows {
		row.Categories = map[string]int{}
		byDate[row.Date] = row
	}
	for _, c := range counts {
		if row, ok := byDate[c.Date]; ok {
			row.Categories[c.Category] = c.Count
		}
	}

	return rows, nil
}
