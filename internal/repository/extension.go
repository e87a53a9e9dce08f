package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"safespace/internal/models"
)

// Extension stat names.
const (
	StatScan   = "scan"
	StatThreat = "threat"
)

var ErrUnknownStat = errors.New("unknown stat")

// ExtensionStateRepository stores the extension's single settings row and
// activity counters.
type ExtensionStateRepository interface {
	GetSettings(ctx context.Context) (models.ExtensionSettings, error)
	UpdateSettings(ctx context.Context, patch *models.SettingsPatch) (models.ExtensionSettings, error)
	GetStats(ctx context.Context) (*models.ExtensionStats, error)
	IncrementStat(ctx context.Context, stat string) (*models.ExtensionStats, error)
}

type extensionStateRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewExtensionStateRepository creates a new extension state repository.
func NewExtensionStateRepository(db *sqlx.DB, logger *zap.Logger) ExtensionStateRepository {
	return &extensionStateRepository{
		db:     db,
		logger: logger,
	}
}

const selectSettings = `
	SELECT enabled, sensitivity, show_popups, auto_hide, scan_interval
	FROM extension_settings
	WHERE id = 1
`

const selectStats = `
	SELECT threats_blocked, scans_completed, last_scan
	FROM extension_stats
	WHERE id = 1
`

func (r *extensionStateRepository) GetSettings(ctx context.Context) (models.ExtensionSettings, error) {
	var settings models.ExtensionSettings
	err := r.db.GetContext(ctx, &settings, selectSettings)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultExtensionSettings(), nil
	}
	if err != nil {
		r.logger.Error("Failed to get extension settings", zap.Error(err))
		return settings, err
	}
	return settings, nil
}

func (r *extensionStateRepository) UpdateSettings(ctx context.Context, patch *models.SettingsPatch) (models.ExtensionSettings, error) {
	var settings models.ExtensionSettings
	if patch == nil {
		patch = &models.SettingsPatch{}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return settings, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		UPDATE extension_settings SET
			enabled = COALESCE(?, enabled),
			sensitivity = COALESCE(?, sensitivity),
			show_popups = COALESCE(?, show_popups),
			auto_hide = COALESCE(?, auto_hide),
			scan_interval = COALESCE(?, scan_interval)
		WHERE id = 1
	`), patch.Enabled, patch.Sensitivity, patch.ShowPopups, patch.AutoHide, patch.ScanInterval)
	if err != nil {
		r.logger.Error("Failed to update extension settings", zap.Error(err))
		return settings, err
	}

	if err := tx.GetContext(ctx, &settings, selectSettings); err != nil {
		return settings, err
	}

	if err := tx.Commit(); err != nil {
		return settings, fmt.Errorf("failed to commit settings update: %w", err)
	}
	return settings, nil
}

func (r *extensionStateRepository) GetStats(ctx context.Context) (*models.ExtensionStats, error) {
	stats := &models.ExtensionStats{}
	err := r.db.GetContext(ctx, stats, selectStats)
	if errors.Is(err, sql.ErrNoRows) {
		return stats, nil
	}
	if err != nil {
		r.logger.Error("Failed to get extension stats", zap.Error(err))
		return nil, err
	}
	return stats, nil
}

func (r *extensionStateRepository) IncrementStat(ctx context.Context, stat string) (*models.ExtensionStats, error) {
	var query string
	var args []interface{}
	switch stat {
	case StatScan:
		query = `UPDATE extension_stats SET scans_completed = scans_completed + 1, last_scan = ? WHERE id = 1`
		args = append(args, time.Now().UTC().Truncate(time.Microsecond))
	case StatThreat:
		query = `UPDATE extension_stats SET threats_blocked = threats_blocked + 1 WHERE id = 1`
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStat, stat)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		r.logger.Error("Failed to increment extension stat", zap.String("stat", stat), zap.Error(err))
		return nil, err
	}

	stats := &models.ExtensionStats{}
	if err := tx.GetContext(ctx, stats, selectStats); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit stat increment: %w", err)
	}
	return stats, nil
}
