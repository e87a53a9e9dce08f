package repository_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"safespace/internal/models"
	"safespace/internal/repository"
	"safespace/internal/testhelpers"
)

func TestExtensionStateRepository_Settings(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	repo := repository.NewExtensionStateRepository(db, zap.NewNop())
	ctx := context.Background()

	settings, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultExtensionSettings(), settings)

	sensitivity := models.SensitivityHigh
	autoHide := true
	updated, err := repo.UpdateSettings(ctx, &models.SettingsPatch{
		Sensitivity: &sensitivity,
		AutoHide:    &autoHide,
	})
	require.NoError(t, err)

	want := models.DefaultExtensionSettings()
	want.Sensitivity = models.SensitivityHigh
	want.AutoHide = true
	assert.Equal(t, want, updated)

	reloaded, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, reloaded)

	unchanged, err := repo.UpdateSettings(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, want, unchanged)
}

func TestExtensionStateRepository_Stats(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	repo := repository.NewExtensionStateRepository(db, zap.NewNop())
	ctx := context.Background()

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.ScansCompleted)
	assert.Nil(t, stats.LastScan)

	stats, err = repo.IncrementStat(ctx, repository.StatScan)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ScansCompleted)
	assert.NotNil(t, stats.LastScan)

	stats, err = repo.IncrementStat(ctx, repository.StatThreat)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ThreatsBlocked)
	assert.Equal(t, int64(1), stats.ScansCompleted)

	_, err = repo.IncrementStat(ctx, "clicks")
	assert.ErrorIs(t, err, repository.ErrUnknownStat)
}

func TestExtensionStateRepository_UpdateSettingsQuery(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewExtensionStateRepository(db, zap.NewNop())

	enabled := false
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE extension_settings SET`).
		WithArgs(false, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT enabled, sensitivity, show_popups, auto_hide, scan_interval`).
		WillReturnRows(sqlmock.NewRows([]string{"enabled", "sensitivity", "show_popups", "auto_hide", "scan_interval"}).
			AddRow(false, "medium", true, false, 3000))
	mock.ExpectCommit()

	settings, err := repo.UpdateSettings(context.Background(), &models.SettingsPatch{Enabled: &enabled})
	require.NoError(t, err)
	assert.False(t, settings.Enabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}
