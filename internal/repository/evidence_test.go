package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"safespace/internal/models"
	"safespace/internal/repository"
	"safespace/internal/testhelpers"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestEvidenceRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewEvidenceRepository(db, zap.NewNop())

	mock.ExpectQuery(`INSERT INTO evidence \(type, encrypted_content, metadata, created_at\)`).
		WithArgs("text", "RU5DUllQVEVEOmhp", `{"size":"16 bytes"}`, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	ev, err := repo.Create(context.Background(), &models.CreateEvidenceInput{
		Type:             models.EvidenceTypeText,
		EncryptedContent: "RU5DUllQVEVEOmhp",
		Metadata:         models.EvidenceMetadata{Size: "16 bytes"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(42), ev.ID)
	assert.Equal(t, "16 bytes", ev.Metadata.Size)
	assert.WithinDuration(t, time.Now(), ev.CreatedAt, time.Minute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvidenceRepository_DeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewEvidenceRepository(db, zap.NewNop())

	mock.ExpectExec(`DELETE FROM evidence WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvidenceRepository_ListError(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewEvidenceRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT id, type, encrypted_content, metadata, created_at`).
		WillReturnError(sql.ErrConnDone)

	_, err := repo.List(context.Background())
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestEvidenceRepository_SQLite(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	repo := repository.NewEvidenceRepository(db, zap.NewNop())
	ctx := context.Background()

	first, err := repo.Create(ctx, &models.CreateEvidenceInput{
		Type:             models.EvidenceTypeText,
		EncryptedContent: "first",
		Metadata:         models.EvidenceMetadata{Size: "5 bytes"},
	})
	require.NoError(t, err)
	second, err := repo.Create(ctx, &models.CreateEvidenceInput{
		Type:             models.EvidenceTypeScreenshot,
		EncryptedContent: "second",
		Metadata:         models.EvidenceMetadata{Size: "6 bytes", OriginalName: "shot.png"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, "shot.png", list[0].Metadata.OriginalName)
	assert.Equal(t, first.ID, list[1].ID)

	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), repository.ErrNotFound)

	removed, err := repo.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEvidenceRepository_Get(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	repo := repository.NewEvidenceRepository(db, zap.NewNop())
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.CreateEvidenceInput{
		Type:             models.EvidenceTypeScreenshot,
		EncryptedContent: "aW1hZ2U=",
		Metadata:         models.EvidenceMetadata{Size: "8 bytes", OriginalName: "chat.png"},
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "aW1hZ2U=", got.EncryptedContent)
	assert.Equal(t, "chat.png", got.Metadata.OriginalName)

	_, err = repo.Get(ctx, created.ID+1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestEvidenceRepository_GetError(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewEvidenceRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT id, type, encrypted_content, metadata, created_at FROM evidence WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnError(sql.ErrConnDone)

	_, err := repo.Get(context.Background(), 3)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
