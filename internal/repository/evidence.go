package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"safespace/internal/models"
)

// EvidenceRepository defines the interface for evidence storage.
type EvidenceRepository interface {
	Create(ctx context.Context, input *models.CreateEvidenceInput) (*models.Evidence, error)
	Get(ctx context.Context, id int64) (*models.Evidence, error)
	List(ctx context.Context) ([]*models.Evidence, error)
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context) (int64, error)
}

type evidenceRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewEvidenceRepository creates a new evidence repository.
func NewEvidenceRepository(db *sqlx.DB, logger *zap.Logger) EvidenceRepository {
	return &evidenceRepository{
		db:     db,
		logger: logger,
	}
}

func (r *evidenceRepository) Create(ctx context.Context, input *models.CreateEvidenceInput) (*models.Evidence, error) {
	evidence := &models.Evidence{
		Type:             input.Type,
		EncryptedContent: input.EncryptedContent,
		Metadata:         input.Metadata,
		CreatedAt:        time.Now().UTC().Truncate(time.Microsecond),
	}

	query := r.db.Rebind(`
		INSERT INTO evidence (type, encrypted_content, metadata, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)

	err := r.db.QueryRowxContext(ctx, query,
		evidence.Type,
		evidence.EncryptedContent,
		evidence.Metadata,
		evidence.CreatedAt,
	).Scan(&evidence.ID)
	if err != nil {
		r.logger.Error("Failed to create evidence", zap.Error(err))
		return nil, err
	}

	return evidence, nil
}

func (r *evidenceRepository) Get(ctx context.Context, id int64) (*models.Evidence, error) {
	var evidence models.Evidence
	query := r.db.Rebind(`
		SELECT id, type, encrypted_content, metadata, created_at
		FROM evidence
		WHERE id = ?
	`)

	if err := r.db.GetContext(ctx, &evidence, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get evidence", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &evidence, nil
}

func (r *evidenceRepository) List(ctx context.Context) ([]*models.Evidence, error) {
	evidence := []*models.Evidence{}
	query := `
		SELECT id, type, encrypted_content, metadata, created_at
		FROM evidence
		ORDER BY created_at DESC, id DESC
	`

	if err := r.db.SelectContext(ctx, &evidence, query); err != nil {
		r.logger.Error("Failed to list evidence", zap.Error(err))
		return nil, err
	}

	return evidence, nil
}

func (r *evidenceRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM evidence WHERE id = ?`), id)
	if err != nil {
		r.logger.Error("Failed to delete evidence", zap.Int64("id", id), zap.Error(err))
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *evidenceRepository) Clear(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM evidence`)
	if err != nil {
		r.logger.Error("Failed to clear evidence", zap.Error(err))
		return 0, err
	}
	return result.RowsAffected()
}
