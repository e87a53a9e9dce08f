package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"safespace/internal/models"
)

// ResourceRepository defines the interface for the support resource catalog.
type ResourceRepository interface {
	ListAll(ctx context.Context) ([]*models.Resource, error)
	ListByCategory(ctx context.Context, category string) ([]*models.Resource, error)
	Create(ctx context.Context, input *models.CreateResourceInput) (*models.Resource, error)
	Count(ctx context.Context) (int, error)
}

type resourceRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewResourceRepository creates a new resource repository.
func NewResourceRepository(db *sqlx.DB, logger *zap.Logger) ResourceRepository {
	return &resourceRepository{
		db:     db,
		logger: logger,
	}
}

func (r *resourceRepository) ListAll(ctx context.Context) ([]*models.Resource, error) {
	resources := []*models.Resource{}
	query := `
		SELECT id, title, description, category, action_text, icon, link
		FROM resources
		ORDER BY id
	`

	if err := r.db.SelectContext(ctx, &resources, query); err != nil {
		r.logger.Error("Failed to list resources", zap.Error(err))
		return nil, err
	}

	return resources, nil
}

func (r *resourceRepository) ListByCategory(ctx context.Context, category string) ([]*models.Resource, error) {
	resources := []*models.Resource{}
	query := r.db.Rebind(`
		SELECT id, title, description, category, action_text, icon, link
		FROM resources
		WHERE category = ?
		ORDER BY id
	`)

	if err := r.db.SelectContext(ctx, &resources, query, category); err != nil {
		r.logger.Error("Failed to list resources by category", zap.String("category", category), zap.Error(err))
		return nil, err
	}

	return resources, nil
}

func (r *resourceRepository) Create(ctx context.Context, input *models.CreateResourceInput) (*models.Resource, error) {
	resource := &models.Resource{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		ActionText:  input.ActionText,
		Icon:        input.Icon,
		Link:        input.Link,
	}

	query := r.db.Rebind(`
		INSERT INTO resources (title, description, category, action_text, icon, link)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.db.QueryRowxContext(ctx, query,
		resource.Title,
		resource.Description,
		resource.Category,
		resource.ActionText,
		resource.Icon,
		resource.Link,
	).Scan(&resource.ID)
	if err != nil {
		r.logger.Error("Failed to create resource", zap.Error(err))
		return nil, err
	}

	return resource, nil
}

func (r *resourceRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM resources`); err != nil {
		return 0, err
	}
	return count, nil
}
