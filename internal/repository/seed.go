package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"safespace/internal/models"
)

func strPtr(s string) *string { return &s }

// DefaultResources is the catalog a fresh installation starts with.
var DefaultResources = []models.CreateResourceInput{
	{
		Title:       "Digital Safety Course",
		Description: "Learn how to secure your accounts, spot phishing, and lock down your privacy settings.",
		Category:    models.ResourceCategoryEducation,
		ActionText:  "Start Learning",
		Icon:        "BookOpen",
		Link:        strPtr("#"),
	},
	{
		Title:       "Regional Directory",
		Description: "Find NGOs, shelters, and legal aid tailored to your location and language.",
		Category:    models.ResourceCategorySupport,
		ActionText:  "Find Help",
		Icon:        "Globe",
		Link:        strPtr("#"),
	},
	{
		Title:       "Psychological Support",
		Description: "Connect with counselors specializing in digital trauma and cyberbullying recovery.",
		Category:    models.ResourceCategorySupport,
		ActionText:  "Connect Now",
		Icon:        "UserCheck",
		Link:        strPtr("#"),
	},
	{
		Title:       "Emergency Hotline",
		Description: "24/7 crisis support for immediate danger or severe harassment.",
		Category:    models.ResourceCategoryEmergency,
		ActionText:  "Call Now",
		Icon:        "Phone",
		Link:        strPtr("tel:911"),
	},
}

// SeedResources inserts DefaultResources when the catalog is empty and returns
// the number of rows inserted.
func SeedResources(ctx context.Context, repo ResourceRepository, logger *zap.Logger) (int, error) {
	count, err := repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count resources: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	for i := range DefaultResources {
		if _, err := repo.Create(ctx, &DefaultResources[i]); err != nil {
			return i, fmt.Errorf("failed to seed resource %q: %w", DefaultResources[i].Title, err)
		}
	}

	logger.Info("Seeded resource catalog", zap.Int("count", len(DefaultResources)))
	return len(DefaultResources), nil
}
