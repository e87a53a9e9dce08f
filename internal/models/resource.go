package models

// Resource categories.
const (
	ResourceCategoryEmergency = "emergency"
	ResourceCategoryEducation = "education"
	ResourceCategorySupport   = "support"
)

// Resource is an entry in the support resource catalog.
type Resource struct {
	ID          int64   `json:"id" db:"id"`
	Title       string  `json:"title" db:"title"`
	Description string  `json:"description" db:"description"`
	Category    string  `json:"category" db:"category"`
	ActionText  string  `json:"actionText" db:"action_text"`
	Icon        string  `json:"icon" db:"icon"`
	Link        *string `json:"link" db:"link"`
}

// CreateResourceInput is the payload for adding a resource to the catalog.
type CreateResourceInput struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Category    string  `json:"category" binding:"required,oneof=emergency education support"`
	ActionText  string  `json:"actionText" binding:"required"`
	Icon        string  `json:"icon" binding:"required"`
	Link        *string `json:"link"`
}
