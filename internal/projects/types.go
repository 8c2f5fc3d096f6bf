package projects

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

type Project struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	TemplateID string    `json:"template_id,omitempty"`
	ChatID     string    `json:"chat_id,omitempty"`
	DemoURL    string    `json:"demo_url,omitempty"`
	Code       string    `json:"code,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Version is one applied generation snapshot. Every applied result appends a
// version, so a project can always be rolled back to an earlier state.
type Version struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	ChatID    string    `json:"chat_id,omitempty"`
	DemoURL   string    `json:"demo_url,omitempty"`
	Code      string    `json:"code"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateProjectRequest struct {
	Name       string `json:"name" binding:"required,max=200"`
	Category   string `json:"category,omitempty" binding:"max=50"`
	TemplateID string `json:"template_id,omitempty" binding:"max=100"`
}

type UpdateProjectRequest struct {
	Name     *string `json:"name,omitempty" binding:"omitempty,max=200"`
	Category *string `json:"category,omitempty" binding:"omitempty,max=50"`
}
