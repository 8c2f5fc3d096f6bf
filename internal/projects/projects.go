// Package projects is the durable store for user projects and their applied
// generation history.
package projects

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/sajtmaskin/server/internal/v0"
)

var (
	ErrProjectNotFound = errors.New("project not found")
)

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, userID string, req CreateProjectRequest) (*Project, error) {
	var project Project

	err := r.db.QueryRow(
		ctx,
		queryCreate,
		userID,
		req.Name,
		req.Category,
		req.TemplateID,
	).Scan(
		&project.ID,
		&project.UserID,
		&project.Name,
		&project.Category,
		&project.TemplateID,
		&project.ChatID,
		&project.DemoURL,
		&project.Code,
		&project.CreatedAt,
		&project.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return &project, nil
}

func (r *Repository) Get(ctx context.Context, projectID, userID string) (*Project, error) {
	var project Project

	err := r.db.QueryRow(ctx, queryGet, projectID, userID).Scan(
		&project.ID,
		&project.UserID,
		&project.Name,
		&project.Category,
		&project.TemplateID,
		&project.ChatID,
		&project.DemoURL,
		&project.Code,
		&project.CreatedAt,
		&project.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProjectNotFound
	}

	if err != nil {
		return nil, err
	}

	return &project, nil
}

func (r *Repository) List(ctx context.Context, userID string, limit, offset int) ([]Project, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, queryCountByUser, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, queryList, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()
	var projects []Project

	for rows.Next() {
		var p Project
		err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Name,
			&p.Category,
			&p.TemplateID,
			&p.ChatID,
			&p.DemoURL,
			&p.Code,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

func (r *Repository) Update(ctx context.Context, projectID, userID string, req UpdateProjectRequest) (*Project, error) {
	var project Project

	err := r.db.QueryRow(
		ctx,
		queryUpdate,
		req.Name,
		req.Category,
		projectID,
		userID,
	).Scan(
		&project.ID,
		&project.UserID,
		&project.Name,
		&project.Category,
		&project.TemplateID,
		&project.ChatID,
		&project.DemoURL,
		&project.Code,
		&project.CreatedAt,
		&project.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProjectNotFound
	}

	if err != nil {
		return nil, err
	}

	return &project, nil
}

func (r *Repository) Delete(ctx context.Context, projectID, userID string) error {
	result, err := r.db.Exec(ctx, queryDelete, projectID, userID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrProjectNotFound
	}

	return nil
}

// ApplyResult writes an applied generation to the project row and appends a
// version snapshot in the same transaction, so the current state and its
// history can never diverge.
func (r *Repository) ApplyResult(ctx context.Context, projectID string, result *v0.Result) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var project Project

	err = tx.QueryRow(
		ctx,
		queryApplyResult,
		result.ChatID,
		result.DemoURL,
		result.Code,
		projectID,
	).Scan(
		&project.ID,
		&project.UserID,
		&project.Name,
		&project.Category,
		&project.TemplateID,
		&project.ChatID,
		&project.DemoURL,
		&project.Code,
		&project.CreatedAt,
		&project.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProjectNotFound
	}

	if err != nil {
		return err
	}

	var version Version

	err = tx.QueryRow(
		ctx,
		queryInsertVersion,
		projectID,
		result.ChatID,
		result.DemoURL,
		result.Code,
		result.Message,
	).Scan(&version.ID, &version.CreatedAt)

	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repository) ListVersions(ctx context.Context, projectID string, limit int) ([]Version, error) {
	rows, err := r.db.Query(ctx, queryListVersions, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		var v Version
		err := rows.Scan(
			&v.ID,
			&v.ProjectID,
			&v.ChatID,
			&v.DemoURL,
			&v.Code,
			&v.Summary,
			&v.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return versions, nil
}
