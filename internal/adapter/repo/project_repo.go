package repo

import (
	"context"
	"fmt"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// ProjectRepositoryPG implements domain.ProjectRepository on Postgres.
type ProjectRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewProjectRepository creates a project repository backed by PostgreSQL.
func NewProjectRepository(sql infra.SQLExecutor) *ProjectRepositoryPG {
	return &ProjectRepositoryPG{sql: sql}
}

// EnsureSchema creates the tables used by the service when missing.
func (r *ProjectRepositoryPG) EnsureSchema(ctx context.Context) error {
	for _, stmt := range sqlinline.PostgresSchema {
		if _, err := r.sql.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Put inserts the project; a second Put for the same ID is a no-op.
func (r *ProjectRepositoryPG) Put(ctx context.Context, project *domain.Project) error {
	cols, err := encodeProject(project)
	if err != nil {
		return err
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertProject,
		project.ID,
		project.UserID,
		project.Prompt,
		cols.platforms,
		string(project.Status),
		cols.assets,
		cols.errors,
		project.CreatedAt,
		project.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// Update writes the terminal transition of a generating project.
func (r *ProjectRepositoryPG) Update(ctx context.Context, projectID string, update domain.ProjectUpdate) error {
	assets, errs, err := encodeUpdate(update)
	if err != nil {
		return err
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QFinalizeProject,
		projectID,
		string(update.Status),
		assets,
		errs,
		update.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("finalize project: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	if err := r.sql.QueryRow(ctx, sqlinline.QProjectStatus, projectID).Scan(&current); err != nil {
		if infra.IsNoRows(err) {
			return fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
		}
		return fmt.Errorf("load project status: %w", err)
	}
	return transitionConflict(projectID, domain.ProjectStatus(current), update.Status)
}

// GetByID fetches a project by its identifier.
func (r *ProjectRepositoryPG) GetByID(ctx context.Context, projectID string) (*domain.Project, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectProjectByID, projectID)
	var (
		p           domain.Project
		status      string
		cols        projectColumns
		completedAt *time.Time
	)
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Prompt,
		&cols.platforms,
		&status,
		&cols.assets,
		&cols.errors,
		&p.CreatedAt,
		&completedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
		}
		return nil, err
	}
	p.Status = domain.ProjectStatus(status)
	p.CreatedAt = p.CreatedAt.UTC()
	if completedAt != nil {
		t := completedAt.UTC()
		p.CompletedAt = &t
	}
	if err := decodeProject(&p, cols); err != nil {
		return nil, err
	}
	return &p, nil
}

var _ domain.ProjectRepository = (*ProjectRepositoryPG)(nil)
