package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/faceproj/facefinder/internal/database"
)

// ProjectRepository provides PostgreSQL-backed project storage.
type ProjectRepository struct {
	pool *Pool
}

// NewProjectRepository creates a new PostgreSQL project repository.
func NewProjectRepository(pool *Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

const projectColumns = "id, name, description, created_at"

func scanProject(scan func(...any) error) (*database.Project, error) {
	var project database.Project
	if err := scan(&project.ID, &project.Name, &project.Description, &project.CreatedAt); err != nil {
		return nil, err
	}
	return &project, nil
}

// CreateProject stores a new project. The normalized name is written
// alongside the display name so lookups by name are accent and case
// insensitive.
func (r *ProjectRepository) CreateProject(ctx context.Context, project *database.Project) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO projects (id, name, normalized_name, description)
		VALUES ($1, $2, $3, $4)
	`, project.ID, project.Name, database.NormalizeName(project.Name), project.Description)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID, returns nil if not found.
func (r *ProjectRepository) GetProject(ctx context.Context, id string) (*database.Project, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = $1", id)
	project, err := scanProject(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}
	return project, nil
}

// GetProjectByName retrieves a project by normalized name, returns nil if
// not found.
func (r *ProjectRepository) GetProjectByName(ctx context.Context, name string) (*database.Project, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE normalized_name = $1",
		database.NormalizeName(name))
	project, err := scanProject(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query project by name: %w", err)
	}
	return project, nil
}

// ListProjects retrieves all projects in creation order.
func (r *ProjectRepository) ListProjects(ctx context.Context) ([]database.Project, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []database.Project
	for rows.Next() {
		project, err := scanProject(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// DeleteProject removes a project; its faces go with it via the foreign key.
func (r *ProjectRepository) DeleteProject(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM projects WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ database.ProjectStore = (*ProjectRepository)(nil)
