package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"codehive/backend/internal/models"
)

// CreateProject inserts the project, its owner membership and the root tree
// node in one transaction. This is the only place a root node (nil parent)
// is ever created; the mutation protocol rejects them.
func (s *Store) CreateProject(ctx context.Context, name string, ownerID uuid.UUID) (models.Project, error) {
	var project models.Project
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		query := `INSERT INTO projects (name, owner_id) VALUES ($1, $2)
			RETURNING id, owner_id, name, created_at, updated_at`
		if err := tx.QueryRow(ctx, query, name, ownerID).
			Scan(&project.ID, &project.OwnerID, &project.Name, &project.CreatedAt, &project.UpdatedAt); err != nil {
			return err
		}

		memberQuery := `INSERT INTO project_members (project_id, user_id, role) VALUES ($1, $2, 'owner')`
		if _, err := tx.Exec(ctx, memberQuery, project.ID, ownerID); err != nil {
			return err
		}

		rootQuery := `INSERT INTO files (project_id, parent_id, is_folder, name) VALUES ($1, NULL, TRUE, $2)`
		_, err := tx.Exec(ctx, rootQuery, project.ID, name)
		return err
	})
	if err != nil {
		return models.Project{}, err
	}
	return project, nil
}

func (s *Store) ProjectsForUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	query := `
		SELECT p.id, p.owner_id, p.name, p.created_at, p.updated_at
		FROM projects p
		JOIN project_members pm ON p.id = pm.project_id
		WHERE pm.user_id = $1
		ORDER BY p.created_at DESC`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *Store) RenameProject(ctx context.Context, projectID uuid.UUID, name string) error {
	query := `UPDATE projects SET name = $1, updated_at = NOW() WHERE id = $2`
	_, err := s.pool.Exec(ctx, query, name, projectID)
	return err
}

// DeleteProject relies on ON DELETE CASCADE to clean up members, files,
// contents, presence, edit logs and chat in one statement.
func (s *Store) DeleteProject(ctx context.Context, projectID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, projectID)
	return err
}

func (s *Store) ProjectMembers(ctx context.Context, projectID uuid.UUID) ([]models.ProjectMember, error) {
	query := `
		SELECT u.id, u.username, u.email, pm.role, pm.last_opened_at
		FROM project_members pm
		JOIN users u ON pm.user_id = u.id
		WHERE pm.project_id = $1
		ORDER BY u.username`
	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.ProjectMember
	for rows.Next() {
		var m models.ProjectMember
		if err := rows.Scan(&m.UserID, &m.Username, &m.Email, &m.Role, &m.LastOpenedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Store) MemberRole(ctx context.Context, projectID, userID uuid.UUID) (string, error) {
	var role string
	query := `SELECT role FROM project_members WHERE project_id = $1 AND user_id = $2`
	err := s.pool.QueryRow(ctx, query, projectID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return role, err
}

// MemberRoleByUsername is the lookup the presence registry uses to stamp a
// point-in-time role onto a new presence row.
func (s *Store) MemberRoleByUsername(ctx context.Context, projectID uuid.UUID, username string) (string, error) {
	var role string
	query := `
		SELECT pm.role FROM project_members pm
		JOIN users u ON pm.user_id = u.id
		WHERE pm.project_id = $1 AND u.username = $2`
	err := s.pool.QueryRow(ctx, query, projectID, username).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return role, err
}

func (s *Store) UpdateMemberRole(ctx context.Context, projectID, userID uuid.UUID, role string) error {
	query := `UPDATE project_members SET role = $1 WHERE project_id = $2 AND user_id = $3`
	_, err := s.pool.Exec(ctx, query, role, projectID, userID)
	return err
}

func (s *Store) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	query := `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`
	_, err := s.pool.Exec(ctx, query, projectID, userID)
	return err
}

// TouchMemberLastOpened records when a member last joined the project room.
func (s *Store) TouchMemberLastOpened(ctx context.Context, projectID, userID uuid.UUID) error {
	query := `UPDATE project_members SET last_opened_at = NOW() WHERE project_id = $1 AND user_id = $2`
	_, err := s.pool.Exec(ctx, query, projectID, userID)
	return err
}
