package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"codehive/backend/internal/models"
)

func (s *Store) FileNode(ctx context.Context, id uuid.UUID) (models.FileNode, error) {
	var node models.FileNode
	query := `SELECT id, project_id, parent_id, is_folder, name, created_at, updated_at FROM files WHERE id = $1`
	err := s.pool.QueryRow(ctx, query, id).
		Scan(&node.ID, &node.ProjectID, &node.ParentID, &node.IsFolder, &node.Name, &node.CreatedAt, &node.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.FileNode{}, ErrNotFound
	}
	if err != nil {
		return models.FileNode{}, err
	}
	return node, nil
}

func (s *Store) FileNodesForProject(ctx context.Context, projectID uuid.UUID) ([]models.FileNode, error) {
	query := `SELECT id, project_id, parent_id, is_folder, name, created_at, updated_at
		FROM files WHERE project_id = $1 ORDER BY name ASC`
	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []models.FileNode
	for rows.Next() {
		var node models.FileNode
		if err := rows.Scan(&node.ID, &node.ProjectID, &node.ParentID, &node.IsFolder, &node.Name, &node.CreatedAt, &node.UpdatedAt); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// CreateFileNode inserts the node and, for files, the matching content row in
// one transaction so a file node can never exist without its content record.
func (s *Store) CreateFileNode(ctx context.Context, projectID uuid.UUID, parentID uuid.UUID, name string, isFolder bool, extension string) (models.FileNode, error) {
	node := models.FileNode{
		ProjectID: projectID,
		ParentID:  &parentID,
		IsFolder:  isFolder,
		Name:      name,
	}
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		query := `INSERT INTO files (project_id, parent_id, is_folder, name) VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, query, projectID, parentID, isFolder, name).
			Scan(&node.ID, &node.CreatedAt, &node.UpdatedAt); err != nil {
			return err
		}
		if isFolder {
			return nil
		}
		contentQuery := `INSERT INTO file_contents (file_id, extension, content) VALUES ($1, $2, '')`
		_, err := tx.Exec(ctx, contentQuery, node.ID, extension)
		return err
	})
	if err != nil {
		return models.FileNode{}, err
	}
	return node, nil
}

func (s *Store) RenameFileNode(ctx context.Context, id uuid.UUID, name string) error {
	query := `UPDATE files SET name = $1, updated_at = NOW() WHERE id = $2`
	tag, err := s.pool.Exec(ctx, query, name, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Descendants returns the ids of node and everything below it, walked
// ancestor to descendant.
func (s *Store) Descendants(ctx context.Context, node uuid.UUID) ([]uuid.UUID, error) {
	query := `
		WITH RECURSIVE subtree AS (
			SELECT id FROM files WHERE id = $1
			UNION ALL
			SELECT f.id FROM files f JOIN subtree s ON f.parent_id = s.id
		)
		SELECT id FROM subtree`
	rows, err := s.pool.Query(ctx, query, node)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteFileNodes removes the given subtree ids and every row that references
// them, in dependency order, inside a single transaction. Presence and
// content rows point at tree nodes, so they go first.
func (s *Store) DeleteFileNodes(ctx context.Context, ids []uuid.UUID) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM presence WHERE file_id = ANY($1)`, ids); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM file_contents WHERE file_id = ANY($1)`, ids); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM files WHERE id = ANY($1)`, ids)
		return err
	})
}

func (s *Store) FileContent(ctx context.Context, fileID uuid.UUID) (models.FileContent, error) {
	var content models.FileContent
	query := `SELECT file_id, extension, content, updated_at FROM file_contents WHERE file_id = $1`
	err := s.pool.QueryRow(ctx, query, fileID).
		Scan(&content.FileID, &content.Extension, &content.Content, &content.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.FileContent{}, ErrNotFound
	}
	if err != nil {
		return models.FileContent{}, err
	}
	return content, nil
}

func (s *Store) SaveFileContent(ctx context.Context, fileID uuid.UUID, content string) error {
	query := `UPDATE file_contents SET content = $1, updated_at = NOW() WHERE file_id = $2`
	_, err := s.pool.Exec(ctx, query, content, fileID)
	return err
}
