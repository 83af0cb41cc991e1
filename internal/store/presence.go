package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"codehive/backend/internal/models"
)

// ClearActiveTabs drops the active flag on every presence row this user has
// within the project. At most one file may be the active tab per user.
func (s *Store) ClearActiveTabs(ctx context.Context, projectID uuid.UUID, username string) error {
	query := `UPDATE presence SET is_active_in_tab = FALSE, updated_at = NOW()
		WHERE project_id = $1 AND username = $2 AND is_active_in_tab`
	_, err := s.pool.Exec(ctx, query, projectID, username)
	return err
}

func (s *Store) PresenceRow(ctx context.Context, fileID uuid.UUID, username string) (models.PresenceRow, error) {
	var row models.PresenceRow
	query := `SELECT file_id, project_id, username, is_live, is_active_in_tab, role, updated_at
		FROM presence WHERE file_id = $1 AND username = $2`
	err := s.pool.QueryRow(ctx, query, fileID, username).
		Scan(&row.FileID, &row.ProjectID, &row.Username, &row.IsLive, &row.IsActiveTab, &row.Role, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.PresenceRow{}, ErrNotFound
	}
	if err != nil {
		return models.PresenceRow{}, err
	}
	return row, nil
}

func (s *Store) InsertPresenceRow(ctx context.Context, row models.PresenceRow) error {
	query := `INSERT INTO presence (file_id, project_id, username, is_live, is_active_in_tab, role)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query, row.FileID, row.ProjectID, row.Username, row.IsLive, row.IsActiveTab, row.Role)
	return err
}

// MarkPresenceActive flips an existing row to live and active-tab.
func (s *Store) MarkPresenceActive(ctx context.Context, fileID uuid.UUID, username string) error {
	query := `UPDATE presence SET is_live = TRUE, is_active_in_tab = TRUE, updated_at = NOW()
		WHERE file_id = $1 AND username = $2`
	_, err := s.pool.Exec(ctx, query, fileID, username)
	return err
}

// DeletePresenceRow removes the row outright; presence history is only kept
// while the user is on the file.
func (s *Store) DeletePresenceRow(ctx context.Context, fileID uuid.UUID, username string) error {
	query := `DELETE FROM presence WHERE file_id = $1 AND username = $2`
	_, err := s.pool.Exec(ctx, query, fileID, username)
	return err
}

func (s *Store) ListLivePresence(ctx context.Context, fileID uuid.UUID) ([]models.PresenceRow, error) {
	query := `SELECT file_id, project_id, username, is_live, is_active_in_tab, role, updated_at
		FROM presence WHERE file_id = $1 AND is_live ORDER BY username`
	rows, err := s.pool.Query(ctx, query, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var live []models.PresenceRow
	for rows.Next() {
		var row models.PresenceRow
		if err := rows.Scan(&row.FileID, &row.ProjectID, &row.Username, &row.IsLive, &row.IsActiveTab, &row.Role, &row.UpdatedAt); err != nil {
			return nil, err
		}
		live = append(live, row)
	}
	return live, rows.Err()
}

// SetUserLive flips the live flag on every presence row the user owns, across
// all files and projects. Rows are kept so the last-focused file survives a
// reconnect.
func (s *Store) SetUserLive(ctx context.Context, username string, live bool) error {
	query := `UPDATE presence SET is_live = $1, updated_at = NOW() WHERE username = $2`
	_, err := s.pool.Exec(ctx, query, live, username)
	return err
}

// ActiveTabs returns, for the initial page load, which file each live user
// currently has focused in the project.
func (s *Store) ActiveTabs(ctx context.Context, projectID uuid.UUID) ([]models.PresenceRow, error) {
	query := `SELECT file_id, project_id, username, is_live, is_active_in_tab, role, updated_at
		FROM presence WHERE project_id = $1 AND is_live AND is_active_in_tab ORDER BY username`
	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tabs []models.PresenceRow
	for rows.Next() {
		var row models.PresenceRow
		if err := rows.Scan(&row.FileID, &row.ProjectID, &row.Username, &row.IsLive, &row.IsActiveTab, &row.Role, &row.UpdatedAt); err != nil {
			return nil, err
		}
		tabs = append(tabs, row)
	}
	return tabs, rows.Err()
}
