package store

import (
	"context"

	"github.com/google/uuid"

	"codehive/backend/internal/models"
)

// AppendEditLog writes one append-only edit record. Entries are never
// updated; cascading deletes are the only way they disappear.
func (s *Store) AppendEditLog(ctx context.Context, entry models.EditLogEntry) error {
	query := `INSERT INTO edit_logs
		(file_id, project_id, origin, removed, inserted, from_line, from_col, to_line, to_col, username, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.pool.Exec(ctx, query,
		entry.FileID, entry.ProjectID, entry.Origin, entry.Removed, entry.Inserted,
		entry.FromLine, entry.FromCol, entry.ToLine, entry.ToCol, entry.Username, entry.Role)
	return err
}

func (s *Store) EditLogForFile(ctx context.Context, fileID uuid.UUID, limit int) ([]models.EditLogEntry, error) {
	query := `SELECT id, file_id, project_id, origin, removed, inserted, from_line, from_col, to_line, to_col, username, role, created_at
		FROM edit_logs WHERE file_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, fileID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.EditLogEntry
	for rows.Next() {
		var e models.EditLogEntry
		if err := rows.Scan(&e.ID, &e.FileID, &e.ProjectID, &e.Origin, &e.Removed, &e.Inserted,
			&e.FromLine, &e.FromCol, &e.ToLine, &e.ToCol, &e.Username, &e.Role, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) AppendChatMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	query := `INSERT INTO chat_messages (project_id, username, role, message)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := s.pool.QueryRow(ctx, query, msg.ProjectID, msg.Username, msg.Role, msg.Message).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return models.ChatMessage{}, err
	}
	return msg, nil
}

func (s *Store) ChatHistory(ctx context.Context, projectID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	query := `SELECT id, project_id, username, role, message, created_at
		FROM chat_messages WHERE project_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Username, &m.Role, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
