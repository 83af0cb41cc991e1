package models

import (
	"time"

	"github.com/google/uuid"
)

// PresenceRow is the durable record of a user's live/active state for one
// file. Keyed by (file id, username); at most one row per (project, username)
// may have IsActiveInTab set.
type PresenceRow struct {
	FileID      uuid.UUID `json:"fileId"`
	ProjectID   uuid.UUID `json:"projectId"`
	Username    string    `json:"username"`
	IsLive      bool      `json:"isLive"`
	IsActiveTab bool      `json:"isActiveInTab"`
	Role        string    `json:"role"` // point-in-time copy of the project role
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CursorPosition is ephemeral editor state, relayed but never persisted.
type CursorPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}
