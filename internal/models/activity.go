package models

import (
	"time"

	"github.com/google/uuid"
)

// EditLogEntry is an append-only record of a single text mutation. Rows are
// never updated; they disappear only when the owning file or project does.
type EditLogEntry struct {
	ID        uuid.UUID `json:"id"`
	FileID    uuid.UUID `json:"fileId"`
	ProjectID uuid.UUID `json:"projectId"`
	Origin    string    `json:"origin"`
	Removed   string    `json:"removed"`
	Inserted  string    `json:"inserted"`
	FromLine  int       `json:"fromLine"`
	FromCol   int       `json:"fromCol"`
	ToLine    int       `json:"toLine"`
	ToCol     int       `json:"toCol"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"projectId"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
