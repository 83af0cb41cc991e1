package models

import (
	"time"

	"github.com/google/uuid"
)

type Project struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"ownerId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProjectMember joins the membership row with the user it belongs to.
type ProjectMember struct {
	UserID       uuid.UUID  `json:"userId"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	LastOpenedAt *time.Time `json:"lastOpenedAt,omitempty"`
}
