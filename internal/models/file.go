package models

import (
	"time"

	"github.com/google/uuid"
)

// FileNode represents a file or a folder in the project tree. Exactly one node
// per project has a nil ParentID: the root, created alongside the project.
type FileNode struct {
	ID        uuid.UUID  `json:"id"`
	ProjectID uuid.UUID  `json:"projectId"`
	ParentID  *uuid.UUID `json:"parentId"` // nil only for the root
	IsFolder  bool       `json:"isFolder"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	// Populated by the tree handler, never stored.
	Children []*FileNode `json:"children,omitempty"`
}

// FileContent is the content row backing a non-folder node. Keyed by the node
// id, so every file node has exactly one content record.
type FileContent struct {
	FileID    uuid.UUID `json:"fileId"`
	Extension string    `json:"extension"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}
