package ws

import (
	"sync"

	"github.com/google/uuid"

	"codehive/backend/internal/models"
)

// cursorCache holds the last known cursor per (file, username). Purely
// ephemeral working memory for re-display to newly joined peers; nothing
// here is persisted.
type cursorCache struct {
	mu     sync.RWMutex
	byFile map[uuid.UUID]map[string]models.CursorPosition
}

func newCursorCache() *cursorCache {
	return &cursorCache{byFile: make(map[uuid.UUID]map[string]models.CursorPosition)}
}

func (c *cursorCache) Set(fileID uuid.UUID, username string, pos models.CursorPosition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cursors, ok := c.byFile[fileID]
	if !ok {
		cursors = make(map[string]models.CursorPosition)
		c.byFile[fileID] = cursors
	}
	cursors[username] = pos
}

func (c *cursorCache) Clear(fileID uuid.UUID, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cursors, ok := c.byFile[fileID]; ok {
		delete(cursors, username)
		if len(cursors) == 0 {
			delete(c.byFile, fileID)
		}
	}
}

// ClearUser drops the user's cursor from every file, used on disconnect.
func (c *cursorCache) ClearUser(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for fileID, cursors := range c.byFile {
		delete(cursors, username)
		if len(cursors) == 0 {
			delete(c.byFile, fileID)
		}
	}
}

func (c *cursorCache) ClearFile(fileID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byFile, fileID)
}

// Snapshot copies the file's cursors for a presence snapshot.
func (c *cursorCache) Snapshot(fileID uuid.UUID) map[string]models.CursorPosition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]models.CursorPosition, len(c.byFile[fileID]))
	for username, pos := range c.byFile[fileID] {
		out[username] = pos
	}
	return out
}
