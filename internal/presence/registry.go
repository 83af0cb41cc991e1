package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"codehive/backend/internal/models"
	"codehive/backend/internal/store"
)

// Store is the slice of the persistence adapter the registry needs.
type Store interface {
	ClearActiveTabs(ctx context.Context, projectID uuid.UUID, username string) error
	PresenceRow(ctx context.Context, fileID uuid.UUID, username string) (models.PresenceRow, error)
	InsertPresenceRow(ctx context.Context, row models.PresenceRow) error
	MarkPresenceActive(ctx context.Context, fileID uuid.UUID, username string) error
	DeletePresenceRow(ctx context.Context, fileID uuid.UUID, username string) error
	ListLivePresence(ctx context.Context, fileID uuid.UUID) ([]models.PresenceRow, error)
	SetUserLive(ctx context.Context, username string, live bool) error
	MemberRoleByUsername(ctx context.Context, projectID uuid.UUID, username string) (string, error)
}

// Registry tracks which files a user is live on and which single file they
// have focused. State lives in presence rows, not in memory, so it survives
// socket reconnects.
type Registry struct {
	store Store

	// Serializes the clear-then-set sequence per user. Two overlapping
	// JoinFile calls for the same user could otherwise leave two rows
	// flagged as the active tab.
	mu    sync.Mutex
	users map[string]*sync.Mutex
}

func NewRegistry(s Store) *Registry {
	return &Registry{
		store: s,
		users: make(map[string]*sync.Mutex),
	}
}

func (r *Registry) userLock(username string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.users[username]
	if !ok {
		lock = &sync.Mutex{}
		r.users[username] = lock
	}
	return lock
}

// JoinFile records that username focused fileID: every other row the user has
// in the project loses its active flag, then the row for this file is marked
// live and active, created first if needed. New rows get a point-in-time copy
// of the user's project role; it goes stale if the role changes later.
func (r *Registry) JoinFile(ctx context.Context, projectID, fileID uuid.UUID, username string) (models.PresenceRow, error) {
	lock := r.userLock(username)
	lock.Lock()
	defer lock.Unlock()

	if err := r.store.ClearActiveTabs(ctx, projectID, username); err != nil {
		return models.PresenceRow{}, fmt.Errorf("clear active tabs: %w", err)
	}

	row, err := r.store.PresenceRow(ctx, fileID, username)
	switch {
	case err == nil:
		if err := r.store.MarkPresenceActive(ctx, fileID, username); err != nil {
			return models.PresenceRow{}, fmt.Errorf("mark presence active: %w", err)
		}
		row.IsLive = true
		row.IsActiveTab = true
		return row, nil

	case errors.Is(err, store.ErrNotFound):
		role, err := r.store.MemberRoleByUsername(ctx, projectID, username)
		if err != nil {
			return models.PresenceRow{}, fmt.Errorf("look up role: %w", err)
		}
		row = models.PresenceRow{
			FileID:      fileID,
			ProjectID:   projectID,
			Username:    username,
			IsLive:      true,
			IsActiveTab: true,
			Role:        role,
		}
		if err := r.store.InsertPresenceRow(ctx, row); err != nil {
			return models.PresenceRow{}, fmt.Errorf("insert presence row: %w", err)
		}
		return row, nil

	default:
		return models.PresenceRow{}, err
	}
}

// LeaveFile deletes the row outright rather than marking it inactive.
func (r *Registry) LeaveFile(ctx context.Context, fileID uuid.UUID, username string) error {
	return r.store.DeletePresenceRow(ctx, fileID, username)
}

func (r *Registry) ListLive(ctx context.Context, fileID uuid.UUID) ([]models.PresenceRow, error) {
	return r.store.ListLivePresence(ctx, fileID)
}

// SetLive flips every row the user owns, across all projects. Used with
// live=false on disconnect; rows survive so the last-focused file is still
// there when the user comes back.
func (r *Registry) SetLive(ctx context.Context, username string, live bool) error {
	return r.store.SetUserLive(ctx, username, live)
}
