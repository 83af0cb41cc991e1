package filetree

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"codehive/backend/internal/models"
	"codehive/backend/internal/store"
)

// Rejections are returned to the initiating caller and never broadcast.
var (
	ErrRootCreation   = errors.New("filetree: root nodes are created with the project, not through add")
	ErrParentNotFound = errors.New("filetree: parent node does not exist in this project")
	ErrNotAFolder     = errors.New("filetree: parent node is not a folder")
	ErrNodeNotFound   = errors.New("filetree: node does not exist")
)

// Store is the slice of the persistence adapter the protocol needs.
type Store interface {
	FileNode(ctx context.Context, id uuid.UUID) (models.FileNode, error)
	CreateFileNode(ctx context.Context, projectID, parentID uuid.UUID, name string, isFolder bool, extension string) (models.FileNode, error)
	RenameFileNode(ctx context.Context, id uuid.UUID, name string) error
	Descendants(ctx context.Context, node uuid.UUID) ([]uuid.UUID, error)
	DeleteFileNodes(ctx context.Context, ids []uuid.UUID) error
}

// Broadcaster fans a tree change out to the project room. The hub implements
// this; clients re-fetch the affected subtree rather than trusting a diff.
type Broadcaster interface {
	FileTreeChanged(projectID uuid.UUID, changeType string, nodeID uuid.UUID)
}

const (
	ChangeAdd    = "add"
	ChangeRename = "rename"
	ChangeDelete = "delete"
)

// Service serializes create/rename/delete against the persisted tree.
// Mutations within one project run one at a time, so a delete can never race
// an add under the node being removed.
type Service struct {
	store     Store
	broadcast Broadcaster

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex // per-project mutation lock
}

func NewService(s Store, b Broadcaster) *Service {
	return &Service{
		store:     s,
		broadcast: b,
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *Service) projectLock(projectID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[projectID] = lock
	}
	return lock
}

// Add inserts a node under an existing parent. A nil parent is always
// rejected: the only root a project ever has is made at project creation.
func (s *Service) Add(ctx context.Context, projectID uuid.UUID, parentID *uuid.UUID, name string, isFolder bool) (models.FileNode, error) {
	if parentID == nil {
		return models.FileNode{}, ErrRootCreation
	}
	if name == "" {
		return models.FileNode{}, errors.New("filetree: name is required")
	}

	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	parent, err := s.store.FileNode(ctx, *parentID)
	if errors.Is(err, store.ErrNotFound) {
		return models.FileNode{}, ErrParentNotFound
	}
	if err != nil {
		return models.FileNode{}, fmt.Errorf("look up parent: %w", err)
	}
	if parent.ProjectID != projectID {
		return models.FileNode{}, ErrParentNotFound
	}
	if !parent.IsFolder {
		return models.FileNode{}, ErrNotAFolder
	}

	node, err := s.store.CreateFileNode(ctx, projectID, *parentID, name, isFolder, extensionOf(name))
	if err != nil {
		return models.FileNode{}, fmt.Errorf("create node: %w", err)
	}

	s.broadcast.FileTreeChanged(projectID, ChangeAdd, node.ID)
	return node, nil
}

// Rename is a single-field update with no cascade.
func (s *Service) Rename(ctx context.Context, nodeID uuid.UUID, newName string) error {
	if newName == "" {
		return errors.New("filetree: new name is required")
	}

	node, err := s.store.FileNode(ctx, nodeID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNodeNotFound
	}
	if err != nil {
		return err
	}

	lock := s.projectLock(node.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.RenameFileNode(ctx, nodeID, newName); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Deleted between the lookup and taking the project lock.
			return ErrNodeNotFound
		}
		return fmt.Errorf("rename node: %w", err)
	}

	s.broadcast.FileTreeChanged(node.ProjectID, ChangeRename, nodeID)
	return nil
}

// Delete removes the node and its full descendant closure: presence rows and
// content rows referencing those ids go first, then the nodes, all in one
// store transaction.
func (s *Service) Delete(ctx context.Context, nodeID uuid.UUID) error {
	node, err := s.store.FileNode(ctx, nodeID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNodeNotFound
	}
	if err != nil {
		return err
	}

	lock := s.projectLock(node.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	ids, err := s.store.Descendants(ctx, nodeID)
	if err != nil {
		return fmt.Errorf("collect descendants: %w", err)
	}
	if len(ids) == 0 {
		// Deleted between the lookup and taking the project lock.
		return ErrNodeNotFound
	}
	if err := s.store.DeleteFileNodes(ctx, ids); err != nil {
		return fmt.Errorf("delete subtree: %w", err)
	}

	s.broadcast.FileTreeChanged(node.ProjectID, ChangeDelete, nodeID)
	return nil
}

// extensionOf derives the file extension from the trailing dot-segment of the
// name; names without a dot get none.
func extensionOf(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return name[idx+1:]
}
