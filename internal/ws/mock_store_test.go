package ws

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"codehive/backend/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) MemberRole(ctx context.Context, projectID, userID uuid.UUID) (string, error) {
	args := m.Called(ctx, projectID, userID)
	return args.String(0), args.Error(1)
}

func (m *MockStore) TouchMemberLastOpened(ctx context.Context, projectID, userID uuid.UUID) error {
	return m.Called(ctx, projectID, userID).Error(0)
}

func (m *MockStore) SaveFileContent(ctx context.Context, fileID uuid.UUID, content string) error {
	return m.Called(ctx, fileID, content).Error(0)
}

func (m *MockStore) AppendEditLog(ctx context.Context, entry models.EditLogEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockStore) AppendChatMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(models.ChatMessage), args.Error(1)
}

type MockPresence struct {
	mock.Mock
}

func (m *MockPresence) JoinFile(ctx context.Context, projectID, fileID uuid.UUID, username string) (models.PresenceRow, error) {
	args := m.Called(ctx, projectID, fileID, username)
	return args.Get(0).(models.PresenceRow), args.Error(1)
}

func (m *MockPresence) LeaveFile(ctx context.Context, fileID uuid.UUID, username string) error {
	return m.Called(ctx, fileID, username).Error(0)
}

func (m *MockPresence) ListLive(ctx context.Context, fileID uuid.UUID) ([]models.PresenceRow, error) {
	args := m.Called(ctx, fileID)
	return args.Get(0).([]models.PresenceRow), args.Error(1)
}

func (m *MockPresence) SetLive(ctx context.Context, username string, live bool) error {
	return m.Called(ctx, username, live).Error(0)
}

type MockTree struct {
	mock.Mock
}

func (m *MockTree) Add(ctx context.Context, projectID uuid.UUID, parentID *uuid.UUID, name string, isFolder bool) (models.FileNode, error) {
	args := m.Called(ctx, projectID, parentID, name, isFolder)
	return args.Get(0).(models.FileNode), args.Error(1)
}

func (m *MockTree) Rename(ctx context.Context, nodeID uuid.UUID, newName string) error {
	return m.Called(ctx, nodeID, newName).Error(0)
}

func (m *MockTree) Delete(ctx context.Context, nodeID uuid.UUID) error {
	return m.Called(ctx, nodeID).Error(0)
}
