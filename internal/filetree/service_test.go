package filetree_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"codehive/backend/internal/filetree"
	"codehive/backend/internal/models"
	"codehive/backend/internal/store"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) FileNode(ctx context.Context, id uuid.UUID) (models.FileNode, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.FileNode), args.Error(1)
}

func (m *MockStore) CreateFileNode(ctx context.Context, projectID, parentID uuid.UUID, name string, isFolder bool, extension string) (models.FileNode, error) {
	args := m.Called(ctx, projectID, parentID, name, isFolder, extension)
	return args.Get(0).(models.FileNode), args.Error(1)
}

func (m *MockStore) RenameFileNode(ctx context.Context, id uuid.UUID, name string) error {
	return m.Called(ctx, id, name).Error(0)
}

func (m *MockStore) Descendants(ctx context.Context, node uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, node)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockStore) DeleteFileNodes(ctx context.Context, ids []uuid.UUID) error {
	return m.Called(ctx, ids).Error(0)
}

type treeChange struct {
	projectID  uuid.UUID
	changeType string
	nodeID     uuid.UUID
}

type recordingBroadcaster struct {
	changes []treeChange
}

func (r *recordingBroadcaster) FileTreeChanged(projectID uuid.UUID, changeType string, nodeID uuid.UUID) {
	r.changes = append(r.changes, treeChange{projectID, changeType, nodeID})
}

func TestAddRejectsNilParent(t *testing.T) {
	st := new(MockStore)
	b := &recordingBroadcaster{}
	svc := filetree.NewService(st, b)

	_, err := svc.Add(context.Background(), uuid.New(), nil, "main.py", false)
	assert.ErrorIs(t, err, filetree.ErrRootCreation)
	assert.Empty(t, b.changes)
	st.AssertNotCalled(t, "CreateFileNode", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddRejectsMissingParent(t *testing.T) {
	st := new(MockStore)
	b := &recordingBroadcaster{}
	svc := filetree.NewService(st, b)

	parentID := uuid.New()
	st.On("FileNode", mock.Anything, parentID).Return(models.FileNode{}, store.ErrNotFound)

	_, err := svc.Add(context.Background(), uuid.New(), &parentID, "main.py", false)
	assert.ErrorIs(t, err, filetree.ErrParentNotFound)
	assert.Empty(t, b.changes)
}

func TestAddRejectsParentFromAnotherProject(t *testing.T) {
	st := new(MockStore)
	b := &recordingBroadcaster{}
	svc := filetree.NewService(st, b)

	parentID := uuid.New()
	st.On("FileNode", mock.Anything, parentID).Return(models.FileNode{
		ID:        parentID,
		ProjectID: uuid.New(), // different project
		IsFolder:  true,
	}, nil)

	_, err := svc.Add(context.Background(), uuid.New(), &parentID, "main.py", false)
	assert.ErrorIs(t, err, filetree.ErrParentNotFound)
}

func TestAddRejectsFileParent(t *testing.T) {
	st := new(MockStore)
	b := &recordingBroadcaster{}
	svc := filetree.NewService(st, b)

	projectID := uuid.New()
	parentID := uuid.New()
	st.On("FileNode", mock.Anything, parentID).Return(models.FileNode{
		ID:        parentID,
		ProjectID: projectID,
		IsFolder:  false,
	}, nil)

	_, err := svc.Add(context.Background(), projectID, &parentID, "main.py", false)
	assert.ErrorIs(t, err, filetree.ErrNotAFolder)
}

func TestAddCreatesNodeAndBroadcasts(t *testing.T) {
	st := new(MockStore)
	b := &recordingBroadcaster{}
	svc := filetree.NewService(st, b)

	projectID := uuid.New()
	parentID := uuid.New()
	nodeID := uuid.New()

	st.On("FileNode", mock.Anything, parentID).Return(models.FileNode{
		ID:        parentID,
		ProjectID: projectID,
		IsFolder:  true,
	}, nil)
	// The content row's extension comes from the trailing dot-segment.
	st.On("CreateFileNode", mock.Anything, projectID, parentID, "main.py", false, "py").
		Return(models.FileNode{ID: nodeID, ProjectID: projectID, ParentID: &parentID, Name: "main.py"}, nil)

	node, err := svc.Add(context.Background(), projectID, &parentID, "main.py", false)
	require.NoError(t, err)
	assert.Equal(t, nodeID, node.ID)
	require.Equal(t, &parentID, node.ParentID)

	require.Len(t, b.changes, 1)
	assert.Equal(t, treeChange{projectID, filetree.ChangeAdd, nodeID}, b.changes[0])
	st.AssertExpectations(t)
}

func TestAddFolderHasNoExtension(t *testing.T) {
	st := new(MockStore)
	b := &recordingBroadcaster{}
	svc := filetree.NewService(st, b)

	projectID := uuid.New()
	parentID := uuid.New()

	st.On("FileNode", mock.Anything, parentID).Return(models.FileNode{
		ID:        parentID,
		ProjectID: projectID,
		IsFolder:  true,
	}, nil)
	st.On("CreateFileNode", mock.Anything, projectID, parentID, "src", true, "").
		Return(models.FileNode{ID: uuid.New(), ProjectID: projectID, IsFolder: true}, nil)

	_, err := svc.Add(context.Background(), projectID, &parentID, "src", true)
	require.NoError(t, err)
	st.AssertExpectations(t)
}

func TestRenameBroadcasts(t *testing.T) {
	st := new(MockStore)
	b := &recordingBroadcaster{}
	svc := filetree.NewService(st, b)

	projectID := uuid.New()
	nodeID := uuid.New()
	st.On("FileNode", mock.Anything, nodeID).Return(models.FileNode{ID: nodeID, ProjectID: projectID}, nil)
	st.On("RenameFileNode", mock.Anything, nodeID, "app.py").Return(nil)

	require.NoError(t, svc.Rename(context.Background(), nodeID, "app.py"))

	require.Len(t, b.changes, 1)
	assert.Equal(t, treeChange{projectID, filetree.ChangeRename, nodeID}, b.changes[0])
}

func TestRenameMissingNode(t *testing.T) {
	st := new(MockStore)
	svc := filetree.NewService(st, &recordingBroadcaster{})

	nodeID := uuid.New()
	st.On("FileNode", mock.Anything, nodeID).Return(models.FileNode{}, store.ErrNotFound)

	assert.ErrorIs(t, svc.Rename(context.Background(), nodeID, "app.py"), filetree.ErrNodeNotFound)
}

func TestRenameOfRowDeletedUnderneathReportsNotFound(t *testing.T) {
	st := new(MockStore)
	b := &recordingBroadcaster{}
	svc := filetree.NewService(st, b)

	nodeID := uuid.New()
	st.On("FileNode", mock.Anything, nodeID).Return(models.FileNode{ID: nodeID, ProjectID: uuid.New()}, nil)
	// The row vanished after the lookup, before the update ran.
	st.On("RenameFileNode", mock.Anything, nodeID, "app.py").Return(store.ErrNotFound)

	assert.ErrorIs(t, svc.Rename(context.Background(), nodeID, "app.py"), filetree.ErrNodeNotFound)
	assert.Empty(t, b.changes)
}

func TestDeleteOfRowDeletedUnderneathReportsNotFound(t *testing.T) {
	st := new(MockStore)
	b := &recordingBroadcaster{}
	svc := filetree.NewService(st, b)

	nodeID := uuid.New()
	st.On("FileNode", mock.Anything, nodeID).Return(models.FileNode{ID: nodeID, ProjectID: uuid.New()}, nil)
	// An empty closure means the subtree was already removed.
	st.On("Descendants", mock.Anything, nodeID).Return([]uuid.UUID{}, nil)

	assert.ErrorIs(t, svc.Delete(context.Background(), nodeID), filetree.ErrNodeNotFound)
	st.AssertNotCalled(t, "DeleteFileNodes", mock.Anything, mock.Anything)
	assert.Empty(t, b.changes)
}

func TestDeleteRemovesFullClosure(t *testing.T) {
	st := new(MockStore)
	b := &recordingBroadcaster{}
	svc := filetree.NewService(st, b)

	projectID := uuid.New()
	folder := uuid.New()
	childFile := uuid.New()
	grandchild := uuid.New()
	closure := []uuid.UUID{folder, childFile, grandchild}

	st.On("FileNode", mock.Anything, folder).Return(models.FileNode{ID: folder, ProjectID: projectID, IsFolder: true}, nil)
	st.On("Descendants", mock.Anything, folder).Return(closure, nil)
	st.On("DeleteFileNodes", mock.Anything, closure).Return(nil)

	require.NoError(t, svc.Delete(context.Background(), folder))

	require.Len(t, b.changes, 1)
	assert.Equal(t, treeChange{projectID, filetree.ChangeDelete, folder}, b.changes[0])
	st.AssertExpectations(t)
}

func TestDeleteMissingNode(t *testing.T) {
	st := new(MockStore)
	b := &recordingBroadcaster{}
	svc := filetree.NewService(st, b)

	nodeID := uuid.New()
	st.On("FileNode", mock.Anything, nodeID).Return(models.FileNode{}, store.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(context.Background(), nodeID), filetree.ErrNodeNotFound)
	assert.Empty(t, b.changes)
}

func TestDeleteFailureDoesNotBroadcast(t *testing.T) {
	st := new(MockStore)
	b := &recordingBroadcaster{}
	svc := filetree.NewService(st, b)

	nodeID := uuid.New()
	st.On("FileNode", mock.Anything, nodeID).Return(models.FileNode{ID: nodeID, ProjectID: uuid.New()}, nil)
	st.On("Descendants", mock.Anything, nodeID).Return([]uuid.UUID{nodeID}, nil)
	st.On("DeleteFileNodes", mock.Anything, []uuid.UUID{nodeID}).Return(assert.AnError)

	assert.Error(t, svc.Delete(context.Background(), nodeID))
	assert.Empty(t, b.changes)
}
