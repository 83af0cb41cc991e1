package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"codehive/backend/internal/models"
)

func newTestClient(hub *Hub, projectID uuid.UUID, username string) *Client {
	return &Client{
		ID:        uuid.NewString(),
		UserID:    uuid.New(),
		Username:  username,
		ProjectID: projectID,
		hub:       hub,
		log:       zap.NewNop(),
		Send:      make(chan []byte, sendBufferSize),
	}
}

func recvEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case data := <-c.Send:
		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return Envelope{}
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zap.NewNop())
	go hub.Run()
	return hub
}

func register(hub *Hub, clients ...*Client) {
	for _, c := range clients {
		hub.Join(c)
	}
}

func TestToRoomReachesEveryMember(t *testing.T) {
	hub := startHub(t)
	projectID := uuid.New()
	a := newTestClient(hub, projectID, "alice")
	b := newTestClient(hub, projectID, "bob")
	register(hub, a, b)

	hub.ToRoom(projectID, EvtChatReceive, map[string]string{"message": "hi"})

	for _, c := range []*Client{a, b} {
		env := recvEnvelope(t, c)
		assert.Equal(t, EvtChatReceive, env.Type)
	}
}

func TestToRoomExceptSenderSkipsSender(t *testing.T) {
	hub := startHub(t)
	projectID := uuid.New()
	a := newTestClient(hub, projectID, "alice")
	b := newTestClient(hub, projectID, "bob")
	register(hub, a, b)

	hub.ToRoomExceptSender(a, EvtPeerJoined, PeerJoinedPayload{Username: "alice"})

	env := recvEnvelope(t, b)
	assert.Equal(t, EvtPeerJoined, env.Type)
	assertNoFrame(t, a)
}

func TestToRoomDoesNotCrossProjects(t *testing.T) {
	hub := startHub(t)
	projectA := uuid.New()
	projectB := uuid.New()
	a := newTestClient(hub, projectA, "alice")
	b := newTestClient(hub, projectB, "bob")
	register(hub, a, b)

	hub.ToRoom(projectA, EvtChatReceive, map[string]string{"message": "hi"})

	recvEnvelope(t, a)
	assertNoFrame(t, b)
}

func TestToConnTargetsSingleClient(t *testing.T) {
	hub := startHub(t)
	projectID := uuid.New()
	a := newTestClient(hub, projectID, "alice")
	b := newTestClient(hub, projectID, "bob")
	register(hub, a, b)

	hub.ToConn(a, EvtPeerJoinedAck, map[string]string{"role": "owner"})

	env := recvEnvelope(t, a)
	assert.Equal(t, EvtPeerJoinedAck, env.Type)
	assertNoFrame(t, b)
}

func TestUnregisterNeverRegisteredClientIsSafe(t *testing.T) {
	hub := startHub(t)
	// A connection that drops before join-project has a zero ProjectID and no
	// room membership. Leave must not panic or close anything twice.
	c := newTestClient(hub, uuid.Nil, "ghost")
	hub.Leave(c)

	// The hub loop must still be alive afterwards.
	projectID := uuid.New()
	a := newTestClient(hub, projectID, "alice")
	register(hub, a)
	hub.ToRoom(projectID, EvtChatReceive, map[string]string{"message": "still here"})
	recvEnvelope(t, a)
}

func TestUnregisterStopsDelivery(t *testing.T) {
	hub := startHub(t)
	projectID := uuid.New()
	a := newTestClient(hub, projectID, "alice")
	b := newTestClient(hub, projectID, "bob")
	register(hub, a, b)

	hub.Leave(b)
	hub.ToRoom(projectID, EvtChatReceive, map[string]string{"message": "hi"})

	recvEnvelope(t, a)
	// b's Send channel was closed by drop; any pending reads yield zero values.
	select {
	case data, ok := <-b.Send:
		assert.False(t, ok, "expected closed channel, got frame: %s", data)
	case <-time.After(time.Second):
		t.Fatal("expected b.Send to be closed")
	}
}

func TestSlowClientIsEvicted(t *testing.T) {
	hub := startHub(t)
	projectID := uuid.New()
	a := newTestClient(hub, projectID, "alice")
	slow := newTestClient(hub, projectID, "snail")
	slow.Send = make(chan []byte) // unbuffered and never drained
	register(hub, a, slow)

	hub.ToRoom(projectID, EvtChatReceive, map[string]string{"message": "hi"})
	recvEnvelope(t, a)

	// The slow client is out of the room; later frames only reach a.
	hub.ToRoom(projectID, EvtChatReceive, map[string]string{"message": "again"})
	recvEnvelope(t, a)
	assert.True(t, slow.closed.Load())
}

func TestFileTreeChangedBroadcastsPayload(t *testing.T) {
	hub := startHub(t)
	projectID := uuid.New()
	a := newTestClient(hub, projectID, "alice")
	register(hub, a)

	nodeID := uuid.New()
	hub.FileTreeChanged(projectID, "rename", nodeID)

	env := recvEnvelope(t, a)
	require.Equal(t, EvtTreeChanged, env.Type)

	var payload TreeChangedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "rename", payload.ChangeType)
	assert.Equal(t, nodeID, payload.NodeID)
	assert.Equal(t, projectID, payload.ProjectID)
}

func TestFileTreeDeleteClearsCursors(t *testing.T) {
	hub := startHub(t)
	projectID := uuid.New()
	fileID := uuid.New()
	hub.cursors.Set(fileID, "alice", models.CursorPosition{Line: 3, Column: 7})

	hub.FileTreeChanged(projectID, "delete", fileID)

	assert.Empty(t, hub.cursors.Snapshot(fileID))
}

// A member must be addressable the moment Join returns: role-change
// notifications fired right after registration may not be dropped.
func TestNotifyMemberReachesOnlyThatMember(t *testing.T) {
	hub := startHub(t)
	projectID := uuid.New()
	a := newTestClient(hub, projectID, "alice")
	b := newTestClient(hub, projectID, "bob")
	register(hub, a, b)

	hub.NotifyMember(projectID, b.UserID, EvtPermissionUpdated, map[string]string{"role": "viewer"})

	env := recvEnvelope(t, b)
	assert.Equal(t, EvtPermissionUpdated, env.Type)
	assertNoFrame(t, a)
}

func TestNotifyUnknownMemberIsNoop(t *testing.T) {
	hub := startHub(t)
	hub.NotifyMember(uuid.New(), uuid.New(), EvtPermissionUpdated, map[string]string{"role": "viewer"})
}

func TestKickMemberSeversOnlyThatProjectsConnection(t *testing.T) {
	hub := startHub(t)
	userID := uuid.New()
	projectA := uuid.New()
	projectB := uuid.New()
	a := newTestClient(hub, projectA, "alice")
	a.UserID = userID
	b := newTestClient(hub, projectB, "alice")
	b.UserID = userID
	register(hub, a, b)

	hub.KickMember(projectA, userID, "removed by owner")

	env := recvEnvelope(t, a)
	assert.Equal(t, EvtForceDisconnect, env.Type)
	assertNoFrame(t, b)

	// The user's connection into the other project is still addressable.
	hub.NotifyMember(projectB, userID, EvtPermissionUpdated, map[string]string{"role": "viewer"})
	env = recvEnvelope(t, b)
	assert.Equal(t, EvtPermissionUpdated, env.Type)
}

func TestCursorCache(t *testing.T) {
	cache := newCursorCache()
	fileA := uuid.New()
	fileB := uuid.New()

	cache.Set(fileA, "alice", models.CursorPosition{Line: 1, Column: 2})
	cache.Set(fileA, "bob", models.CursorPosition{Line: 5, Column: 0})
	cache.Set(fileB, "alice", models.CursorPosition{Line: 9, Column: 9})

	snap := cache.Snapshot(fileA)
	require.Len(t, snap, 2)
	assert.Equal(t, models.CursorPosition{Line: 1, Column: 2}, snap["alice"])

	// Snapshot is a copy; mutating it must not leak back.
	snap["alice"] = models.CursorPosition{Line: 99, Column: 99}
	assert.Equal(t, models.CursorPosition{Line: 1, Column: 2}, cache.Snapshot(fileA)["alice"])

	cache.Clear(fileA, "bob")
	assert.Len(t, cache.Snapshot(fileA), 1)

	cache.ClearUser("alice")
	assert.Empty(t, cache.Snapshot(fileA))
	assert.Empty(t, cache.Snapshot(fileB))

	cache.Set(fileB, "bob", models.CursorPosition{Line: 1, Column: 1})
	cache.ClearFile(fileB)
	assert.Empty(t, cache.Snapshot(fileB))
}
