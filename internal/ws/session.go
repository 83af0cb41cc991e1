package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codehive/backend/internal/models"
	"codehive/backend/internal/store"
)

// Store is the slice of the persistence adapter the gateway needs.
type Store interface {
	MemberRole(ctx context.Context, projectID, userID uuid.UUID) (string, error)
	TouchMemberLastOpened(ctx context.Context, projectID, userID uuid.UUID) error
	SaveFileContent(ctx context.Context, fileID uuid.UUID, content string) error
	AppendEditLog(ctx context.Context, entry models.EditLogEntry) error
	AppendChatMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error)
}

// Presence is the registry surface the gateway drives.
type Presence interface {
	JoinFile(ctx context.Context, projectID, fileID uuid.UUID, username string) (models.PresenceRow, error)
	LeaveFile(ctx context.Context, fileID uuid.UUID, username string) error
	ListLive(ctx context.Context, fileID uuid.UUID) ([]models.PresenceRow, error)
	SetLive(ctx context.Context, username string, live bool) error
}

// Tree is the mutation protocol surface the gateway drives.
type Tree interface {
	Add(ctx context.Context, projectID uuid.UUID, parentID *uuid.UUID, name string, isFolder bool) (models.FileNode, error)
	Rename(ctx context.Context, nodeID uuid.UUID, newName string) error
	Delete(ctx context.Context, nodeID uuid.UUID) error
}

// binding is the bound half of the session state machine. A session starts
// unbound (nil) and binds at most once, on join-project.
type binding struct {
	projectID uuid.UUID
	username  string
	avatar    string
	role      string
}

// Session is the connection-lifecycle state machine. All Handle calls arrive
// on the connection's read goroutine, so binding needs no lock.
type Session struct {
	client   *Client
	hub      *Hub
	store    Store
	presence Presence
	tree     Tree
	log      *zap.Logger

	binding      *binding
	disconnected bool
}

func NewSession(hub *Hub, st Store, pr Presence, tr Tree, log *zap.Logger) *Session {
	return &Session{hub: hub, store: st, presence: pr, tree: tr, log: log}
}

// Handle dispatches one inbound envelope.
func (s *Session) Handle(env Envelope) {
	ctx := context.Background()

	switch env.Type {
	case EvtJoinProject:
		s.handleJoinProject(ctx, env.Payload)
	case EvtLeaveNotice:
		s.handleLeaveNotice()
	case EvtFileJoin:
		s.handleFileJoin(ctx, env.Payload)
	case EvtFileLeave:
		s.handleFileLeave(ctx, env.Payload)
	case EvtFileEdit:
		s.handleFileEdit(env.Payload)
	case EvtCursorMove:
		s.handleCursorMove(env.Payload)
	case EvtCursorClear:
		s.handleCursorClear(env.Payload)
	case EvtChatSend:
		s.handleChatSend(env.Payload)
	case EvtTreeAdd:
		s.handleTreeAdd(ctx, env.Payload)
	case EvtTreeRename:
		s.handleTreeRename(ctx, env.Payload)
	case EvtTreeDelete:
		s.handleTreeDelete(ctx, env.Payload)
	default:
		s.log.Debug("ignoring unknown event", zap.String("event", env.Type))
	}
}

func (s *Session) sendError(event, message string) {
	s.hub.ToConn(s.client, EvtError, ErrorPayload{Event: event, Message: message})
}

// requireBinding rejects events sent before join-project completed.
func (s *Session) requireBinding(event string) *binding {
	if s.binding == nil {
		s.sendError(event, "join-project must complete first")
		return nil
	}
	return s.binding
}

func (s *Session) handleJoinProject(ctx context.Context, raw json.RawMessage) {
	// Rebinding a live connection to another project is an explicit error,
	// not a silent rebind.
	if s.binding != nil {
		s.sendError(EvtJoinProject, "connection is already bound to a project")
		return
	}

	var payload JoinProjectPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.ProjectID == uuid.Nil {
		s.sendError(EvtJoinProject, "invalid join-project payload")
		return
	}

	role, err := s.store.MemberRole(ctx, payload.ProjectID, s.client.UserID)
	if errors.Is(err, store.ErrNotFound) {
		s.sendError(EvtJoinProject, "not a member of this project")
		return
	}
	if err != nil {
		s.log.Error("membership lookup failed", zap.Error(err))
		s.sendError(EvtJoinProject, "failed to verify project membership")
		return
	}

	s.binding = &binding{
		projectID: payload.ProjectID,
		username:  s.client.Username,
		avatar:    payload.Avatar,
		role:      role,
	}
	s.client.ProjectID = payload.ProjectID
	s.hub.Join(s.client)

	if err := s.store.TouchMemberLastOpened(ctx, payload.ProjectID, s.client.UserID); err != nil {
		s.log.Warn("failed to touch last-opened timestamp", zap.Error(err))
	}

	s.hub.ToRoomExceptSender(s.client, EvtPeerJoined, PeerJoinedPayload{
		Username: s.binding.username,
		Avatar:   s.binding.avatar,
	})
	s.hub.ToConn(s.client, EvtPeerJoinedAck, map[string]string{
		"projectId": payload.ProjectID.String(),
		"username":  s.binding.username,
		"role":      role,
	})
}

func (s *Session) handleLeaveNotice() {
	b := s.requireBinding(EvtLeaveNotice)
	if b == nil {
		return
	}
	s.hub.ToRoomExceptSender(s.client, EvtLeaveNotice, PeerLeftPayload{Username: b.username})
}

func (s *Session) handleFileJoin(ctx context.Context, raw json.RawMessage) {
	b := s.requireBinding(EvtFileJoin)
	if b == nil {
		return
	}
	var payload FileRefPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.FileID == uuid.Nil {
		s.sendError(EvtFileJoin, "invalid file-join payload")
		return
	}

	row, err := s.presence.JoinFile(ctx, b.projectID, payload.FileID, b.username)
	if err != nil {
		s.log.Error("file join failed", zap.String("username", b.username), zap.Error(err))
		s.sendError(EvtFileJoin, "failed to join file")
		return
	}

	peers, err := s.presence.ListLive(ctx, payload.FileID)
	if err != nil {
		s.log.Warn("live presence listing failed", zap.Error(err))
	}
	s.hub.ToConn(s.client, EvtPresenceSnapshot, PresenceSnapshotPayload{
		FileID:  payload.FileID,
		Peers:   peers,
		Cursors: s.hub.cursors.Snapshot(payload.FileID),
	})
	s.hub.ToRoomExceptSender(s.client, EvtPeerFileJoined, PeerFilePayload{
		FileID:   payload.FileID,
		Username: b.username,
		Role:     row.Role,
	})
}

func (s *Session) handleFileLeave(ctx context.Context, raw json.RawMessage) {
	b := s.requireBinding(EvtFileLeave)
	if b == nil {
		return
	}
	var payload FileRefPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.FileID == uuid.Nil {
		s.sendError(EvtFileLeave, "invalid file-leave payload")
		return
	}

	if err := s.presence.LeaveFile(ctx, payload.FileID, b.username); err != nil {
		s.log.Warn("file leave bookkeeping failed", zap.Error(err))
	}
	s.hub.cursors.Clear(payload.FileID, b.username)
	s.hub.ToRoomExceptSender(s.client, EvtPeerFileLeft, PeerFilePayload{
		FileID:   payload.FileID,
		Username: b.username,
	})
}

// handleFileEdit rebroadcasts the new full text to everyone else in the room
// before touching the store: broadcast latency is decoupled from persistence
// latency. There is no merge; the last broadcast text wins client-side.
func (s *Session) handleFileEdit(raw json.RawMessage) {
	b := s.requireBinding(EvtFileEdit)
	if b == nil {
		return
	}
	var payload FileEditPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.FileID == uuid.Nil {
		s.sendError(EvtFileEdit, "invalid file-edit payload")
		return
	}
	payload.Username = b.username
	s.hub.ToRoomExceptSender(s.client, EvtFileEdit, payload)

	// Persistence is detached from the connection: a disconnect mid-write
	// lets the write complete and discards nothing but the session.
	entry := models.EditLogEntry{
		FileID:    payload.FileID,
		ProjectID: b.projectID,
		Username:  b.username,
		Role:      b.role,
	}
	if payload.LogEntry != nil {
		entry.Origin = payload.LogEntry.Origin
		entry.Removed = payload.LogEntry.Removed
		entry.Inserted = payload.LogEntry.Inserted
		entry.FromLine = payload.LogEntry.FromLine
		entry.FromCol = payload.LogEntry.FromCol
		entry.ToLine = payload.LogEntry.ToLine
		entry.ToCol = payload.LogEntry.ToCol
	}
	text := payload.Text
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.store.SaveFileContent(ctx, entry.FileID, text); err != nil {
			s.log.Error("failed to save file content", zap.String("file", entry.FileID.String()), zap.Error(err))
		}
		if err := s.store.AppendEditLog(ctx, entry); err != nil {
			s.log.Error("failed to append edit log", zap.String("file", entry.FileID.String()), zap.Error(err))
		}
	}()
}

func (s *Session) handleCursorMove(raw json.RawMessage) {
	b := s.requireBinding(EvtCursorMove)
	if b == nil {
		return
	}
	var payload CursorMovePayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.FileID == uuid.Nil {
		return
	}
	payload.Username = b.username
	s.hub.cursors.Set(payload.FileID, b.username, payload.Position)
	s.hub.ToRoom(b.projectID, EvtCursorMove, payload)
}

func (s *Session) handleCursorClear(raw json.RawMessage) {
	b := s.requireBinding(EvtCursorClear)
	if b == nil {
		return
	}
	var payload CursorClearPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	if payload.FileID != nil {
		s.hub.cursors.Clear(*payload.FileID, b.username)
	} else {
		s.hub.cursors.ClearUser(b.username)
	}
	payload.Username = b.username
	s.hub.ToRoomExceptSender(s.client, EvtCursorClear, payload)
}

// handleChatSend fans the message out to the whole room, sender included,
// then appends the durable record off the hot path.
func (s *Session) handleChatSend(raw json.RawMessage) {
	b := s.requireBinding(EvtChatSend)
	if b == nil {
		return
	}
	var payload ChatSendPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Message == "" {
		return
	}

	msg := models.ChatMessage{
		ProjectID: b.projectID,
		Username:  b.username,
		Role:      b.role,
		Message:   payload.Message,
		CreatedAt: time.Now().UTC(),
	}
	s.hub.ToRoom(b.projectID, EvtChatReceive, msg)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.store.AppendChatMessage(ctx, msg); err != nil {
			s.log.Error("failed to persist chat message", zap.Error(err))
		}
	}()
}

func (s *Session) handleTreeAdd(ctx context.Context, raw json.RawMessage) {
	b := s.requireBinding(EvtTreeAdd)
	if b == nil {
		return
	}
	var payload TreeAddPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.hub.ToConn(s.client, EvtTreeAddAck, TreeAckPayload{Error: "invalid payload"})
		return
	}

	node, err := s.tree.Add(ctx, b.projectID, payload.ParentID, payload.Name, payload.IsFolder)
	if err != nil {
		s.hub.ToConn(s.client, EvtTreeAddAck, TreeAckPayload{Error: err.Error()})
		return
	}
	s.hub.ToConn(s.client, EvtTreeAddAck, TreeAckPayload{OK: true, Node: &node})
}

func (s *Session) handleTreeRename(ctx context.Context, raw json.RawMessage) {
	b := s.requireBinding(EvtTreeRename)
	if b == nil {
		return
	}
	var payload TreeRenamePayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.NodeID == uuid.Nil {
		s.hub.ToConn(s.client, EvtTreeRenameAck, TreeAckPayload{Error: "invalid payload"})
		return
	}

	if err := s.tree.Rename(ctx, payload.NodeID, payload.NewName); err != nil {
		s.hub.ToConn(s.client, EvtTreeRenameAck, TreeAckPayload{Error: err.Error()})
		return
	}
	s.hub.ToConn(s.client, EvtTreeRenameAck, TreeAckPayload{OK: true})
}

func (s *Session) handleTreeDelete(ctx context.Context, raw json.RawMessage) {
	b := s.requireBinding(EvtTreeDelete)
	if b == nil {
		return
	}
	var payload TreeDeletePayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.NodeID == uuid.Nil {
		s.hub.ToConn(s.client, EvtTreeDeleteAck, TreeAckPayload{Error: "invalid payload"})
		return
	}

	if err := s.tree.Delete(ctx, payload.NodeID); err != nil {
		s.hub.ToConn(s.client, EvtTreeDeleteAck, TreeAckPayload{Error: err.Error()})
		return
	}
	s.hub.ToConn(s.client, EvtTreeDeleteAck, TreeAckPayload{OK: true})
}

// HandleDisconnect runs unconditionally when the connection drops, even if
// join-project never completed, and must never fail: peers need the leave
// signal whether or not the bookkeeping succeeds, and a dropped connection
// cannot retry. Every step is best-effort.
func (s *Session) HandleDisconnect() {
	if s.disconnected {
		return
	}
	s.disconnected = true

	b := s.binding
	if b == nil {
		// Never bound: no room, nothing to announce or clean up.
		return
	}

	s.hub.ToRoomExceptSender(s.client, EvtPeerLeft, PeerLeftPayload{Username: b.username})
	s.hub.ToRoomExceptSender(s.client, EvtCursorClear, CursorClearPayload{Username: b.username})
	s.hub.cursors.ClearUser(b.username)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.presence.SetLive(ctx, b.username, false); err != nil {
		s.log.Warn("presence teardown failed",
			zap.String("username", b.username), zap.Error(err))
	}
}
