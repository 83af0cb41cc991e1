package ws

import (
	"encoding/json"

	"github.com/google/uuid"

	"codehive/backend/internal/models"
)

// Envelope is the wire format for every realtime message, both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Client-initiated events.
const (
	EvtJoinProject = "join-project"
	EvtLeaveNotice = "leave-project-notice"
	EvtTreeAdd     = "file-explorer:add"
	EvtTreeDelete  = "file-explorer:delete"
	EvtTreeRename  = "file-explorer:rename"
	EvtFileEdit    = "file-edit"
	EvtCursorMove  = "cursor-move"
	EvtCursorClear = "cursor-clear"
	EvtFileJoin    = "file-join"
	EvtFileLeave   = "file-leave"
	EvtChatSend    = "chat-send"
)

// Server-initiated events. Acks go only to the initiating connection;
// everything else is room fan-out.
const (
	EvtPeerJoined        = "peer-joined"
	EvtPeerJoinedAck     = "peer-joined-ack"
	EvtPeerLeft          = "peer-left"
	EvtTreeChanged       = "file_tree_changed"
	EvtTreeAddAck        = "file-explorer:add-ack"
	EvtTreeDeleteAck     = "file-explorer:delete-ack"
	EvtTreeRenameAck     = "file-explorer:rename-ack"
	EvtPeerFileJoined    = "peer-file-joined"
	EvtPeerFileLeft      = "peer-file-left"
	EvtPresenceSnapshot  = "presence-snapshot"
	EvtChatReceive       = "chat-receive"
	EvtError             = "error"
	EvtPermissionUpdated = "permission_updated"
	EvtForceDisconnect   = "force_disconnect"
)

type JoinProjectPayload struct {
	ProjectID uuid.UUID `json:"projectId"`
	Avatar    string    `json:"avatar"`
}

type PeerJoinedPayload struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type PeerLeftPayload struct {
	Username string `json:"username"`
}

type FileRefPayload struct {
	FileID uuid.UUID `json:"fileId"`
}

type TreeAddPayload struct {
	ParentID *uuid.UUID `json:"parentId"`
	Name     string     `json:"name"`
	IsFolder bool       `json:"isFolder"`
}

type TreeRenamePayload struct {
	NodeID  uuid.UUID `json:"nodeId"`
	NewName string    `json:"newName"`
}

type TreeDeletePayload struct {
	NodeID uuid.UUID `json:"nodeId"`
}

// TreeAckPayload answers a file-explorer request on the initiating
// connection. Rejections ride here and are never broadcast.
type TreeAckPayload struct {
	OK    bool             `json:"ok"`
	Node  *models.FileNode `json:"node,omitempty"`
	Error string           `json:"error,omitempty"`
}

type TreeChangedPayload struct {
	ChangeType string    `json:"type"`
	NodeID     uuid.UUID `json:"nodeId"`
	ProjectID  uuid.UUID `json:"projectId"`
}

type EditLogPayload struct {
	Origin   string `json:"origin"`
	Removed  string `json:"removed"`
	Inserted string `json:"inserted"`
	FromLine int    `json:"fromLine"`
	FromCol  int    `json:"fromCol"`
	ToLine   int    `json:"toLine"`
	ToCol    int    `json:"toCol"`
}

type FileEditPayload struct {
	FileID   uuid.UUID       `json:"fileId"`
	Text     string          `json:"text"`
	LogEntry *EditLogPayload `json:"logEntry,omitempty"`
	Username string          `json:"username,omitempty"` // stamped on rebroadcast
}

type CursorMovePayload struct {
	FileID   uuid.UUID             `json:"fileId"`
	Position models.CursorPosition `json:"position"`
	Username string                `json:"username,omitempty"` // stamped on rebroadcast
}

type CursorClearPayload struct {
	FileID   *uuid.UUID `json:"fileId,omitempty"`
	Username string     `json:"username"`
}

type PeerFilePayload struct {
	FileID   uuid.UUID `json:"fileId"`
	Username string    `json:"username"`
	Role     string    `json:"role,omitempty"`
}

// PresenceSnapshotPayload gives a file joiner the current live peers plus the
// last known cursor of each, so stale cursors are re-displayed immediately.
type PresenceSnapshotPayload struct {
	FileID  uuid.UUID                        `json:"fileId"`
	Peers   []models.PresenceRow             `json:"peers"`
	Cursors map[string]models.CursorPosition `json:"cursors"`
}

type ChatSendPayload struct {
	Message string `json:"message"`
	Time    string `json:"time,omitempty"`
}

type ErrorPayload struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

func mustEnvelope(eventType string, payload any) []byte {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	data, err := json.Marshal(Envelope{Type: eventType, Payload: raw})
	if err != nil {
		return nil
	}
	return data
}
