package ws

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// delivery is one fan-out request. exclude is a connection id ("" means
// everyone in the room); remote marks frames that arrived over the bridge so
// they are not republished.
type delivery struct {
	projectID uuid.UUID
	exclude   string
	data      []byte
	remote    bool
}

// memberKey identifies one user's connection within one project room. A user
// holding connections into several projects has one entry per project.
type memberKey struct {
	projectID uuid.UUID
	userID    uuid.UUID
}

// Hub maps each project to its room of active connections and delivers
// events to all members, all but the sender, or a single connection.
// Delivery is best-effort and at-most-once: a member whose send buffer is
// full is dropped and evicted.
type Hub struct {
	register   chan *Client
	unregister chan *Client

	broadcast chan delivery
	rooms     map[uuid.UUID]map[string]*Client // projectID -> connID -> client
	cursors   *cursorCache
	bridge    *Bridge
	log       *zap.Logger

	// byMember lets REST handlers reach a connected member directly for role
	// change notifications. Written in Join before the client reaches the Run
	// loop, so a caller that bound a client can address it as soon as Join
	// returns.
	mu       sync.RWMutex
	byMember map[memberKey]*Client
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan delivery, 64),
		rooms:      make(map[uuid.UUID]map[string]*Client),
		cursors:    newCursorCache(),
		byMember:   make(map[memberKey]*Client),
		log:        log,
	}
}

// SetBridge attaches the cross-instance broadcast bridge. Call before Run.
func (h *Hub) SetBridge(b *Bridge) {
	h.bridge = b
}

// Join makes the client addressable by (project, user) and hands it to the
// Run loop for room membership. The byMember insert happens synchronously so
// NotifyMember and KickMember never miss a client whose Join has returned.
func (h *Hub) Join(client *Client) {
	h.mu.Lock()
	h.byMember[memberKey{client.ProjectID, client.UserID}] = client
	h.mu.Unlock()
	h.register <- client
}

// Leave removes the client from its room. Safe for clients that never joined.
func (h *Hub) Leave(client *Client) {
	h.unregister <- client
}

// forgetMember drops the byMember entry if it still points at this client.
// A rejoin may have already replaced it; the identity check keeps a stale
// drop from evicting the replacement.
func (h *Hub) forgetMember(client *Client) {
	key := memberKey{client.ProjectID, client.UserID}
	h.mu.Lock()
	if h.byMember[key] == client {
		delete(h.byMember, key)
	}
	h.mu.Unlock()
}

func (h *Hub) Run() {
	if h.bridge != nil {
		go h.bridge.Listen(h)
	}
	for {
		select {
		case client := <-h.register:
			room, ok := h.rooms[client.ProjectID]
			if !ok {
				room = make(map[string]*Client)
				h.rooms[client.ProjectID] = room
			}
			room[client.ID] = client
			h.log.Info("client joined room",
				zap.String("username", client.Username),
				zap.String("project", client.ProjectID.String()))

		case client := <-h.unregister:
			h.drop(client)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// drop tolerates clients that never joined a room: a connection that
// disconnects before join-project has no membership to remove.
func (h *Hub) drop(client *Client) {
	h.forgetMember(client)
	room, ok := h.rooms[client.ProjectID]
	if !ok {
		return
	}
	if current, ok := room[client.ID]; !ok || current != client {
		return
	}
	delete(room, client.ID)
	if len(room) == 0 {
		delete(h.rooms, client.ProjectID)
	}
	client.close()
	h.log.Info("client left room",
		zap.String("username", client.Username),
		zap.String("project", client.ProjectID.String()))
}

func (h *Hub) deliver(msg delivery) {
	room, ok := h.rooms[msg.projectID]
	if ok {
		for id, client := range room {
			if id == msg.exclude {
				continue
			}
			select {
			case client.Send <- msg.data:
			default:
				// Slow consumer: evict rather than block the loop.
				delete(room, id)
				h.forgetMember(client)
				client.close()
				h.log.Warn("evicted slow client", zap.String("username", client.Username))
			}
		}
		if len(room) == 0 {
			delete(h.rooms, msg.projectID)
		}
	}
	if h.bridge != nil && !msg.remote {
		h.bridge.Publish(msg.projectID, msg.data)
	}
}

// ToRoom delivers an event to every member of the project's room.
func (h *Hub) ToRoom(projectID uuid.UUID, eventType string, payload any) {
	data := mustEnvelope(eventType, payload)
	if data == nil {
		h.log.Error("failed to encode event", zap.String("event", eventType))
		return
	}
	h.broadcast <- delivery{projectID: projectID, data: data}
}

// ToRoomExceptSender delivers an event to every room member but the sender.
func (h *Hub) ToRoomExceptSender(sender *Client, eventType string, payload any) {
	data := mustEnvelope(eventType, payload)
	if data == nil {
		h.log.Error("failed to encode event", zap.String("event", eventType))
		return
	}
	h.broadcast <- delivery{projectID: sender.ProjectID, exclude: sender.ID, data: data}
}

// ToConn delivers an event to a single connection, bypassing room fan-out.
// Used for acks and snapshots.
func (h *Hub) ToConn(client *Client, eventType string, payload any) {
	data := mustEnvelope(eventType, payload)
	if data == nil {
		h.log.Error("failed to encode event", zap.String("event", eventType))
		return
	}
	client.trySend(data)
}

// injectRemote feeds a frame received from another instance into local
// delivery.
func (h *Hub) injectRemote(projectID uuid.UUID, data []byte) {
	h.broadcast <- delivery{projectID: projectID, data: data, remote: true}
}

// FileTreeChanged implements the tree mutation protocol's broadcaster:
// clients re-fetch the affected subtree on receipt rather than trusting an
// embedded diff.
func (h *Hub) FileTreeChanged(projectID uuid.UUID, changeType string, nodeID uuid.UUID) {
	h.ToRoom(projectID, EvtTreeChanged, TreeChangedPayload{
		ChangeType: changeType,
		NodeID:     nodeID,
		ProjectID:  projectID,
	})
	if changeType == "delete" {
		h.cursors.ClearFile(nodeID)
	}
}

// ClientForMember returns the user's active connection in the project, if any.
func (h *Hub) ClientForMember(projectID, userID uuid.UUID) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.byMember[memberKey{projectID, userID}]
	return client, ok
}

// NotifyMember sends an event straight to one user's connection in a project.
func (h *Hub) NotifyMember(projectID, userID uuid.UUID, eventType string, payload any) {
	client, ok := h.ClientForMember(projectID, userID)
	if !ok {
		return
	}
	h.ToConn(client, eventType, payload)
}

// KickMember tells the user's connection in this project why it is being
// disconnected, then severs it; connections the same user holds into other
// projects stay up. Teardown runs through the normal disconnect path.
func (h *Hub) KickMember(projectID, userID uuid.UUID, reason string) {
	client, ok := h.ClientForMember(projectID, userID)
	if !ok {
		return
	}
	h.ToConn(client, EvtForceDisconnect, map[string]string{"reason": reason})
	client.closeConn()
}
