package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // full-text edits ride the socket
	sendBufferSize = 256
)

// Client is one active websocket connection. ProjectID stays zero until the
// session binds it via join-project; room membership exists only after that.
type Client struct {
	ID        string
	UserID    uuid.UUID
	Username  string
	ProjectID uuid.UUID

	hub     *Hub
	conn    *websocket.Conn
	session *Session
	log     *zap.Logger

	Send      chan []byte
	sendMu    sync.RWMutex
	closeOnce sync.Once
	closed    atomic.Bool
}

func NewClient(hub *Hub, conn *websocket.Conn, session *Session, userID uuid.UUID, username string, log *zap.Logger) *Client {
	client := &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: username,
		hub:      hub,
		conn:     conn,
		session:  session,
		log:      log,
		Send:     make(chan []byte, sendBufferSize),
	}
	session.client = client
	return client
}

// trySend holds the read side of sendMu across the closed check and the send,
// so close cannot slip between them and leave a send on a closed channel.
func (c *Client) trySend(data []byte) {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.closed.Load() {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		c.closed.Store(true)
		close(c.Send)
		c.sendMu.Unlock()
	})
}

func (c *Client) closeConn() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// ReadPump decodes envelopes off the socket and hands them to the session in
// arrival order. Teardown runs unconditionally on exit, even for connections
// that never completed join-project.
func (c *Client) ReadPump() {
	defer func() {
		c.session.HandleDisconnect()
		c.hub.Leave(c)
		c.closeConn()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read failed", zap.String("username", c.Username), zap.Error(err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.log.Warn("dropping malformed envelope", zap.String("username", c.Username), zap.Error(err))
			continue
		}
		c.session.Handle(env)
	}
}

// WritePump drains Send onto the socket and keeps the connection alive with
// pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
