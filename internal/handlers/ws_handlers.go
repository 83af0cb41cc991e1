package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"codehive/backend/internal/auth"
	"codehive/backend/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs authenticates the caller and hands the upgraded connection to the
// session gateway. The connection stays unbound until a join-project event
// arrives; membership checks happen there, not here.
func (a *API) ServeWs(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("auth_token")
	if tokenStr == "" {
		http.Error(w, "Missing auth_token query parameter", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ParseToken(a.JWTSecret, tokenStr)
	if err != nil {
		http.Error(w, "Invalid auth token", http.StatusUnauthorized)
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID in token", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	session := ws.NewSession(a.Hub, a.Store, a.Presence, a.Tree, a.Log)
	client := ws.NewClient(a.Hub, conn, session, userID, claims.Username, a.Log)

	go client.WritePump()
	go client.ReadPump()
}
