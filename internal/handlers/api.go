package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"codehive/backend/internal/filetree"
	"codehive/backend/internal/presence"
	"codehive/backend/internal/store"
	"codehive/backend/internal/ws"
)

// API carries the dependencies every HTTP handler needs.
type API struct {
	Store     *store.Store
	Hub       *ws.Hub
	Tree      *filetree.Service
	Presence  *presence.Registry
	Log       *zap.Logger
	JWTSecret string
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
