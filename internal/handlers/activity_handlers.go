package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"codehive/backend/internal/models"
)

const defaultHistoryLimit = 100

func historyLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 500 {
		return defaultHistoryLimit
	}
	return limit
}

func (a *API) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
	if err != nil {
		http.Error(w, "Invalid project ID", http.StatusBadRequest)
		return
	}

	messages, err := a.Store.ChatHistory(r.Context(), projectID, historyLimit(r))
	if err != nil {
		a.Log.Error("chat history fetch failed", zap.Error(err))
		http.Error(w, "Failed to retrieve chat history", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (a *API) GetEditLog(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(chi.URLParam(r, "fileId"))
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	entries, err := a.Store.EditLogForFile(r.Context(), fileID, historyLimit(r))
	if err != nil {
		a.Log.Error("edit log fetch failed", zap.Error(err))
		http.Error(w, "Failed to retrieve edit log", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.EditLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
