package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"codehive/backend/internal/middleware"
	"codehive/backend/internal/store"
	"codehive/backend/internal/ws"
)

func (a *API) CreateProject(w http.ResponseWriter, r *http.Request) {
	userIDStr, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		http.Error(w, "Could not retrieve user ID from context", http.StatusInternalServerError)
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(w, "Invalid user ID in token", http.StatusInternalServerError)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Project name is required", http.StatusBadRequest)
		return
	}

	project, err := a.Store.CreateProject(r.Context(), req.Name, userID)
	if err != nil {
		a.Log.Error("project creation failed", zap.Error(err))
		http.Error(w, "Failed to create project", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, project)
}

func (a *API) GetUserProjects(w http.ResponseWriter, r *http.Request) {
	userIDStr, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		http.Error(w, "Could not retrieve user ID from context", http.StatusInternalServerError)
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(w, "Invalid user ID in token", http.StatusInternalServerError)
		return
	}

	projects, err := a.Store.ProjectsForUser(r.Context(), userID)
	if err != nil {
		a.Log.Error("project listing failed", zap.Error(err))
		http.Error(w, "Failed to retrieve projects", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (a *API) RenameProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
	if err != nil {
		http.Error(w, "Invalid project ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Project name cannot be empty", http.StatusBadRequest)
		return
	}

	if err := a.Store.RenameProject(r.Context(), projectID, req.Name); err != nil {
		a.Log.Error("project rename failed", zap.Error(err))
		http.Error(w, "Failed to rename project", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API) DeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
	if err != nil {
		http.Error(w, "Invalid project ID", http.StatusBadRequest)
		return
	}

	if err := a.Store.DeleteProject(r.Context(), projectID); err != nil {
		a.Log.Error("project delete failed", zap.Error(err))
		http.Error(w, "Failed to delete project", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) GetProjectMembers(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
	if err != nil {
		http.Error(w, "Invalid project ID", http.StatusBadRequest)
		return
	}

	members, err := a.Store.ProjectMembers(r.Context(), projectID)
	if err != nil {
		a.Log.Error("member listing failed", zap.Error(err))
		http.Error(w, "Failed to retrieve project members", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (a *API) GetUserRoleForProject(w http.ResponseWriter, r *http.Request) {
	userIDStr, _ := r.Context().Value(middleware.UserIDKey).(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(w, "Invalid user ID in token", http.StatusInternalServerError)
		return
	}
	projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
	if err != nil {
		http.Error(w, "Invalid project ID", http.StatusBadRequest)
		return
	}

	role, err := a.Store.MemberRole(r.Context(), projectID, userID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Could not find role for user in project", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to look up role", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"role": role})
}

func (a *API) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
	if err != nil {
		http.Error(w, "Invalid project ID", http.StatusBadRequest)
		return
	}
	memberID, err := uuid.Parse(chi.URLParam(r, "memberId"))
	if err != nil {
		http.Error(w, "Invalid member ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Role != "editor" && req.Role != "viewer" {
		http.Error(w, "Invalid role. Must be 'editor' or 'viewer'.", http.StatusBadRequest)
		return
	}

	ownerIDStr, _ := r.Context().Value(middleware.UserIDKey).(string)
	if ownerIDStr == memberID.String() {
		http.Error(w, "Project owner's role cannot be changed.", http.StatusBadRequest)
		return
	}

	if err := a.Store.UpdateMemberRole(r.Context(), projectID, memberID, req.Role); err != nil {
		a.Log.Error("member role update failed", zap.Error(err))
		http.Error(w, "Failed to update member role", http.StatusInternalServerError)
		return
	}

	// The stamped role on existing presence rows stays as it was; the user
	// sees the new role after rejoining.
	a.Hub.NotifyMember(projectID, memberID, ws.EvtPermissionUpdated, map[string]string{"newRole": req.Role})
	w.WriteHeader(http.StatusOK)
}

func (a *API) RemoveProjectMember(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
	if err != nil {
		http.Error(w, "Invalid project ID", http.StatusBadRequest)
		return
	}
	memberID, err := uuid.Parse(chi.URLParam(r, "memberId"))
	if err != nil {
		http.Error(w, "Invalid member ID", http.StatusBadRequest)
		return
	}

	ownerIDStr, _ := r.Context().Value(middleware.UserIDKey).(string)
	if ownerIDStr == memberID.String() {
		http.Error(w, "Project owner cannot be removed from the project.", http.StatusBadRequest)
		return
	}

	if err := a.Store.RemoveMember(r.Context(), projectID, memberID); err != nil {
		a.Log.Error("member removal failed", zap.Error(err))
		http.Error(w, "Failed to remove member", http.StatusInternalServerError)
		return
	}

	a.Hub.KickMember(projectID, memberID, "You have been removed from this project by the owner.")
	w.WriteHeader(http.StatusNoContent)
}
