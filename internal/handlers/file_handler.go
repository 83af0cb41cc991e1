package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"codehive/backend/internal/filetree"
	"codehive/backend/internal/models"
	"codehive/backend/internal/store"
)

// GetFileTree returns the project's nodes assembled into a tree. Fetched flat
// with parent links, structured in memory.
func (a *API) GetFileTree(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
	if err != nil {
		http.Error(w, "Invalid project ID", http.StatusBadRequest)
		return
	}

	flat, err := a.Store.FileNodesForProject(r.Context(), projectID)
	if err != nil {
		a.Log.Error("file tree fetch failed", zap.Error(err))
		http.Error(w, "Failed to retrieve file structure", http.StatusInternalServerError)
		return
	}

	nodes := make(map[uuid.UUID]*models.FileNode, len(flat))
	for i := range flat {
		nodes[flat[i].ID] = &flat[i]
	}
	var tree []*models.FileNode
	for i := range flat {
		node := &flat[i]
		if node.ParentID == nil {
			tree = append(tree, node)
			continue
		}
		if parent, ok := nodes[*node.ParentID]; ok {
			parent.Children = append(parent.Children, node)
		}
	}

	writeJSON(w, http.StatusOK, tree)
}

// GetActiveTabs reports which file each live user has focused, for the
// initial page load; live updates arrive over the socket afterwards.
func (a *API) GetActiveTabs(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
	if err != nil {
		http.Error(w, "Invalid project ID", http.StatusBadRequest)
		return
	}

	tabs, err := a.Store.ActiveTabs(r.Context(), projectID)
	if err != nil {
		a.Log.Error("active tabs fetch failed", zap.Error(err))
		http.Error(w, "Failed to retrieve active tabs", http.StatusInternalServerError)
		return
	}
	if tabs == nil {
		tabs = []models.PresenceRow{}
	}
	writeJSON(w, http.StatusOK, tabs)
}

// CreateFileNode shares one code path with the websocket mutation: both go
// through the filetree service, which also fans out file_tree_changed.
func (a *API) CreateFileNode(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
	if err != nil {
		http.Error(w, "Invalid project ID", http.StatusBadRequest)
		return
	}

	var req struct {
		ParentID *uuid.UUID `json:"parentId"`
		IsFolder bool       `json:"isFolder"`
		Name     string     `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	node, err := a.Tree.Add(r.Context(), projectID, req.ParentID, req.Name, req.IsFolder)
	switch {
	case errors.Is(err, filetree.ErrRootCreation),
		errors.Is(err, filetree.ErrParentNotFound),
		errors.Is(err, filetree.ErrNotAFolder):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		a.Log.Error("file node creation failed", zap.Error(err))
		http.Error(w, "Failed to create file/folder. Check for duplicate names.", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, node)
}

func (a *API) RenameFileNode(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(chi.URLParam(r, "fileId"))
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	var req struct {
		NewName string `json:"newName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.NewName == "" {
		http.Error(w, "New name is required", http.StatusBadRequest)
		return
	}

	if err := a.Tree.Rename(r.Context(), fileID, req.NewName); err != nil {
		if errors.Is(err, filetree.ErrNodeNotFound) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		a.Log.Error("file rename failed", zap.Error(err))
		http.Error(w, "Failed to rename. A file or folder with that name may already exist.", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API) DeleteFileNode(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(chi.URLParam(r, "fileId"))
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	if err := a.Tree.Delete(r.Context(), fileID); err != nil {
		if errors.Is(err, filetree.ErrNodeNotFound) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		a.Log.Error("file delete failed", zap.Error(err))
		http.Error(w, "Failed to delete file or folder", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) GetFileContent(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(chi.URLParam(r, "fileId"))
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	content, err := a.Store.FileContent(r.Context(), fileID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.Log.Error("file content fetch failed", zap.Error(err))
		http.Error(w, "Failed to load file", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (a *API) SaveFileContent(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(chi.URLParam(r, "fileId"))
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := a.Store.SaveFileContent(r.Context(), fileID, req.Content); err != nil {
		a.Log.Error("file save failed", zap.Error(err))
		http.Error(w, "Failed to save file", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
