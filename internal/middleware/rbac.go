package middleware

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"codehive/backend/internal/store"
)

// ProjectMemberAuth checks that the caller is a member of the project in the
// URL with one of the required roles. Routes addressed by file id resolve
// the owning project first.
func ProjectMemberAuth(st *store.Store, requiredRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userIDStr, ok := r.Context().Value(UserIDKey).(string)
			if !ok {
				http.Error(w, "Could not retrieve user ID from context", http.StatusInternalServerError)
				return
			}
			userID, err := uuid.Parse(userIDStr)
			if err != nil {
				http.Error(w, "Invalid user ID in token", http.StatusInternalServerError)
				return
			}

			var projectID uuid.UUID
			if projectIDStr := chi.URLParam(r, "projectId"); projectIDStr != "" {
				projectID, err = uuid.Parse(projectIDStr)
				if err != nil {
					http.Error(w, "Invalid project ID format", http.StatusBadRequest)
					return
				}
			} else if fileIDStr := chi.URLParam(r, "fileId"); fileIDStr != "" {
				fileID, err := uuid.Parse(fileIDStr)
				if err != nil {
					http.Error(w, "Invalid file ID format", http.StatusBadRequest)
					return
				}
				node, err := st.FileNode(r.Context(), fileID)
				if errors.Is(err, store.ErrNotFound) {
					http.Error(w, "File not found", http.StatusNotFound)
					return
				}
				if err != nil {
					http.Error(w, "Failed to determine project from file", http.StatusInternalServerError)
					return
				}
				projectID = node.ProjectID
			} else {
				http.Error(w, "Could not determine project context from URL", http.StatusBadRequest)
				return
			}

			role, err := st.MemberRole(r.Context(), projectID, userID)
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Forbidden: You are not a member of this project", http.StatusForbidden)
				return
			}
			if err != nil {
				http.Error(w, "Failed to verify project membership", http.StatusInternalServerError)
				return
			}

			allowed := false
			for _, required := range requiredRoles {
				if role == required {
					allowed = true
					break
				}
			}
			if !allowed {
				http.Error(w, "Forbidden: You do not have the required permissions for this action", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
