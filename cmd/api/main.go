package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"codehive/backend/internal/config"
	"codehive/backend/internal/filetree"
	"codehive/backend/internal/handlers"
	"codehive/backend/internal/logging"
	"codehive/backend/internal/middleware"
	"codehive/backend/internal/presence"
	"codehive/backend/internal/store"
	"codehive/backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	st, err := store.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer st.Close()

	hub := ws.NewHub(log)
	if cfg.RedisURL != "" {
		bridge, err := ws.NewBridge(cfg.RedisURL, log)
		if err != nil {
			log.Fatal("redis bridge setup failed", zap.Error(err))
		}
		hub.SetBridge(bridge)
	}
	go hub.Run()

	tree := filetree.NewService(st, hub)
	registry := presence.NewRegistry(st)

	api := &handlers.API{
		Store:     st,
		Hub:       hub,
		Tree:      tree,
		Presence:  registry,
		Log:       log,
		JWTSecret: cfg.JWTSecret,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ws", api.ServeWs)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", api.RegisterUser)
		r.Post("/auth/login", api.LoginUser)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))

			r.Post("/projects", api.CreateProject)
			r.Get("/projects", api.GetUserProjects)

			r.Group(func(r chi.Router) {
				r.Use(middleware.ProjectMemberAuth(st, "owner"))
				r.Put("/project/{projectId}/rename", api.RenameProject)
				r.Delete("/project/{projectId}", api.DeleteProject)
				r.Get("/project/{projectId}/members", api.GetProjectMembers)
				r.Put("/project/{projectId}/members/{memberId}", api.UpdateMemberRole)
				r.Delete("/project/{projectId}/members/{memberId}", api.RemoveProjectMember)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.ProjectMemberAuth(st, "owner", "editor"))
				r.Post("/project/{projectId}/files", api.CreateFileNode)
				r.Put("/file/{fileId}/rename", api.RenameFileNode)
				r.Put("/file/{fileId}/content", api.SaveFileContent)
				r.Delete("/file/{fileId}", api.DeleteFileNode)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.ProjectMemberAuth(st, "owner", "editor", "viewer"))
				r.Get("/project/{projectId}/files", api.GetFileTree)
				r.Get("/project/{projectId}/activeTabs", api.GetActiveTabs)
				r.Get("/project/{projectId}/chat", api.GetChatHistory)
				r.Get("/project/{projectId}/role", api.GetUserRoleForProject)
				r.Get("/file/{fileId}/content", api.GetFileContent)
				r.Get("/file/{fileId}/edits", api.GetEditLog)
			})
		})
	})

	log.Info("starting server", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
