package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/faceproj/facefinder/internal/web/handlers"
	"github.com/faceproj/facefinder/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	projectsHandler := handlers.NewProjectsHandler(s.deps.Projects, s.deps.Faces)
	uploadHandler := handlers.NewUploadHandler(s.deps.Ingest)
	findHandler := handlers.NewFindHandler(s.deps.Ingest, s.config.Defaults.Match.Tolerance)
	uniqueHandler := handlers.NewUniqueHandler(s.deps.Projects, s.deps.Faces)
	blobsHandler := handlers.NewBlobsHandler(s.deps.Blobs)
	facesHandler := handlers.NewFacesHandler(s.deps.Ingest)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.config.Web.APIToken))

			// Projects
			r.Get("/projects", projectsHandler.List)
			r.Post("/projects", projectsHandler.Create)
			r.Get("/projects/{id}", projectsHandler.Get)
			r.Delete("/projects/{id}", projectsHandler.Delete)

			// Ingest and query
			r.Post("/projects/{id}/images", uploadHandler.Upload)
			r.Post("/projects/{id}/find", findHandler.Find)
			r.Get("/projects/{id}/unique-faces", uniqueHandler.List)

			// Stored images
			r.Get("/blobs/{ref}", blobsHandler.Get)

			// Faces
			r.Delete("/faces/{id}", facesHandler.Delete)
		})
	})
}
