/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/members/*        Team member management and capacity views
  /api/projects/*       Project management and timelines
  /api/assignments/*    Planning, overrides, previews
  /api/holidays/*       Holiday calendar management
  /api/plan             Whole-plan export/import
  /api/scenarios/*      Demo scenarios
  /api/audit/*          Ledger audit history
  /api/admin/*          Admin operations
  /*                    Static files (frontend)

STATIC FILE SERVING:
  In production, serves the built frontend from web/dist/ (or the
  configured directory). Falls back to index.html for client-side
  routing.

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. An empty
// staticDir falls back to ./web/dist, then to a directory next to the
// executable.
func NewRouter(h *Handler, staticDir string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Team member routes
		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.CreateMember)
			r.Get("/{id}", h.GetMember)
			r.Delete("/{id}", h.DeleteMember)
			r.Get("/{id}/assignments", h.GetMemberAssignments)
			r.Get("/{id}/capacity", h.GetMemberCapacity)
			r.Get("/{id}/overflow", h.GetMemberOverflow)
		})

		// Project routes
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)
			r.Get("/{id}", h.GetProject)
			r.Put("/{id}", h.UpdateProject)
			r.Delete("/{id}", h.DeleteProject)
			r.Get("/{id}/timeline", h.GetProjectTimeline)
		})

		// Assignment routes
		r.Route("/assignments", func(r chi.Router) {
			r.Post("/", h.CreateAssignment)
			r.Post("/preview", h.PreviewAssignment)
			r.Get("/{id}", h.GetAssignment)
			r.Delete("/{id}", h.DeleteAssignment)
			r.Get("/{id}/allocation", h.GetAllocation)
			r.Post("/{id}/override", h.ApplyOverride)
			r.Post("/{id}/override/reset", h.ResetOverride)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Post("/defaults", h.SeedDefaultHolidays)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		// Plan document routes
		r.Route("/plan", func(r chi.Router) {
			r.Get("/", h.ExportPlan)
			r.Post("/", h.ImportPlan)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})

		// Audit routes
		r.Route("/audit", func(r chi.Router) {
			r.Get("/runs", h.ListAuditRuns)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/recompute", h.Recompute)
		})
	})

	// Serve static files (frontend)
	// First try the configured directory, then ./web/dist, then a
	// directory next to the executable
	if staticDir == "" {
		staticDir = "./web/dist"
	}
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		// Try relative to executable
		exe, _ := os.Executable()
		staticDir = filepath.Join(filepath.Dir(exe), "web", "dist")
	}

	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			fullPath := filepath.Join(staticDir, path)

			// Check if file exists
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				// SPA routing: serve index.html
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Capacity Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Capacity Engine API</h1>
<p>The frontend is not built yet. Run <code>cd web && npm install && npm run build</code></p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/members">/api/members</a> - List team members</li>
<li><a href="/api/projects">/api/projects</a> - List projects</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List scenarios</li>
</ul>
</body>
</html>`))
		})
	}

	return r
}
