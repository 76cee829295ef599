package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/upb/retrieval-plane/app"
	"github.com/upb/retrieval-plane/handlers"
	"github.com/upb/retrieval-plane/internal/observability"
	"github.com/upb/retrieval-plane/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(deps.Config.Server.RequestTimeout))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	health := handlers.NewHealthHandler(deps.HealthChecks, deps.Logger)
	actions := handlers.NewActionsHandler(deps.Registry, deps.Logger)
	retrieval := handlers.NewRetrievalHandler(deps.Registry, deps.Logger)

	// Health check endpoints
	r.Get("/health", health.HandleHealth)
	r.Get("/ready", health.HandleReadiness)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		if deps.AuthMiddleware != nil {
			r.Use(deps.AuthMiddleware.RequireAuth)
		}

		r.Get("/actions", actions.HandleList)
		r.Post("/retrievers/{provider}/{name}/retrieve", retrieval.HandleRetrieve)
		r.Post("/indexers/{provider}/{name}/index", retrieval.HandleIndex)
		r.Post("/embedders/{provider}/{name}/embed", retrieval.HandleEmbed)
		r.Post("/models/{provider}/{name}/generate", retrieval.HandleGenerate)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
