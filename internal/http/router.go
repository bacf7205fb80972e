package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/redmonkez12/go-task-api/internal/auth"
	"github.com/redmonkez12/go-task-api/internal/config"
	"github.com/redmonkez12/go-task-api/internal/httputil"
	"github.com/redmonkez12/go-task-api/internal/logging"
	"github.com/redmonkez12/go-task-api/internal/metrics"
	"github.com/redmonkez12/go-task-api/internal/task"
)

// Pinger reports whether the database is reachable. *bun.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the handlers and collaborators the router mounts.
type Deps struct {
	AuthHandler    *auth.Handler
	AuthMiddleware *auth.Middleware
	TaskHandler    *task.Handler
	Metrics        *metrics.Metrics
	DB             Pinger
	Logger         *logging.Logger
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length", "Location"},
			AllowCredentials: false,
			MaxAge:           300, // 5 minutes
		}))
	}

	var recorder logging.StatusRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}

	// Global middleware
	r.Use(SecurityHeaders)                              // Security headers on all responses
	r.Use(middleware.Recoverer)                         // Recover from panics
	r.Use(middleware.RequestID)                         // Add request ID
	r.Use(middleware.RealIP)                            // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(deps.Logger, recorder)) // Structured logging with request context
	r.Use(middleware.Compress(5))                       // Compress responses

	// Public routes
	r.Get("/health", handleHealth(deps.DB))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", deps.AuthHandler.Register)
		r.Post("/login", deps.AuthHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Post("/logout", deps.AuthHandler.Logout)
			r.Get("/me", deps.AuthHandler.Me)
		})
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)
		r.Route("/tasks", deps.TaskHandler.Routes)
	})

	return r
}

// handleHealth reports whether the API and its database are reachable
func handleHealth(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := db.PingContext(ctx); err != nil {
				logging.GetLoggerFromContext(r.Context()).Error("health check failed", "error", err.Error())
				httputil.RespondErrorWithCode(w, "database unavailable", httputil.CodeServiceUnavailable, http.StatusServiceUnavailable)
				return
			}
		}

		httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
	}
}
