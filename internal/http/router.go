package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"sessiongate/internal/auth"
	"sessiongate/internal/config"
	"sessiongate/internal/metrics"
)

// NewRouter wires application routes and middleware using chi.
func NewRouter(cfg config.Config, svc *auth.Service, recorder metrics.Recorder, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newSlogMiddleware(logger, recorder))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"WWW-Authenticate"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))
	}

	handler := NewAuthHandler(svc, recorder, logger)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", handler.Login)
		r.Post("/google", handler.Login)

		r.Group(func(r chi.Router) {
			r.Use(newSessionGuard(svc, recorder, logger))
			r.Get("/me", handler.Me)
		})
	})

	return r
}
