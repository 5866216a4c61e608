package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/orbitest-backend/internal/config"
	"github.com/orbitest-backend/internal/domain"
	"github.com/orbitest-backend/internal/transport/http/handler"
	appmiddleware "github.com/orbitest-backend/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to the public endpoints.
	publicRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	studentH := handler.NewNotificationHandler(deps.Notify, domain.SubjectStudent)
	mentorH := handler.NewNotificationHandler(deps.Notify, domain.SubjectMentor)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.With(publicRL.Limit).Get("/health-check/{action}", healthH.Ping)

		// Socket upgrades authenticate in-band via the register event.
		r.Get("/ws/students", deps.WSStudents)
		r.Get("/ws/mentors", deps.WSMentors)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Route("/notifications", func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(string(domain.SubjectStudent)))
				mountNotificationRoutes(r, studentH)
			})
			r.Route("/mentor-notifications", func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(string(domain.SubjectMentor)))
				mountNotificationRoutes(r, mentorH)
			})
		})
	})

	return r
}

func mountNotificationRoutes(r chi.Router, h *handler.NotificationHandler) {
	r.Get("/my", h.ListMine)
	r.Get("/my/unread-count", h.UnreadCount)
	r.Patch("/my/view-all", h.MarkAllViewed)
	r.Delete("/my/viewed", h.DeleteViewed)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/view", h.MarkViewed)
}
