// Package httpapi wires the HTTP surface: middleware stack and routes.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"wikibio/internal/http/handlers"
	"wikibio/internal/middleware"
	"wikibio/internal/session"
)

// NewRouter assembles the full route tree. Session cookies are only issued
// on the public surface; health and admin stay outside the session exchange.
func NewRouter(app *handlers.App, registry *session.Registry) http.Handler {
	cfg := app.Config

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(app.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))

	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(registry))
		r.Use(middleware.Locale(cfg.DefaultLocale))

		r.Get("/document", app.Document)
		r.Get("/assets/{session}/{asset}", app.Asset)

		r.Route("/api", func(r chi.Router) {
			r.Post("/generate", app.Generate)
			r.Post("/video", app.Video)
			r.Get("/status", app.Status)
			r.Get("/assets/archive", app.AssetsArchive)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.AdminToken))
		r.Get("/sessions", app.AdminSessions)
		r.Post("/clear-all", app.AdminClearAll)
	})

	return r
}
