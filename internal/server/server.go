// Package server exposes the report pipeline over HTTP.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter creates and configures the HTTP router.
func SetupRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes registers the domain and session routes.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/domains", h.ListDomains)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.StartSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Delete("/", h.EndSession)
			r.Route("/reports/{domain}", func(r chi.Router) {
				r.Post("/", h.Generate)
				r.Get("/", h.Read)
				r.Delete("/", h.Clear)
				r.Get("/export", h.Export)
			})
		})
	})
}
