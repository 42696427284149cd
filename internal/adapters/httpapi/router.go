package httpapi

import (
	"log/slog"

	"github.com/bnema/hrepl/internal/application"
	"github.com/bnema/hrepl/internal/ports"
	"github.com/go-chi/chi/v5"
)

// NewRouter builds the HTTP surface the IDE-side layer talks to.
func NewRouter(queries *application.QueryService, sessions *application.SessionManager, resolver ports.TargetResolver, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	h := newHandler(queries, sessions, resolver, logger)

	r.Get("/healthz", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/sessions", h.Sessions)
		r.Post("/load", h.Load)
		r.Post("/type-at", h.TypeAt)
		r.Post("/loc-at", h.LocAt)
		r.Post("/info", h.Info)
		r.Post("/browse", h.Browse)
		r.Post("/restart", h.Restart)
		r.Post("/clear", h.Clear)
	})

	return r
}
