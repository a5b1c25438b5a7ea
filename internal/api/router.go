package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lorekeeper/internal/eventservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events/stream inside the auth group.
func NewRouter(svc *eventservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Timeline.
	r.Get("/events", h.ListEvents)
	r.Post("/events", h.AddEvent)
	r.Post("/events/{id}/archive", h.ArchiveEvent)
	r.Post("/events/{id}/correct", h.CorrectEvent)

	// Index.
	r.Get("/search", h.Search)
	r.Get("/tags", h.Tags)

	// Arcs.
	r.Get("/arcs/month", h.MonthArc)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events/stream", sseHandler.ServeHTTP)
	}

	return r
}
