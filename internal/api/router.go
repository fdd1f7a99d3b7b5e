package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/weave/internal/sectionservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *sectionservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Sections.
	r.Get("/sections", h.ListSections)
	r.Get("/sections/{id}", h.GetSection)
	r.Get("/sections/{id}/backlinks", h.Backlinks)

	// Graph.
	r.Get("/graph", h.Graph)
	r.Get("/graph/cycles", h.Cycles)
	r.Get("/graph.svg", h.GraphSVG)

	// Diagnostics and stateless parsing.
	r.Get("/diagnostics", h.Diagnostics)
	r.Post("/parse", h.Parse)
	r.Post("/links/extract", h.ExtractLinks)

	// Search.
	r.Get("/search", h.Search)

	// Raw documents.
	r.Post("/documents/move", h.MoveDocument)
	r.Get("/documents/*", h.GetDocument)
	r.Put("/documents/*", h.PutDocument)
	r.Delete("/documents/*", h.DeleteDocument)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
