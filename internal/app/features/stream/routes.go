// internal/app/features/stream/routes.go
package stream

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api/stream. requireAuth guards the
// ticket endpoint; the stream itself authenticates by ticket.
func Routes(h *Handler, requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.With(requireAuth).Post("/ticket", h.Ticket)
	r.Get("/{userID}", h.Serve)
	return r
}
