// internal/app/features/state/routes.go
package state

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted at /api/state.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	return r
}
