// internal/app/features/stories/routes.go
package stories

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted at /api/stories.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/{id}/view", h.View)
	r.Delete("/{id}", h.Delete)
	return r
}
