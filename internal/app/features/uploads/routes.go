// internal/app/features/uploads/routes.go
package uploads

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted at /api/media.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Upload)
	r.Get("/link", h.Link)
	return r
}
