// internal/app/features/connections/routes.go
package connections

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted at /api/connections. The caller must
// already be authenticated.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/requests", h.Requests)
	r.Get("/sent", h.Sent)
	r.Get("/status/{id}", h.Status)
	r.Post("/send", h.Send)
	r.Post("/accept", h.Accept)
	r.Post("/decline", h.Decline)
	r.Post("/cancel", h.Cancel)
	r.Post("/remove", h.Remove)
	return r
}
