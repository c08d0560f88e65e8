// internal/app/features/users/routes.go
package users

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted at /api/users.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/me", h.Me)
	r.Patch("/me", h.UpdateMe)
	r.Get("/suggestions", h.Suggestions)
	r.Get("/search", h.Search)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Profile)
		r.Post("/follow", h.Follow)
		r.Delete("/follow", h.Unfollow)
		r.Get("/followers", h.Followers)
		r.Get("/following", h.Following)
	})
	return r
}
