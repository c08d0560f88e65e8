// internal/app/features/posts/routes.go
package posts

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted at /api/posts.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/feed", h.Feed)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Post("/like", h.Like)
		r.Get("/comments", h.ListComments)
		r.Post("/comments", h.AddComment)
		r.Delete("/comments/{commentID}", h.DeleteComment)
	})
	return r
}
