// internal/app/features/messages/routes.go
package messages

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted at /api/messages.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Inbox)
	r.Get("/{userID}", h.Conversation)
	r.Post("/{userID}", h.Send)
	return r
}
