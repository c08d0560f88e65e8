// internal/app/features/webhooks/routes.go
package webhooks

import "github.com/go-chi/chi/v5"

// IdentityRoutes is mounted at /api/webhooks.
func IdentityRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/identity", h.Identity)
	return r
}

// WorkflowRoutes is mounted at /api/workflows.
func WorkflowRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/{name}", h.Workflow)
	return r
}
