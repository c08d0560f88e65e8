// internal/app/features/connections/handler.go
package connections

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/auth"
	"github.com/dalemusser/circlehub/internal/app/system/jsonutil"
	"github.com/dalemusser/circlehub/internal/app/system/relations"
	"github.com/dalemusser/circlehub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the connection endpoints. All state changes go through
// relations.Service.
type Handler struct {
	Relations *relations.Service
	Log       *zap.Logger
}

func NewHandler(rel *relations.Service, logger *zap.Logger) *Handler {
	return &Handler{Relations: rel, Log: logger}
}

// targetRequest is the body of every transition endpoint: the other user.
type targetRequest struct {
	ID string `json:"id"`
}

func (h *Handler) target(r *http.Request) (*auth.Caller, string, error) {
	caller, ok := auth.CurrentUser(r)
	if !ok {
		return nil, "", apperr.New(apperr.Unauthorized, "authentication required")
	}
	var body targetRequest
	if err := jsonutil.Decode(r, &body); err != nil {
		return nil, "", err
	}
	return caller, strings.TrimSpace(body.ID), nil
}

// Send handles POST /api/connections/send.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	caller, target, err := h.target(r)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "send connection")
	defer cancel()

	c, err := h.Relations.Send(ctx, caller.ID, target)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	jsonutil.Created(w, map[string]any{"connection": c})
}

// Accept handles POST /api/connections/accept with the requester's id.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	caller, requester, err := h.target(r)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "accept connection")
	defer cancel()

	c, err := h.Relations.Accept(ctx, caller.ID, requester)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	jsonutil.OK(w, map[string]any{"connection": c})
}

// Decline handles POST /api/connections/decline with the requester's id.
func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	h.deleteTransition(w, r, "decline connection", h.Relations.Decline)
}

// Cancel handles POST /api/connections/cancel with the recipient's id.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.deleteTransition(w, r, "cancel connection", h.Relations.Cancel)
}

// Remove handles POST /api/connections/remove with the other user's id.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	h.deleteTransition(w, r, "remove connection", h.Relations.Remove)
}

func (h *Handler) deleteTransition(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, caller, other string) error) {
	caller, other, err := h.target(r)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, op)
	defer cancel()

	if err := fn(ctx, caller.ID, other); err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	jsonutil.OK(w, map[string]any{"id": other})
}

// List handles GET /api/connections.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, err := h.Relations.Connected(ctx, caller.ID)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	jsonutil.OK(w, map[string]any{"connections": users})
}

// Requests handles GET /api/connections/requests (incoming pending).
func (h *Handler) Requests(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	reqs, err := h.Relations.Incoming(ctx, caller.ID)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	jsonutil.OK(w, map[string]any{"requests": reqs})
}

// Sent handles GET /api/connections/sent (outgoing pending).
func (h *Handler) Sent(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	reqs, err := h.Relations.Outgoing(ctx, caller.ID)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	jsonutil.OK(w, map[string]any{"requests": reqs})
}

// Status handles GET /api/connections/status/{id}.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	other := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	st, err := h.Relations.Status(ctx, caller.ID, other)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	jsonutil.OK(w, map[string]any{"status": st})
}
