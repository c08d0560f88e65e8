// internal/app/features/stream/handler.go
package stream

import (
	"net/http"
	"time"

	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/auth"
	"github.com/dalemusser/circlehub/internal/app/system/jsonutil"
	"github.com/dalemusser/circlehub/internal/app/system/realtime"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves realtime event streams. Streams subscribe to the same bus
// that services publish to, so events reach the client whichever process
// produced them.
type Handler struct {
	Bus     realtime.Bus
	Tickets *realtime.Tickets
	Ping    time.Duration
	Log     *zap.Logger
}

func NewHandler(bus realtime.Bus, tickets *realtime.Tickets, logger *zap.Logger) *Handler {
	return &Handler{
		Bus:     bus,
		Tickets: tickets,
		Ping:    realtime.DefaultPingInterval,
		Log:     logger,
	}
}

// Ticket handles POST /api/stream/ticket (bearer-authenticated).
//
//	{ "success": true, "ticket": "…", "user_id": "…", "expires_in": 60 }
func (h *Handler) Ticket(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	tk, err := h.Tickets.Issue(caller.ID)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "issue stream ticket", err))
		return
	}
	jsonutil.OK(w, map[string]any{
		"ticket":     tk,
		"user_id":    caller.ID,
		"expires_in": int(h.Tickets.TTL().Seconds()),
	})
}

// Serve handles GET /api/stream/{userID}?ticket=…. The ticket must have been
// issued to {userID}.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	owner, err := h.Tickets.Verify(r.URL.Query().Get("ticket"))
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.New(apperr.Unauthorized, "invalid or expired stream ticket"))
		return
	}
	if owner != userID {
		jsonutil.Error(w, h.Log, apperr.Forbiddenf("ticket does not match stream"))
		return
	}

	sub, err := h.Bus.Subscribe(r.Context(), userID)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "subscribe", err))
		return
	}
	defer sub.Close()

	h.Log.Debug("stream opened", zap.String("user_id", userID))
	if err := realtime.Stream(r.Context(), w, r, sub, h.Ping); err != nil {
		h.Log.Debug("stream write ended", zap.String("user_id", userID), zap.Error(err))
	}
	h.Log.Debug("stream closed", zap.String("user_id", userID))
}
