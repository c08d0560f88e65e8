// internal/app/features/messages/handler.go
package messages

import (
	"context"
	"net/http"

	messagestore "github.com/dalemusser/circlehub/internal/app/store/messages"
	userstore "github.com/dalemusser/circlehub/internal/app/store/users"
	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/auth"
	"github.com/dalemusser/circlehub/internal/app/system/inputval"
	"github.com/dalemusser/circlehub/internal/app/system/jsonutil"
	"github.com/dalemusser/circlehub/internal/app/system/realtime"
	"github.com/dalemusser/circlehub/internal/app/system/timeouts"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ConversationLimit caps how many recent messages a conversation returns.
const ConversationLimit = 200

type Handler struct {
	Messages *messagestore.Store
	Users    *userstore.Store
	Notifier *realtime.Notifier
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, notifier *realtime.Notifier, logger *zap.Logger) *Handler {
	return &Handler{
		Messages: messagestore.New(db),
		Users:    userstore.New(db),
		Notifier: notifier,
		Log:      logger,
	}
}

// SeenEvent tells a sender that the reader has seen their messages.
type SeenEvent struct {
	By    string `json:"by"`
	Count int64  `json:"count"`
}

// Inbox handles GET /api/messages: one row per conversation partner with
// the last message and the caller's unseen count.
func (h *Handler) Inbox(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	convs, err := h.Messages.Conversations(ctx, caller.ID)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "list conversations", err))
		return
	}
	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.PeerID)
	}
	users, err := h.Users.Summaries(ctx, ids)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "load users", err))
		return
	}
	jsonutil.OK(w, map[string]any{"conversations": convs, "users": users})
}

// Conversation handles GET /api/messages/{userID}. Incoming unseen messages
// are marked seen in one write and the peer is told.
func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	peer := chi.URLParam(r, "userID")
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	msgs, err := h.Messages.Conversation(ctx, caller.ID, peer, ConversationLimit)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "load conversation", err))
		return
	}

	n, err := h.Messages.MarkSeen(ctx, peer, caller.ID)
	if err != nil {
		h.Log.Warn("mark seen failed", zap.String("user_id", caller.ID), zap.String("peer_id", peer), zap.Error(err))
	}
	if n > 0 {
		for i := range msgs {
			if msgs[i].To == caller.ID {
				msgs[i].Seen = true
			}
		}
		h.Notifier.Notify(ctx, peer, realtime.EventMessagesSeen, SeenEvent{By: caller.ID, Count: n})
	}
	jsonutil.OK(w, map[string]any{"messages": msgs})
}

// Send handles POST /api/messages/{userID}.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	peer := chi.URLParam(r, "userID")
	if peer == caller.ID {
		jsonutil.Error(w, h.Log, apperr.Validationf("cannot message yourself"))
		return
	}
	var body inputval.Content
	if err := jsonutil.Decode(r, &body); err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	content, typ, err := inputval.Clean(body, inputval.MaxMessageLen)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	ok, err := h.Users.Exists(ctx, peer)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "load recipient", err))
		return
	}
	if !ok {
		jsonutil.Error(w, h.Log, apperr.NotFoundf("user not found"))
		return
	}

	m, err := h.Messages.Create(ctx, models.Message{
		From:  caller.ID,
		To:    peer,
		Text:  content.Text,
		Media: content.Media,
		Type:  typ,
	})
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "send message", err))
		return
	}
	h.Notifier.Notify(ctx, peer, realtime.EventNewMessage, m)
	jsonutil.Created(w, map[string]any{"message": m})
}
