// internal/app/features/webhooks/handler.go
package webhooks

import (
	"errors"
	"io"
	"net/http"

	commentstore "github.com/dalemusser/circlehub/internal/app/store/comments"
	connectionstore "github.com/dalemusser/circlehub/internal/app/store/connections"
	messagestore "github.com/dalemusser/circlehub/internal/app/store/messages"
	poststore "github.com/dalemusser/circlehub/internal/app/store/posts"
	storystore "github.com/dalemusser/circlehub/internal/app/store/stories"
	userstore "github.com/dalemusser/circlehub/internal/app/store/users"
	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/jsonutil"
	"github.com/dalemusser/circlehub/internal/app/system/webhook"
	"github.com/dalemusser/circlehub/internal/app/system/workflows"
	hook "github.com/dalemusser/waffle/pantry/webhook"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler receives signed deliveries from the identity provider and from the
// external workflow orchestrator.
type Handler struct {
	Users       *userstore.Store
	Connections *connectionstore.Store
	Posts       *poststore.Store
	Comments    *commentstore.Store
	Stories     *storystore.Store
	Messages    *messagestore.Store

	Verifier  hook.Verifier
	Registry  *workflows.Registry
	Workflows *workflows.Orchestrator
	Log       *zap.Logger
}

func NewHandler(db *mongo.Database, verifier hook.Verifier, reg *workflows.Registry, orch *workflows.Orchestrator, logger *zap.Logger) *Handler {
	return &Handler{
		Users:       userstore.New(db),
		Connections: connectionstore.New(db),
		Posts:       poststore.New(db),
		Comments:    commentstore.New(db),
		Stories:     storystore.New(db),
		Messages:    messagestore.New(db),
		Verifier:    verifier,
		Registry:    reg,
		Workflows:   orch,
		Log:         logger,
	}
}

// readSigned returns the raw body after checking its signature headers.
// Errors have already been written to w when ok is false.
func (h *Handler) readSigned(w http.ResponseWriter, r *http.Request) (body []byte, ok bool) {
	if err := h.Verifier.Verify(r); err != nil {
		if errors.Is(err, hook.ErrRequestBodyTooLarge) {
			jsonutil.Error(w, h.Log, apperr.Validationf("request body too large"))
			return nil, false
		}
		h.Log.Warn("webhook signature rejected",
			zap.String("path", r.URL.Path),
			zap.String("webhook_id", r.Header.Get(webhook.HeaderID)),
			zap.Error(err))
		jsonutil.Error(w, h.Log, apperr.New(apperr.Unauthorized, "invalid webhook signature"))
		return nil, false
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Validationf("request body unreadable"))
		return nil, false
	}
	return body, true
}
