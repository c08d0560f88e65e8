// internal/app/features/stories/handler.go
package stories

import (
	"context"
	"errors"
	"net/http"
	"time"

	storystore "github.com/dalemusser/circlehub/internal/app/store/stories"
	userstore "github.com/dalemusser/circlehub/internal/app/store/users"
	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/auth"
	"github.com/dalemusser/circlehub/internal/app/system/inputval"
	"github.com/dalemusser/circlehub/internal/app/system/jsonutil"
	"github.com/dalemusser/circlehub/internal/app/system/timeouts"
	"github.com/dalemusser/circlehub/internal/app/system/workflows"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultTTL is how long a story stays visible.
const DefaultTTL = 24 * time.Hour

type Handler struct {
	Stories   *storystore.Store
	Users     *userstore.Store
	Workflows *workflows.Orchestrator
	TTL       time.Duration
	Log       *zap.Logger
}

func NewHandler(db *mongo.Database, orch *workflows.Orchestrator, ttl time.Duration, logger *zap.Logger) *Handler {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Handler{
		Stories:   storystore.New(db),
		Users:     userstore.New(db),
		Workflows: orch,
		TTL:       ttl,
		Log:       logger,
	}
}

// Create handles POST /api/stories. Expiry is scheduled through the
// story/created workflow.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	var body inputval.Content
	if err := jsonutil.Decode(r, &body); err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	content, typ, err := inputval.Clean(body, inputval.MaxStoryLen)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	st, err := h.Stories.Create(ctx, models.Story{
		AuthorID: caller.ID,
		Text:     content.Text,
		Media:    content.Media,
		Type:     typ,
	}, h.TTL)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "create story", err))
		return
	}
	h.Log.Info("story created",
		zap.String("story_id", st.ID.Hex()),
		zap.Time("expires_at", st.ExpiresAt))

	h.Workflows.Trigger(ctx, workflows.EventStoryCreated, map[string]string{"story_id": st.ID.Hex()})
	jsonutil.Created(w, map[string]any{"story": st})
}

// List handles GET /api/stories: unexpired stories from the caller, the
// users they follow, and their connections.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	me, err := h.Users.Get(ctx, caller.ID)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "load caller", err))
		return
	}
	stories, err := h.Stories.Active(ctx, me.Network(), time.Now())
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "list stories", err))
		return
	}
	jsonutil.OK(w, map[string]any{"stories": stories})
}

// View handles POST /api/stories/{id}/view. Authors viewing their own story
// are not counted.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	id, err := jsonutil.ObjectID(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	st, err := h.Stories.Get(ctx, id)
	if err == nil && !st.ExpiresAt.After(time.Now()) {
		err = mongo.ErrNoDocuments
	}
	if err != nil {
		jsonutil.Error(w, h.Log, storyErr(err))
		return
	}
	if st.AuthorID != caller.ID {
		if st, err = h.Stories.AddView(ctx, id, caller.ID); err != nil {
			jsonutil.Error(w, h.Log, storyErr(err))
			return
		}
	}
	jsonutil.OK(w, map[string]any{"story": st, "views": len(st.ViewCount)})
}

// Delete handles DELETE /api/stories/{id} (author only).
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	id, err := jsonutil.ObjectID(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	st, err := h.Stories.Get(ctx, id)
	if err != nil {
		jsonutil.Error(w, h.Log, storyErr(err))
		return
	}
	if st.AuthorID != caller.ID {
		jsonutil.Error(w, h.Log, apperr.Forbiddenf("you can only delete your own stories"))
		return
	}
	if _, err := h.Stories.Delete(ctx, id); err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "delete story", err))
		return
	}
	jsonutil.OK(w, map[string]any{"id": id.Hex()})
}

func storyErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFoundf("story not found")
	}
	return apperr.Wrap(apperr.Internal, "load story", err)
}
