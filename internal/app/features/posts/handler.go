// internal/app/features/posts/handler.go
package posts

import (
	"errors"
	"net/http"

	commentstore "github.com/dalemusser/circlehub/internal/app/store/comments"
	poststore "github.com/dalemusser/circlehub/internal/app/store/posts"
	userstore "github.com/dalemusser/circlehub/internal/app/store/users"
	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/realtime"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves posts, likes, and comments.
type Handler struct {
	Posts    *poststore.Store
	Comments *commentstore.Store
	Users    *userstore.Store
	Notifier *realtime.Notifier
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, notifier *realtime.Notifier, logger *zap.Logger) *Handler {
	return &Handler{
		Posts:    poststore.New(db),
		Comments: commentstore.New(db),
		Users:    userstore.New(db),
		Notifier: notifier,
		Log:      logger,
	}
}

// LikeEvent is the post-liked payload sent to the post's author.
type LikeEvent struct {
	PostID string             `json:"post_id"`
	Likes  int                `json:"likes"`
	User   models.UserSummary `json:"user"`
}

// CommentEvent is the new-comment payload sent to the post's author.
type CommentEvent struct {
	Comment models.Comment     `json:"comment"`
	User    models.UserSummary `json:"user"`
}

func postErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFoundf("post not found")
	}
	return apperr.Wrap(apperr.Internal, "load post", err)
}

func (h *Handler) notify(r *http.Request, to, actor, event string, build func(models.UserSummary) any) {
	if to == actor {
		return
	}
	card := models.UserSummary{ID: actor}
	if u, err := h.Users.Get(r.Context(), actor); err == nil {
		card = u.Summary()
	}
	h.Notifier.Notify(r.Context(), to, event, build(card))
}
