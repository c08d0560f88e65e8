package posts

import (
	"context"
	"errors"
	"net/http"

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

// ListComments handles GET /api/posts/{id}/comments, oldest first.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	id, err := jsonutil.ObjectID(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Posts.Get(ctx, id); err != nil {
		jsonutil.Error(w, h.Log, postErr(err))
		return
	}
	comments, err := h.Comments.ListByPost(ctx, id)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "list comments", err))
		return
	}
	jsonutil.OK(w, map[string]any{"comments": comments})
}

type commentRequest struct {
	Text string `json:"text"`
}

// AddComment handles POST /api/posts/{id}/comments.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	id, err := jsonutil.ObjectID(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	var body commentRequest
	if err := jsonutil.Decode(r, &body); err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	content, _, err := inputval.Clean(inputval.Content{Text: body.Text}, inputval.MaxCommentLen)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	p, err := h.Posts.Get(ctx, id)
	if err != nil {
		jsonutil.Error(w, h.Log, postErr(err))
		return
	}
	c, err := h.Comments.Create(ctx, id, caller.ID, content.Text)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "create comment", err))
		return
	}
	if err := h.Posts.IncCommentCount(ctx, id, 1); err != nil {
		h.Log.Warn("comment count update failed", zap.String("post_id", id.Hex()), zap.Error(err))
	}

	h.notify(r, p.AuthorID, caller.ID, realtime.EventNewComment, func(u models.UserSummary) any {
		return CommentEvent{Comment: c, User: u}
	})
	jsonutil.Created(w, map[string]any{"comment": c})
}

// DeleteComment handles DELETE /api/posts/{id}/comments/{commentID}. The
// comment's author or the post's author may delete it.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	postID, err := jsonutil.ObjectID(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	commentID, err := jsonutil.ObjectID(chi.URLParam(r, "commentID"))
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Comments.Get(ctx, commentID)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && c.PostID != postID) {
		jsonutil.Error(w, h.Log, apperr.NotFoundf("comment not found"))
		return
	}
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "load comment", err))
		return
	}
	p, err := h.Posts.Get(ctx, postID)
	if err != nil {
		jsonutil.Error(w, h.Log, postErr(err))
		return
	}
	if c.AuthorID != caller.ID && p.AuthorID != caller.ID {
		jsonutil.Error(w, h.Log, apperr.Forbiddenf("you cannot delete this comment"))
		return
	}

	deleted, err := h.Comments.Delete(ctx, commentID)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "delete comment", err))
		return
	}
	if deleted {
		if err := h.Posts.IncCommentCount(ctx, postID, -1); err != nil {
			h.Log.Warn("comment count update failed", zap.String("post_id", postID.Hex()), zap.Error(err))
		}
	}
	jsonutil.OK(w, map[string]any{"id": commentID.Hex()})
}
