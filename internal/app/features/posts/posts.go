package posts

import (
	"context"
	"net/http"

	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/auth"
	"github.com/dalemusser/circlehub/internal/app/system/inputval"
	"github.com/dalemusser/circlehub/internal/app/system/jsonutil"
	"github.com/dalemusser/circlehub/internal/app/system/paging"
	"github.com/dalemusser/circlehub/internal/app/system/realtime"
	"github.com/dalemusser/circlehub/internal/app/system/timeouts"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Create handles POST /api/posts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	var body inputval.Content
	if err := jsonutil.Decode(r, &body); err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	content, typ, err := inputval.Clean(body, inputval.MaxPostLen)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	p, err := h.Posts.Create(ctx, models.Post{
		AuthorID: caller.ID,
		Text:     content.Text,
		Media:    content.Media,
		Type:     typ,
	})
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "create post", err))
		return
	}
	h.Log.Info("post created", zap.String("post_id", p.ID.Hex()), zap.String("author_id", caller.ID))
	jsonutil.Created(w, map[string]any{"post": p})
}

// Feed handles GET /api/posts/feed?before=&limit=. It returns posts by the
// caller, the users they follow, and their connections, newest first.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	before, err := paging.ParseBefore(r)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	limit := paging.ParseLimit(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	me, err := h.Users.Get(ctx, caller.ID)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "load caller", err))
		return
	}
	posts, err := h.Posts.Feed(ctx, me.Network(), before, paging.LimitPlusOne(limit))
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "load feed", err))
		return
	}
	hasMore := paging.TrimPage(&posts, limit)

	resp := map[string]any{"posts": posts, "has_more": hasMore}
	if hasMore {
		resp["next_before"] = paging.Cursor(posts[len(posts)-1].CreatedAt)
	}
	jsonutil.OK(w, resp)
}

// Get handles GET /api/posts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := jsonutil.ObjectID(chi.URLParam(r, "id"))
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
	jsonutil.OK(w, map[string]any{"post": p})
}

// Delete handles DELETE /api/posts/{id}. Only the author may delete; the
// post's comments go with it.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	id, err := jsonutil.ObjectID(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete post")
	defer cancel()

	p, err := h.Posts.Get(ctx, id)
	if err != nil {
		jsonutil.Error(w, h.Log, postErr(err))
		return
	}
	if p.AuthorID != caller.ID {
		jsonutil.Error(w, h.Log, apperr.Forbiddenf("you can only delete your own posts"))
		return
	}
	if _, err := h.Posts.Delete(ctx, id); err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "delete post", err))
		return
	}
	if _, err := h.Comments.DeleteByPosts(ctx, id); err != nil {
		h.Log.Warn("delete post comments failed", zap.String("post_id", id.Hex()), zap.Error(err))
	}
	h.Log.Info("post deleted", zap.String("post_id", id.Hex()))
	jsonutil.OK(w, map[string]any{"id": id.Hex()})
}

// Like handles POST /api/posts/{id}/like, toggling the caller's like. The
// author is notified when a like is added.
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	id, err := jsonutil.ObjectID(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, liked, err := h.Posts.ToggleLike(ctx, id, caller.ID)
	if err != nil {
		jsonutil.Error(w, h.Log, postErr(err))
		return
	}
	if liked {
		h.notify(r, p.AuthorID, caller.ID, realtime.EventPostLiked, func(u models.UserSummary) any {
			return LikeEvent{PostID: p.ID.Hex(), Likes: len(p.Likes), User: u}
		})
	}
	jsonutil.OK(w, map[string]any{"post": p, "liked": liked})
}
