// internal/app/features/users/handler.go
package users

import (
	"context"
	"errors"
	"net/http"
	"unicode/utf8"

	userstore "github.com/dalemusser/circlehub/internal/app/store/users"
	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/auth"
	"github.com/dalemusser/circlehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/circlehub/internal/app/system/jsonutil"
	"github.com/dalemusser/circlehub/internal/app/system/relations"
	"github.com/dalemusser/circlehub/internal/app/system/search"
	"github.com/dalemusser/circlehub/internal/app/system/timeouts"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// SuggestionLimit is how many suggested users GET /suggestions returns.
const SuggestionLimit = 10

// SearchLimit caps GET /search results.
const SearchLimit = 20

// Field length limits for profile edits, in runes.
const (
	maxNameLen     = 80
	maxBioLen      = 300
	maxLocationLen = 80
)

type Handler struct {
	Users     *userstore.Store
	Relations *relations.Service
	Log       *zap.Logger
}

func NewHandler(users *userstore.Store, rel *relations.Service, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Relations: rel, Log: logger}
}

// profile is the public view of another user. Email is omitted.
type profile struct {
	models.UserSummary
	CoverImage     string `json:"cover_image,omitempty"`
	Location       string `json:"location,omitempty"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
	Connections    int    `json:"connection_count"`
	IsFollowing    bool   `json:"is_following"`
	Connection     string `json:"connection"`
}

// Me handles GET /api/users/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Get(ctx, caller.ID)
	if err != nil {
		jsonutil.Error(w, h.Log, notFound(err))
		return
	}
	jsonutil.OK(w, map[string]any{"user": u})
}

type updateRequest struct {
	Name         *string `json:"name"`
	Bio          *string `json:"bio"`
	Location     *string `json:"location"`
	ProfileImage *string `json:"profile_image"`
	CoverImage   *string `json:"cover_image"`
}

// UpdateMe handles PATCH /api/users/me. Absent fields are left unchanged.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	var body updateRequest
	if err := jsonutil.Decode(r, &body); err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	upd := userstore.ProfileUpdate{
		Name:         sanitized(body.Name),
		Bio:          sanitized(body.Bio),
		Location:     sanitized(body.Location),
		ProfileImage: body.ProfileImage,
		CoverImage:   body.CoverImage,
	}
	if err := validateProfile(upd); err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	u, err := h.Users.UpdateProfile(ctx, caller.ID, upd)
	if err != nil {
		jsonutil.Error(w, h.Log, notFound(err))
		return
	}
	h.Log.Info("profile updated", zap.String("user_id", caller.ID))
	jsonutil.OK(w, map[string]any{"user": u})
}

func sanitized(s *string) *string {
	if s == nil {
		return nil
	}
	v := htmlsanitize.Text(*s)
	return &v
}

func validateProfile(u userstore.ProfileUpdate) error {
	if u.Name != nil && *u.Name == "" {
		return apperr.Validationf("name cannot be empty")
	}
	for _, f := range []struct {
		name string
		v    *string
		max  int
	}{
		{"name", u.Name, maxNameLen},
		{"bio", u.Bio, maxBioLen},
		{"location", u.Location, maxLocationLen},
	} {
		if f.v != nil && utf8.RuneCountInString(*f.v) > f.max {
			return apperr.Validationf("%s must be at most %d characters", f.name, f.max)
		}
	}
	return nil
}

// Profile handles GET /api/users/{id}. The segment is a handle; a user id
// is accepted too so links built from notification payloads resolve.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	key := chi.URLParam(r, "id")
	u, err := h.Users.GetByHandle(ctx, key)
	if errors.Is(err, mongo.ErrNoDocuments) {
		u, err = h.Users.Get(ctx, key)
	}
	if err != nil {
		jsonutil.Error(w, h.Log, notFound(err))
		return
	}
	status, err := h.Relations.Status(ctx, caller.ID, u.ID)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	if u.ID == caller.ID {
		status = relations.StatusNone
	}
	jsonutil.OK(w, map[string]any{"user": profile{
		UserSummary:    u.Summary(),
		CoverImage:     u.CoverImage,
		Location:       u.Location,
		FollowerCount:  len(u.Followers),
		FollowingCount: len(u.Following),
		Connections:    len(u.Connections),
		IsFollowing:    containsID(u.Followers, caller.ID),
		Connection:     status,
	}})
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Follow handles POST /api/users/{id}/follow.
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	target := chi.URLParam(r, "id")
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "follow")
	defer cancel()

	if err := h.Relations.Follow(ctx, caller.ID, target); err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	jsonutil.OK(w, map[string]any{"following": true, "id": target})
}

// Unfollow handles DELETE /api/users/{id}/follow.
func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	target := chi.URLParam(r, "id")
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "unfollow")
	defer cancel()

	if err := h.Relations.Unfollow(ctx, caller.ID, target); err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	jsonutil.OK(w, map[string]any{"following": false, "id": target})
}

// Followers handles GET /api/users/{id}/followers.
func (h *Handler) Followers(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "followers", h.Relations.Followers)
}

// Following handles GET /api/users/{id}/following.
func (h *Handler) Following(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "following", h.Relations.Following)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, key string, fn func(context.Context, string) ([]models.UserSummary, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, err := fn(ctx, chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	jsonutil.OK(w, map[string]any{key: users})
}

// Suggestions handles GET /api/users/suggestions.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	me, err := h.Users.Get(ctx, caller.ID)
	if err != nil {
		jsonutil.Error(w, h.Log, notFound(err))
		return
	}
	users, err := h.Users.Suggestions(ctx, *me, SuggestionLimit)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "load suggestions", err))
		return
	}
	jsonutil.OK(w, map[string]any{"users": users})
}

// Search handles GET /api/users/search?q=. "@ada" matches handles only;
// anything else also matches the start of any word in the name.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	q, ok := search.Parse(query.Get(r, "q"))
	if !ok {
		jsonutil.Error(w, h.Log, apperr.Validationf("q must be %d-%d characters", search.MinQueryLen, search.MaxQueryLen))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()
	users, err := h.Users.Search(ctx, q, caller.ID, SearchLimit)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "search users", err))
		return
	}
	jsonutil.OK(w, map[string]any{"users": users})
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFoundf("user not found")
	}
	return apperr.Wrap(apperr.Internal, "load user", err)
}
