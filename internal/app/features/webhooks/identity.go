// internal/app/features/webhooks/identity.go
package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	userstore "github.com/dalemusser/circlehub/internal/app/store/users"
	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/jsonutil"
	"github.com/dalemusser/circlehub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/validate"
	"go.uber.org/zap"
)

// Identity event types.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

type identityEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// identityUser is the user object the identity provider sends.
type identityUser struct {
	ID                    string         `json:"id"`
	EmailAddresses        []emailAddress `json:"email_addresses"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	Username              string         `json:"username"`
	ImageURL              string         `json:"image_url"`
}

func (u identityUser) primaryEmail() string {
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

func (u identityUser) profile() userstore.IdentityProfile {
	return userstore.IdentityProfile{
		ID:           u.ID,
		Email:        strings.TrimSpace(u.primaryEmail()),
		Name:         strings.TrimSpace(u.FirstName + " " + u.LastName),
		Handle:       u.Username,
		ProfileImage: u.ImageURL,
	}
}

// Identity handles POST /api/webhooks/identity.
func (h *Handler) Identity(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readSigned(w, r)
	if !ok {
		return
	}
	var ev identityEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		jsonutil.Error(w, h.Log, apperr.Validationf("malformed event"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "webhooks.Identity")
	defer cancel()

	var u identityUser
	switch ev.Type {
	case EventUserCreated, EventUserUpdated, EventUserDeleted:
		if err := json.Unmarshal(ev.Data, &u); err != nil || u.ID == "" {
			jsonutil.Error(w, h.Log, apperr.Validationf("event data must carry a user id"))
			return
		}
	}
	if ev.Type == EventUserCreated || ev.Type == EventUserUpdated {
		// Users without an email address are allowed; a malformed one is not.
		if email := u.primaryEmail(); email != "" && !validate.SimpleEmailValid(email) {
			jsonutil.Error(w, h.Log, apperr.Validationf("invalid primary email address"))
			return
		}
	}

	switch ev.Type {
	case EventUserCreated, EventUserUpdated:
		user, err := h.Users.UpsertIdentity(ctx, u.profile())
		if err != nil {
			if errors.Is(err, userstore.ErrDuplicateHandle) {
				jsonutil.Error(w, h.Log, apperr.Conflictf("handle already taken"))
				return
			}
			jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "sync user", err))
			return
		}
		h.Log.Info("identity user synced",
			zap.String("event", ev.Type),
			zap.String("user_id", user.ID),
			zap.String("handle", user.Handle))
		jsonutil.OK(w, map[string]any{"event": ev.Type, "user_id": user.ID})

	case EventUserDeleted:
		if err := h.deleteUser(ctx, u.ID); err != nil {
			jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "delete user", err))
			return
		}
		jsonutil.OK(w, map[string]any{"event": ev.Type, "user_id": u.ID})

	default:
		h.Log.Debug("identity event ignored", zap.String("event", ev.Type))
		jsonutil.OK(w, map[string]any{"event": ev.Type, "ignored": true})
	}
}

// deleteUser removes the user and everything they own, then pulls their id
// from every other user's relationship lists. Deleting an unknown user is
// not an error.
func (h *Handler) deleteUser(ctx context.Context, id string) error {
	conns, err := h.Connections.DeleteAllFor(ctx, id)
	if err != nil {
		return err
	}
	postIDs, err := h.Posts.DeleteByAuthor(ctx, id)
	if err != nil {
		return err
	}
	if len(postIDs) > 0 {
		if _, err := h.Comments.DeleteByPosts(ctx, postIDs...); err != nil {
			return err
		}
	}
	comments, err := h.Comments.DeleteByAuthor(ctx, id)
	if err != nil {
		return err
	}
	stories, err := h.Stories.DeleteByAuthor(ctx, id)
	if err != nil {
		return err
	}
	messages, err := h.Messages.DeleteFor(ctx, id)
	if err != nil {
		return err
	}
	users, err := h.Users.Delete(ctx, id)
	if err != nil {
		return err
	}

	h.Log.Info("identity user deleted",
		zap.String("user_id", id),
		zap.Int64("users", users),
		zap.Int64("connections", conns),
		zap.Int("posts", len(postIDs)),
		zap.Int64("comments", comments),
		zap.Int64("stories", stories),
		zap.Int64("messages", messages))
	return nil
}
