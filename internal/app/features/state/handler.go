// internal/app/features/state/handler.go
package state

import (
	"errors"
	"net/http"
	"time"

	messagestore "github.com/dalemusser/circlehub/internal/app/store/messages"
	poststore "github.com/dalemusser/circlehub/internal/app/store/posts"
	userstore "github.com/dalemusser/circlehub/internal/app/store/users"
	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/auth"
	"github.com/dalemusser/circlehub/internal/app/system/jsonutil"
	"github.com/dalemusser/circlehub/internal/app/system/paging"
	"github.com/dalemusser/circlehub/internal/app/system/relations"
	"github.com/dalemusser/circlehub/internal/app/system/timeouts"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler serves the snapshot a client loads into its store on startup.
// Realtime events then patch that snapshot.
type Handler struct {
	Relations *relations.Service
	Users     *userstore.Store
	Posts     *poststore.Store
	Messages  *messagestore.Store
	Log       *zap.Logger
}

func NewHandler(db *mongo.Database, rel *relations.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Relations: rel,
		Users:     userstore.New(db),
		Posts:     poststore.New(db),
		Messages:  messagestore.New(db),
		Log:       logger,
	}
}

// Snapshot is the body of GET /api/state.
type Snapshot struct {
	User        models.User          `json:"user"`
	Connections []models.UserSummary `json:"connections"`
	Incoming    []relations.Request  `json:"incoming"`
	Outgoing    []relations.Request  `json:"outgoing"`
	Feed        []models.Post        `json:"feed"`
	FeedHasMore bool                 `json:"feed_has_more"`
	Unseen      map[string]int       `json:"unseen"`
}

// Get handles GET /api/state. The parts load concurrently; any failure fails
// the whole snapshot.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "state.Get")
	defer cancel()

	me, err := h.Users.Get(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.Error(w, h.Log, apperr.New(apperr.Unauthorized, "unknown user"))
			return
		}
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "load caller", err))
		return
	}

	snap := Snapshot{User: *me}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Connections, err = h.Relations.Connected(gctx, caller.ID)
		return err
	})
	g.Go(func() (err error) {
		snap.Incoming, err = h.Relations.Incoming(gctx, caller.ID)
		return err
	})
	g.Go(func() (err error) {
		snap.Outgoing, err = h.Relations.Outgoing(gctx, caller.ID)
		return err
	})
	g.Go(func() error {
		posts, err := h.Posts.Feed(gctx, me.Network(), time.Time{}, paging.LimitPlusOne(paging.PageSize))
		if err != nil {
			return err
		}
		snap.FeedHasMore = paging.TrimPage(&posts, paging.PageSize)
		snap.Feed = posts
		return nil
	})
	g.Go(func() (err error) {
		snap.Unseen, err = h.Messages.UnseenBySender(gctx, caller.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	jsonutil.OK(w, map[string]any{"state": snap})
}
