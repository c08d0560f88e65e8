// Package relations implements the connection state machine and the follow
// graph.
//
// A connection moves none -> pending -> accepted. Decline, cancel, and remove
// delete the document, so the pair returns to none and may be requested again.
// The unique pair_key index guarantees at most one document per unordered
// pair, which is what makes concurrent sends from both sides safe.
package relations

import (
	"context"
	"errors"
	"time"

	connectionstore "github.com/dalemusser/circlehub/internal/app/store/connections"
	userstore "github.com/dalemusser/circlehub/internal/app/store/users"
	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/metrics"
	"github.com/dalemusser/circlehub/internal/app/system/realtime"
	"github.com/dalemusser/circlehub/internal/app/system/txn"
	"github.com/dalemusser/circlehub/internal/app/system/workflows"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Status values returned by Service.Status.
const (
	StatusNone            = "none"
	StatusPendingSent     = "pending_sent"
	StatusPendingReceived = "pending_received"
	StatusAccepted        = "accepted"
)

// Defaults for the per-requester send limit.
const (
	DefaultRequestLimit  = 20
	DefaultRequestWindow = 24 * time.Hour
)

// Config tunes the send limit.
type Config struct {
	RequestLimit  int
	RequestWindow time.Duration
}

// Service owns every mutation of connections and follows.
type Service struct {
	Users       *userstore.Store
	Connections *connectionstore.Store
	Client      *mongo.Client
	Notifier    *realtime.Notifier
	Workflows   *workflows.Orchestrator
	Log         *zap.Logger

	limit  int64
	window time.Duration
	now    func() time.Time
}

// New wires a Service. notifier and orch may be nil, which disables realtime
// events and workflow triggers respectively.
func New(db *mongo.Database, notifier *realtime.Notifier, orch *workflows.Orchestrator, logger *zap.Logger, cfg Config) *Service {
	if cfg.RequestLimit <= 0 {
		cfg.RequestLimit = DefaultRequestLimit
	}
	if cfg.RequestWindow <= 0 {
		cfg.RequestWindow = DefaultRequestWindow
	}
	return &Service{
		Users:       userstore.New(db),
		Connections: connectionstore.New(db),
		Client:      db.Client(),
		Notifier:    notifier,
		Workflows:   orch,
		Log:         logger,
		limit:       int64(cfg.RequestLimit),
		window:      cfg.RequestWindow,
		now:         time.Now,
	}
}

// ConnectionEvent is the realtime payload for connection transitions. User is
// the party who caused the transition.
type ConnectionEvent struct {
	Connection models.Connection  `json:"connection"`
	User       models.UserSummary `json:"user"`
}

// Request pairs a pending connection with the other party's card.
type Request struct {
	models.Connection
	User models.UserSummary `json:"user"`
}

/* ---------------------- connection transitions ---------------------- */

// Send creates a pending request from caller to target.
func (s *Service) Send(ctx context.Context, caller, target string) (*models.Connection, error) {
	if target == "" {
		return nil, apperr.Validationf("target user id is required")
	}
	if target == caller {
		return nil, apperr.Validationf("cannot send a connection request to yourself")
	}

	ok, err := s.Users.Exists(ctx, target)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load target user", err)
	}
	if !ok {
		return nil, apperr.NotFoundf("user not found")
	}

	sent, err := s.Connections.CountSentSince(ctx, caller, s.now().Add(-s.window))
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "count recent requests", err)
	}
	if sent >= s.limit {
		return nil, apperr.New(apperr.RateLimited, "connection request limit reached, try again later")
	}

	existing, err := s.Connections.FindBetween(ctx, caller, target)
	switch {
	case err == nil:
		return nil, conflictFor(*existing, caller)
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, apperr.Wrap(apperr.Internal, "check existing connection", err)
	}

	// The send log entry commits with the request so that cancel, decline,
	// and remove cannot hand back rate-limit budget.
	var c models.Connection
	err = txn.Run(ctx, s.Client, s.Log, func(ctx context.Context) error {
		var err error
		if c, err = s.Connections.Create(ctx, caller, target); err != nil {
			return err
		}
		return s.Connections.RecordSend(ctx, c)
	})
	if errors.Is(err, connectionstore.ErrDuplicatePair) {
		return nil, apperr.Conflictf("a connection request already exists")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create connection", err)
	}
	metrics.ConnectionTransitions.WithLabelValues("send").Inc()
	s.Log.Info("connection request sent",
		zap.String("requester_id", caller),
		zap.String("recipient_id", target))

	s.Workflows.Trigger(ctx, workflows.EventConnectionRequestSent,
		map[string]string{"connection_id": c.ID.Hex()})
	s.notify(ctx, target, realtime.EventConnectionRequest, c, caller)
	return &c, nil
}

func conflictFor(c models.Connection, caller string) error {
	switch {
	case c.Status == models.ConnectionAccepted:
		return apperr.Conflictf("you are already connected")
	case c.RequesterID == caller:
		return apperr.Conflictf("connection request already sent")
	default:
		return apperr.Conflictf("this user has already sent you a connection request")
	}
}

// Accept accepts the pending request from requester to caller. The status
// flip and both list updates commit together.
func (s *Service) Accept(ctx context.Context, caller, requester string) (*models.Connection, error) {
	if requester == "" {
		return nil, apperr.Validationf("requester id is required")
	}

	var accepted *models.Connection
	err := txn.Run(ctx, s.Client, s.Log, func(ctx context.Context) error {
		c, err := s.Connections.Accept(ctx, requester, caller)
		if err != nil {
			return err
		}
		if err := s.Users.LinkConnection(ctx, requester, caller); err != nil {
			return err
		}
		accepted = c
		return nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundf("connection request not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "accept connection", err)
	}
	metrics.ConnectionTransitions.WithLabelValues("accept").Inc()
	s.Log.Info("connection accepted",
		zap.String("requester_id", requester),
		zap.String("recipient_id", caller))

	s.notify(ctx, requester, realtime.EventConnectionAccepted, *accepted, caller)
	return accepted, nil
}

// Decline deletes the pending request from requester to caller.
func (s *Service) Decline(ctx context.Context, caller, requester string) error {
	if requester == "" {
		return apperr.Validationf("requester id is required")
	}
	c := models.Connection{RequesterID: requester, RecipientID: caller, PairKey: models.PairKey(requester, caller)}
	if err := s.deletePending(ctx, requester, caller, "decline"); err != nil {
		return err
	}
	s.notify(ctx, requester, realtime.EventConnectionDeclined, c, caller)
	return nil
}

// Cancel withdraws caller's pending request to target.
func (s *Service) Cancel(ctx context.Context, caller, target string) error {
	if target == "" {
		return apperr.Validationf("target user id is required")
	}
	c := models.Connection{RequesterID: caller, RecipientID: target, PairKey: models.PairKey(caller, target)}
	if err := s.deletePending(ctx, caller, target, "cancel"); err != nil {
		return err
	}
	s.notify(ctx, target, realtime.EventConnectionCancelled, c, caller)
	return nil
}

func (s *Service) deletePending(ctx context.Context, requester, recipient, transition string) error {
	deleted, err := s.Connections.DeletePending(ctx, requester, recipient)
	if err != nil {
		return apperr.Wrap(apperr.Internal, transition+" connection", err)
	}
	if !deleted {
		return apperr.NotFoundf("connection request not found")
	}
	metrics.ConnectionTransitions.WithLabelValues(transition).Inc()
	s.Log.Info("connection request deleted",
		zap.String("transition", transition),
		zap.String("requester_id", requester),
		zap.String("recipient_id", recipient))
	return nil
}

// Remove deletes the accepted connection between caller and other and pulls
// each from the other's connections list.
func (s *Service) Remove(ctx context.Context, caller, other string) error {
	if other == "" {
		return apperr.Validationf("user id is required")
	}
	err := txn.Run(ctx, s.Client, s.Log, func(ctx context.Context) error {
		deleted, err := s.Connections.DeleteAccepted(ctx, caller, other)
		if err != nil {
			return err
		}
		if !deleted {
			return mongo.ErrNoDocuments
		}
		return s.Users.UnlinkConnection(ctx, caller, other)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFoundf("connection not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "remove connection", err)
	}
	metrics.ConnectionTransitions.WithLabelValues("remove").Inc()
	s.Log.Info("connection removed",
		zap.String("user_id", caller),
		zap.String("other_id", other))

	c := models.Connection{RequesterID: caller, RecipientID: other, PairKey: models.PairKey(caller, other)}
	s.notify(ctx, other, realtime.EventConnectionRemoved, c, caller)
	return nil
}

// Status reports the connection state between caller and other from the
// caller's point of view.
func (s *Service) Status(ctx context.Context, caller, other string) (string, error) {
	c, err := s.Connections.FindBetween(ctx, caller, other)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return StatusNone, nil
	}
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "load connection", err)
	}
	switch {
	case c.Status == models.ConnectionAccepted:
		return StatusAccepted, nil
	case c.RequesterID == caller:
		return StatusPendingSent, nil
	default:
		return StatusPendingReceived, nil
	}
}

/* ---------------------- lists ---------------------- */

// Connected returns the cards of everyone caller is connected to.
func (s *Service) Connected(ctx context.Context, caller string) ([]models.UserSummary, error) {
	conns, err := s.Connections.ListAccepted(ctx, caller)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list connections", err)
	}
	ids := make([]string, 0, len(conns))
	for _, c := range conns {
		ids = append(ids, c.Other(caller))
	}
	return s.summaries(ctx, ids)
}

// Incoming returns pending requests addressed to caller with the requester's card.
func (s *Service) Incoming(ctx context.Context, caller string) ([]Request, error) {
	conns, err := s.Connections.ListIncoming(ctx, caller)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list incoming requests", err)
	}
	return s.withCards(ctx, caller, conns)
}

// Outgoing returns caller's pending requests with the recipient's card.
func (s *Service) Outgoing(ctx context.Context, caller string) ([]Request, error) {
	conns, err := s.Connections.ListOutgoing(ctx, caller)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list sent requests", err)
	}
	return s.withCards(ctx, caller, conns)
}

func (s *Service) withCards(ctx context.Context, caller string, conns []models.Connection) ([]Request, error) {
	ids := make([]string, 0, len(conns))
	for _, c := range conns {
		ids = append(ids, c.Other(caller))
	}
	cards, err := s.summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.UserSummary, len(cards))
	for _, u := range cards {
		byID[u.ID] = u
	}
	out := make([]Request, 0, len(conns))
	for _, c := range conns {
		u, ok := byID[c.Other(caller)]
		if !ok {
			// Other party was deleted; the webhook cascade will remove the doc.
			continue
		}
		out = append(out, Request{Connection: c, User: u})
	}
	return out, nil
}

func (s *Service) summaries(ctx context.Context, ids []string) ([]models.UserSummary, error) {
	out, err := s.Users.Summaries(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load users", err)
	}
	return out, nil
}

/* ---------------------- notifications ---------------------- */

func (s *Service) notify(ctx context.Context, to, event string, c models.Connection, actor string) {
	if s.Notifier == nil {
		return
	}
	ev := ConnectionEvent{Connection: c, User: models.UserSummary{ID: actor}}
	if u, err := s.Users.Get(ctx, actor); err == nil {
		ev.User = u.Summary()
	}
	s.Notifier.Notify(ctx, to, event, ev)
}
