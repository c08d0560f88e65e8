package relations

import (
	"context"
	"errors"

	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/realtime"
	"github.com/dalemusser/circlehub/internal/app/system/txn"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// FollowEvent is the realtime payload for new-follower.
type FollowEvent struct {
	Follower models.UserSummary `json:"follower"`
}

// Follow makes caller follow target. Following someone already followed is a
// no-op and sends no notification.
func (s *Service) Follow(ctx context.Context, caller, target string) error {
	if target == caller {
		return apperr.Validationf("cannot follow yourself")
	}
	me, err := s.Users.Get(ctx, caller)
	if err != nil {
		return s.userErr(err, "load caller")
	}
	if _, err := s.Users.Get(ctx, target); err != nil {
		return s.userErr(err, "load target user")
	}
	if me.IsFollowing(target) {
		return nil
	}

	err = txn.Run(ctx, s.Client, s.Log, func(ctx context.Context) error {
		return s.Users.Follow(ctx, caller, target)
	})
	if err != nil {
		return s.userErr(err, "follow")
	}
	s.Log.Info("user followed", zap.String("follower_id", caller), zap.String("target_id", target))

	if s.Notifier != nil {
		s.Notifier.Notify(ctx, target, realtime.EventNewFollower, FollowEvent{Follower: me.Summary()})
	}
	return nil
}

// Unfollow removes caller -> target from both users' lists.
func (s *Service) Unfollow(ctx context.Context, caller, target string) error {
	if target == caller {
		return apperr.Validationf("cannot unfollow yourself")
	}
	if _, err := s.Users.Get(ctx, target); err != nil {
		return s.userErr(err, "load target user")
	}
	err := txn.Run(ctx, s.Client, s.Log, func(ctx context.Context) error {
		return s.Users.Unfollow(ctx, caller, target)
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "unfollow", err)
	}
	s.Log.Info("user unfollowed", zap.String("follower_id", caller), zap.String("target_id", target))
	return nil
}

// Followers returns the cards of everyone following userID.
func (s *Service) Followers(ctx context.Context, userID string) ([]models.UserSummary, error) {
	u, err := s.Users.Get(ctx, userID)
	if err != nil {
		return nil, s.userErr(err, "load user")
	}
	return s.summaries(ctx, u.Followers)
}

// Following returns the cards of everyone userID follows.
func (s *Service) Following(ctx context.Context, userID string) ([]models.UserSummary, error) {
	u, err := s.Users.Get(ctx, userID)
	if err != nil {
		return nil, s.userErr(err, "load user")
	}
	return s.summaries(ctx, u.Following)
}

func (s *Service) userErr(err error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFoundf("user not found")
	}
	return apperr.Wrap(apperr.Internal, op, err)
}
