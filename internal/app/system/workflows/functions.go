package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	connectionstore "github.com/dalemusser/circlehub/internal/app/store/connections"
	messagestore "github.com/dalemusser/circlehub/internal/app/store/messages"
	storystore "github.com/dalemusser/circlehub/internal/app/store/stories"
	userstore "github.com/dalemusser/circlehub/internal/app/store/users"
	"github.com/dalemusser/circlehub/internal/app/system/mailer"
	"github.com/dalemusser/circlehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Functions holds the dependencies of the workflow functions.
type Functions struct {
	Users        *userstore.Store
	Connections  *connectionstore.Store
	Stories      *storystore.Store
	Messages     *messagestore.Store
	Mail         mailer.Sender
	Orchestrator *Orchestrator
	Log          *zap.Logger

	SiteName      string
	BaseURL       string
	ReminderDelay time.Duration

	now func() time.Time
}

// Register adds every function to r.
func (f *Functions) Register(r *Registry) {
	r.Register(EventConnectionRequestSent, f.ConnectionRequestSent)
	r.Register(FnConnectionReminder, f.ConnectionReminder)
	r.Register(EventStoryCreated, f.StoryCreated)
	r.Register(FnStoryExpire, f.StoryExpire)
	r.Register(FnMessagesDigest, f.MessagesDigest)
}

func (f *Functions) clock() time.Time {
	if f.now != nil {
		return f.now()
	}
	return time.Now()
}

func objectID(payload map[string]string, key string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(payload[key])
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s %q", ErrPermanent, key, payload[key])
	}
	return oid, nil
}

// ConnectionRequestSent emails the recipient now and schedules a reminder.
func (f *Functions) ConnectionRequestSent(ctx context.Context, payload map[string]string) error {
	id, err := objectID(payload, "connection_id")
	if err != nil {
		return err
	}
	c, err := f.Connections.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		f.Log.Info("connection gone before request email", zap.String("connection_id", id.Hex()))
		return nil
	}
	if err != nil {
		return err
	}

	// Schedule first: the dedupe key keeps retries from stacking reminders.
	if err := f.Orchestrator.Schedule(ctx, FnConnectionReminder,
		map[string]string{"connection_id": id.Hex()},
		f.clock().Add(f.ReminderDelay),
		"reminder:"+id.Hex(),
	); err != nil {
		return err
	}

	data, to, ok, err := f.connectionEmailData(ctx, c)
	if err != nil || !ok {
		return err
	}
	e := mailer.BuildConnectionRequestEmail(data)
	e.To = to
	return f.Mail.Send(ctx, e)
}

// ConnectionReminder emails the recipient again only if the request is still
// pending.
func (f *Functions) ConnectionReminder(ctx context.Context, payload map[string]string) error {
	id, err := objectID(payload, "connection_id")
	if err != nil {
		return err
	}
	c, err := f.Connections.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}
	if c.Status != models.ConnectionPending {
		return nil
	}

	data, to, ok, err := f.connectionEmailData(ctx, c)
	if err != nil || !ok {
		return err
	}
	e := mailer.BuildConnectionReminderEmail(data)
	e.To = to
	return f.Mail.Send(ctx, e)
}

func (f *Functions) connectionEmailData(ctx context.Context, c *models.Connection) (mailer.ConnectionEmailData, string, bool, error) {
	recipient, err := f.Users.Get(ctx, c.RecipientID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return mailer.ConnectionEmailData{}, "", false, nil
	}
	if err != nil {
		return mailer.ConnectionEmailData{}, "", false, err
	}
	sender, err := f.Users.Get(ctx, c.RequesterID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return mailer.ConnectionEmailData{}, "", false, nil
	}
	if err != nil {
		return mailer.ConnectionEmailData{}, "", false, err
	}
	if recipient.Email == "" {
		f.Log.Info("recipient has no email", zap.String("user_id", recipient.ID))
		return mailer.ConnectionEmailData{}, "", false, nil
	}
	return mailer.ConnectionEmailData{
		SiteName:      f.SiteName,
		RecipientName: displayName(*recipient),
		SenderName:    displayName(*sender),
		SenderHandle:  sender.Handle,
		ConnectionURL: f.BaseURL + "/connections",
	}, recipient.Email, true, nil
}

// StoryCreated schedules the story's deletion at its expiry time.
func (f *Functions) StoryCreated(ctx context.Context, payload map[string]string) error {
	id, err := objectID(payload, "story_id")
	if err != nil {
		return err
	}
	st, err := f.Stories.Get(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}
	return f.Orchestrator.Schedule(ctx, FnStoryExpire,
		map[string]string{"story_id": id.Hex()},
		st.ExpiresAt,
		"story-expire:"+id.Hex(),
	)
}

// StoryExpire deletes the story once it has expired.
func (f *Functions) StoryExpire(ctx context.Context, payload map[string]string) error {
	id, err := objectID(payload, "story_id")
	if err != nil {
		return err
	}
	st, err := f.Stories.Get(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}
	if st.ExpiresAt.After(f.clock()) {
		f.Log.Info("story not yet expired; leaving it",
			zap.String("story_id", id.Hex()), zap.Time("expires_at", st.ExpiresAt))
		return nil
	}
	_, err = f.Stories.Delete(ctx, id)
	return err
}

// MessagesDigest sends one email per recipient with unseen messages. A failed
// send is logged and skipped rather than retried, so a retry never emails
// the recipients that already got their digest.
func (f *Functions) MessagesDigest(ctx context.Context, _ map[string]string) error {
	counts, err := f.Messages.UnseenByRecipient(ctx)
	if err != nil {
		return err
	}

	sent := 0
	for _, c := range counts {
		u, err := f.Users.Get(ctx, c.UserID)
		if err != nil {
			if !errors.Is(err, mongo.ErrNoDocuments) {
				f.Log.Warn("digest: load recipient", zap.String("user_id", c.UserID), zap.Error(err))
			}
			continue
		}
		if u.Email == "" {
			continue
		}
		e := mailer.BuildDigestEmail(mailer.DigestEmailData{
			SiteName:      f.SiteName,
			RecipientName: displayName(*u),
			Unseen:        c.Count,
			MessagesURL:   f.BaseURL + "/messages",
		})
		e.To = u.Email
		if err := f.Mail.Send(ctx, e); err != nil {
			f.Log.Warn("digest: send failed", zap.String("user_id", u.ID), zap.Error(err))
			continue
		}
		sent++
	}
	f.Log.Info("digest sent", zap.Int("recipients", sent), zap.Int("candidates", len(counts)))
	return nil
}

func displayName(u models.User) string {
	if u.Name != "" {
		return u.Name
	}
	return "@" + u.Handle
}
