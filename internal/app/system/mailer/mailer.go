// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/pantry/email"
	"go.uber.org/zap"
)

// Email is one outgoing message. HTMLBody is optional.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers email. *Mailer implements it; tests substitute a recorder.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Config holds SMTP settings. Port 465 means implicit TLS; any other port
// requires STARTTLS.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
	Timeout  time.Duration
}

// transport is the part of *email.Sender the mailer uses.
type transport interface {
	Send(ctx context.Context, msg email.Message) error
}

// Mailer sends email through the waffle SMTP client.
type Mailer struct {
	smtp transport
	log  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Mailer {
	sender := email.NewSender(email.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.User,
		Password:    cfg.Pass,
		FromAddress: cfg.From,
		FromName:    cfg.FromName,
		UseSSL:      cfg.Port == 465,
		Timeout:     cfg.Timeout,
	})
	return &Mailer{smtp: sender, log: logger}
}

// Send hands e to the SMTP server.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if e.To == "" {
		return fmt.Errorf("mailer: empty recipient")
	}
	start := time.Now()
	err := m.smtp.Send(ctx, email.Message{
		To:       []string{e.To},
		Subject:  e.Subject,
		TextBody: e.TextBody,
		HTMLBody: e.HTMLBody,
	})
	if err != nil {
		return fmt.Errorf("mailer: send to %s: %w", e.To, err)
	}
	m.log.Debug("email sent",
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
		zap.Duration("took", time.Since(start)))
	return nil
}
