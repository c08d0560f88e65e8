package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/waffle/pantry/email"
	"go.uber.org/zap"
)

type fakeTransport struct {
	got []email.Message
	err error
}

func (f *fakeTransport) Send(_ context.Context, msg email.Message) error {
	f.got = append(f.got, msg)
	return f.err
}

func TestMailer_Send_MapsMessage(t *testing.T) {
	ft := &fakeTransport{}
	m := &Mailer{smtp: ft, log: zap.NewNop()}

	err := m.Send(context.Background(), Email{To: "ada@example.com", Subject: "Hello", TextBody: "plain", HTMLBody: "<p>html</p>"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(ft.got) != 1 {
		t.Fatalf("sent %d messages, want 1", len(ft.got))
	}
	msg := ft.got[0]
	if len(msg.To) != 1 || msg.To[0] != "ada@example.com" {
		t.Errorf("to = %v", msg.To)
	}
	if msg.Subject != "Hello" || msg.TextBody != "plain" || msg.HTMLBody != "<p>html</p>" {
		t.Errorf("message = %+v", msg)
	}
}

func TestMailer_Send_RequiresRecipient(t *testing.T) {
	ft := &fakeTransport{}
	m := &Mailer{smtp: ft, log: zap.NewNop()}
	if err := m.Send(context.Background(), Email{Subject: "x"}); err == nil {
		t.Error("expected error for empty recipient")
	}
	if len(ft.got) != 0 {
		t.Error("transport should not be called")
	}
}

func TestMailer_Send_WrapsTransportError(t *testing.T) {
	boom := errors.New("connection refused")
	m := &Mailer{smtp: &fakeTransport{err: boom}, log: zap.NewNop()}
	err := m.Send(context.Background(), Email{To: "ada@example.com", Subject: "x", TextBody: "y"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if !strings.Contains(err.Error(), "ada@example.com") {
		t.Errorf("err = %q, want recipient in message", err)
	}
}

func TestNew_UsesWaffleSender(t *testing.T) {
	m := New(Config{Host: "smtp.example", Port: 465, From: "noreply@example.com"}, zap.NewNop())
	if _, ok := m.smtp.(*email.Sender); !ok {
		t.Errorf("transport = %T, want *email.Sender", m.smtp)
	}
}

func TestUnseenPhrase(t *testing.T) {
	tests := map[int]string{
		1: "1 unseen message",
		3: "3 unseen messages",
		0: "0 unseen messages",
	}
	for n, want := range tests {
		if got := UnseenPhrase(n); got != want {
			t.Errorf("UnseenPhrase(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestBuildDigestEmail(t *testing.T) {
	e := BuildDigestEmail(DigestEmailData{SiteName: "CircleHub", RecipientName: "Ada", Unseen: 3, MessagesURL: "https://x/messages"})
	if !strings.Contains(e.TextBody, "3 unseen messages") || !strings.Contains(e.HTMLBody, "3 unseen messages") {
		t.Errorf("digest bodies missing count: %q", e.TextBody)
	}
	if !strings.Contains(e.Subject, "3 unseen messages") {
		t.Errorf("subject = %q", e.Subject)
	}
}

func TestBuildConnectionEmails_EscapeHTML(t *testing.T) {
	data := ConnectionEmailData{SiteName: "CircleHub", RecipientName: "Bob", SenderName: "<b>Eve</b>", SenderHandle: "eve", ConnectionURL: "https://x/connections"}
	for _, e := range []Email{BuildConnectionRequestEmail(data), BuildConnectionReminderEmail(data)} {
		if strings.Contains(e.HTMLBody, "<b>Eve</b>") {
			t.Error("sender name was not escaped in HTML body")
		}
		if !strings.Contains(e.TextBody, "@eve") {
			t.Errorf("text body = %q", e.TextBody)
		}
	}
}
