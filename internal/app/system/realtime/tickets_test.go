package realtime

import (
	"testing"
	"time"
)

func TestTickets_RoundTrip(t *testing.T) {
	tk := NewTickets([]byte("0123456789abcdef0123456789abcdef"), time.Minute)
	v, err := tk.Issue("u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	got, err := tk.Verify(v)
	if err != nil || got != "u1" {
		t.Fatalf("Verify = %q, %v", got, err)
	}
}

func TestTickets_RejectsTamperedAndForeign(t *testing.T) {
	a := NewTickets([]byte("0123456789abcdef0123456789abcdef"), time.Minute)
	b := NewTickets([]byte("fedcba9876543210fedcba9876543210"), time.Minute)

	v, _ := a.Issue("u1")
	if _, err := b.Verify(v); err == nil {
		t.Error("ticket from another key verified")
	}
	if _, err := a.Verify(v + "x"); err == nil {
		t.Error("tampered ticket verified")
	}
}

func TestTickets_Expired(t *testing.T) {
	tk := NewTickets([]byte("0123456789abcdef0123456789abcdef"), time.Minute)
	v, _ := tk.Issue("u1")

	tk.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := tk.Verify(v); err == nil {
		t.Error("expired ticket verified")
	}
}
