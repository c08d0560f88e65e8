package webhook

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	hook "github.com/dalemusser/waffle/pantry/webhook"
)

var testSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("test-signing-key-0123456789"))

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(testSecret, Config{MaxBodySize: 1024})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return v
}

func delivery(body []byte, h http.Header) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/webhooks/identity", bytes.NewReader(body))
	for k, vs := range h {
		r.Header[k] = vs
	}
	return r
}

func TestVerify(t *testing.T) {
	now := time.Now()
	v := newTestVerifier(t)
	body := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)

	signed := func(at time.Time, b []byte) http.Header {
		h := http.Header{}
		v.SignHeaders(h, "msg_1", at, b)
		return h
	}

	tests := []struct {
		name    string
		headers http.Header
		body    []byte
		want    error
	}{
		{"valid", signed(now, body), body, nil},
		{"within tolerance", signed(now.Add(-4*time.Minute), body), body, nil},
		{"too old", signed(now.Add(-6*time.Minute), body), body, hook.ErrTimestampExpired},
		{"too far ahead", signed(now.Add(6*time.Minute), body), body, hook.ErrTimestampExpired},
		{"tampered body", signed(now, body), []byte(`{"type":"user.deleted"}`), hook.ErrInvalidSignature},
		{"missing headers", http.Header{}, body, hook.ErrMissingSignature},
		{"missing timestamp", func() http.Header {
			h := signed(now, body)
			h.Del(HeaderTimestamp)
			return h
		}(), body, hook.ErrMissingTimestamp},
		{"bad timestamp", func() http.Header {
			h := signed(now, body)
			h.Set(HeaderTimestamp, "yesterday")
			return h
		}(), body, hook.ErrMissingTimestamp},
		{"rotated secret list", func() http.Header {
			h := signed(now, body)
			h.Set(HeaderSignature, "v1,bm9wZQ== "+h.Get(HeaderSignature))
			return h
		}(), body, nil},
		{"wrong version", func() http.Header {
			h := signed(now, body)
			sig := h.Get(HeaderSignature)
			h.Set(HeaderSignature, "v2"+sig[2:])
			return h
		}(), body, hook.ErrInvalidSignature},
		{"not base64", func() http.Header {
			h := signed(now, body)
			h.Set(HeaderSignature, "v1,%%%")
			return h
		}(), body, hook.ErrInvalidSignature},
		{"body too large", signed(now, bytes.Repeat([]byte("x"), 2048)), bytes.Repeat([]byte("x"), 2048), hook.ErrRequestBodyTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Verify(delivery(tc.body, tc.headers))
			if !errors.Is(err, tc.want) {
				t.Errorf("Verify = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestVerify_BodyStaysReadable(t *testing.T) {
	v := newTestVerifier(t)
	body := []byte(`{"type":"user.updated"}`)
	h := http.Header{}
	v.SignHeaders(h, "msg_3", time.Now(), body)

	r := delivery(body, h)
	if err := v.Verify(r); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	got, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("body after Verify = %q, want %q", got, body)
	}
}

func TestVerify_OtherSecretRejected(t *testing.T) {
	v := newTestVerifier(t)
	other, err := NewVerifier(base64.StdEncoding.EncodeToString([]byte("another-key")), Config{})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	h := http.Header{}
	other.SignHeaders(h, "msg_2", time.Now(), []byte("{}"))
	if err := v.Verify(delivery([]byte("{}"), h)); !errors.Is(err, hook.ErrInvalidSignature) {
		t.Errorf("Verify = %v, want ErrInvalidSignature", err)
	}
}

func TestSign_VerifiesAgainstContent(t *testing.T) {
	v := newTestVerifier(t)
	sig := v.Sign("msg_1", time.Unix(1_700_000_000, 0), []byte("{}"))
	if !strings.HasPrefix(sig, "v1,") {
		t.Fatalf("sig = %q", sig)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sig, "v1,"))
	if err != nil || len(raw) != 32 {
		t.Fatalf("signature is not a base64 SHA-256 MAC: %q (%v)", sig, err)
	}
	content := signedContent("msg_1", "1700000000", []byte("{}"))
	if err := v.VerifyPayload(content, sig); err != nil {
		t.Errorf("VerifyPayload(own signature) = %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	v := newTestVerifier(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := hook.VerifyMiddleware(v)(next)

	body := []byte(`{}`)
	good := http.Header{}
	v.SignHeaders(good, "msg_4", time.Now(), body)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, delivery(body, good))
	if rec.Code != http.StatusNoContent {
		t.Errorf("signed: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, delivery(body, http.Header{}))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unsigned: status = %d, want 401", rec.Code)
	}
}

func TestNewVerifier_BadSecret(t *testing.T) {
	for _, s := range []string{"", "whsec_", "whsec_not base64!"} {
		if _, err := NewVerifier(s, Config{}); !errors.Is(err, ErrInvalidSecret) {
			t.Errorf("NewVerifier(%q) = %v, want ErrInvalidSecret", s, err)
		}
	}
}
