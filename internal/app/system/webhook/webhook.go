// Package webhook verifies signed deliveries from the identity provider and
// the workflow orchestrator.
//
// Deliveries carry three headers: webhook-id, webhook-timestamp (unix
// seconds), and webhook-signature, a space-separated list of "v1,<base64>"
// entries. Each signature is the base64 HMAC-SHA256 of "id.timestamp.body"
// keyed with the decoded secret. Secrets are configured as "whsec_<base64>".
//
// Verifier satisfies the waffle webhook.Verifier interface, so it plugs into
// waffle's VerifyMiddleware and Router as well as our own handlers.
package webhook

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	hook "github.com/dalemusser/waffle/pantry/webhook"
)

const (
	HeaderID        = "webhook-id"
	HeaderTimestamp = "webhook-timestamp"
	HeaderSignature = "webhook-signature"

	secretPrefix = "whsec_"
)

// ErrInvalidSecret is returned by NewVerifier for a blank or undecodable
// secret. Verification failures use the waffle webhook errors
// (ErrMissingSignature, ErrMissingTimestamp, ErrTimestampExpired,
// ErrInvalidSignature, ErrRequestBodyTooLarge).
var ErrInvalidSecret = errors.New("webhook: invalid secret")

var _ hook.Verifier = (*Verifier)(nil)

// Config tunes a Verifier. Zero values fall back to the waffle defaults.
type Config struct {
	Tolerance   time.Duration
	MaxBodySize int64
}

// Verifier checks delivery signatures against one secret.
type Verifier struct {
	key         []byte
	tolerance   time.Duration
	maxBodySize int64
}

// NewVerifier decodes secret. The "whsec_" prefix is optional.
func NewVerifier(secret string, cfg Config) (*Verifier, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return nil, err
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = hook.TimestampTolerance
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = hook.MaxBodySize
	}
	return &Verifier{key: key, tolerance: cfg.Tolerance, maxBodySize: cfg.MaxBodySize}, nil
}

func decodeSecret(secret string) ([]byte, error) {
	s := strings.TrimPrefix(strings.TrimSpace(secret), secretPrefix)
	if s == "" {
		return nil, ErrInvalidSecret
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return key, nil
}

// Verify checks the delivery headers against the request body. The body is
// left readable for the handler.
func (v *Verifier) Verify(r *http.Request) error {
	id := r.Header.Get(HeaderID)
	ts := r.Header.Get(HeaderTimestamp)
	sigs := r.Header.Get(HeaderSignature)
	if id == "" || sigs == "" {
		return hook.ErrMissingSignature
	}
	if ts == "" {
		return hook.ErrMissingTimestamp
	}

	sent, err := hook.ParseUnixTimestamp(ts)
	if err != nil {
		return err
	}
	if err := hook.VerifyTimestamp(sent, v.tolerance); err != nil {
		return err
	}

	body, err := hook.DrainBody(r, v.maxBodySize)
	if err != nil {
		return err
	}
	return v.VerifyPayload(signedContent(id, ts, body), sigs)
}

// VerifyPayload checks a webhook-signature header value against the signed
// content "id.timestamp.body". Any one matching v1 entry is enough, which
// lets the sender rotate secrets.
func (v *Verifier) VerifyPayload(content []byte, signature string) error {
	for _, entry := range strings.Fields(signature) {
		sig := hook.ExtractSignature(entry, "v1,")
		if sig == entry {
			continue
		}
		if hook.VerifyHMAC(content, v.key, hexOf(sig), hook.SHA256) {
			return nil
		}
	}
	return hook.ErrInvalidSignature
}

// Sign returns the "v1,<base64>" signature for a delivery. Used by tests and
// by tooling that replays deliveries.
func (v *Verifier) Sign(id string, at time.Time, payload []byte) string {
	return "v1," + v.sign(signedContent(id, strconv.FormatInt(at.Unix(), 10), payload))
}

// SignHeaders sets the three delivery headers on h.
func (v *Verifier) SignHeaders(h http.Header, id string, at time.Time, payload []byte) {
	h.Set(HeaderID, id)
	h.Set(HeaderTimestamp, strconv.FormatInt(at.Unix(), 10))
	h.Set(HeaderSignature, v.Sign(id, at, payload))
}

func signedContent(id, ts string, body []byte) []byte {
	b := make([]byte, 0, len(id)+len(ts)+len(body)+2)
	b = append(b, id...)
	b = append(b, '.')
	b = append(b, ts...)
	b = append(b, '.')
	return append(b, body...)
}

// sign is the base64 form of waffle's hex HMAC-SHA256.
func (v *Verifier) sign(content []byte) string {
	raw, _ := hex.DecodeString(hook.ComputeHMAC(content, v.key, hook.SHA256))
	return base64.StdEncoding.EncodeToString(raw)
}

// hexOf converts a base64 signature to the hex form VerifyHMAC compares.
// Undecodable input yields "", which never matches.
func hexOf(sig string) string {
	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return ""
	}
	return hex.EncodeToString(raw)
}
