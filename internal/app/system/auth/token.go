package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerifierConfig selects the signing key. Exactly one of Secret (HS256) or
// PublicKeyPEM (RS256) is required.
type VerifierConfig struct {
	Secret       string
	PublicKeyPEM []byte
	Issuer       string
	Leeway       time.Duration
}

// Verifier validates identity-provider session tokens.
type Verifier struct {
	key    any
	parser *jwt.Parser
}

var (
	ErrNoSigningKey = errors.New("auth: no jwt secret or public key configured")
	errNoSubject    = errors.New("auth: token has no subject")
)

func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	opts := []jwt.ParserOption{jwt.WithLeeway(cfg.Leeway), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	v := &Verifier{}
	switch {
	case len(cfg.PublicKeyPEM) > 0:
		pub, err := jwt.ParseRSAPublicKeyFromPEM(cfg.PublicKeyPEM)
		if err != nil {
			return nil, err
		}
		v.key = pub
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	case cfg.Secret != "":
		v.key = []byte(cfg.Secret)
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	default:
		return nil, ErrNoSigningKey
	}
	v.parser = jwt.NewParser(opts...)
	return v, nil
}

// Verify checks signature, expiry, and issuer, and returns the subject.
// Tokens without an exp claim are rejected.
func (v *Verifier) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	if _, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errNoSubject
	}
	return claims.Subject, nil
}
