package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Caller                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// Caller is the authenticated user injected into r.Context() by Guard.Require.
type Caller struct {
	ID     string
	Name   string
	Handle string
	Email  string
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the caller & “found?” flag.
func CurrentUser(r *http.Request) (*Caller, bool) {
	u, ok := r.Context().Value(currentUserKey).(*Caller)
	return u, ok
}

// WithTestUser injects c into the request context for handlers mounted
// without the guard.
func WithTestUser(r *http.Request, c *Caller) *http.Request {
	return withUser(r, c)
}

func withUser(r *http.Request, c *Caller) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, c))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Guard                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// TokenVerifier resolves a bearer token to the caller's user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserFetcher loads the caller's user document. It returns nil when the user
// does not exist or cannot be loaded.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *Caller
}

// Guard authenticates API requests from an `Authorization: Bearer` header.
type Guard struct {
	verifier TokenVerifier
	users    UserFetcher
	log      *zap.Logger
}

func NewGuard(v TokenVerifier, users UserFetcher, logger *zap.Logger) *Guard {
	return &Guard{verifier: v, users: users, log: logger}
}

// Require rejects the request with 401 unless the bearer token verifies and
// names a known user. The caller it injects replaces any already in context.
func (g *Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			jsonutil.Error(w, g.log, apperr.New(apperr.Unauthorized, "missing bearer token"))
			return
		}
		userID, err := g.verifier.Verify(token)
		if err != nil {
			g.log.Debug("bearer token rejected", zap.Error(err))
			jsonutil.Error(w, g.log, apperr.New(apperr.Unauthorized, "invalid token"))
			return
		}
		c := g.users.FetchUser(r.Context(), userID)
		if c == nil {
			jsonutil.Error(w, g.log, apperr.New(apperr.Unauthorized, "unknown user"))
			return
		}
		next.ServeHTTP(w, withUser(r, c))
	})
}

// BearerToken extracts the token from the Authorization header, or "".
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
